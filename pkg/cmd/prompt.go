package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// huhPrompter asks yes/no questions on the terminal.
type huhPrompter struct{}

func (huhPrompter) Confirm(question string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return ok, nil
}
