package config

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// ThemeValues are per-theme answers read from a YAML file with
// `theme --values`. Command-line flags override them field by field.
type ThemeValues struct {
	Name        string `json:"name,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	AuthorURI   string `json:"author_uri,omitempty"`
	TextDomain  string `json:"text_domain,omitempty"`
	Repo        string `json:"repo,omitempty"`
}

// LoadValues reads a theme values file. Unknown keys are rejected so typos
// do not silently fall back to defaults.
func LoadValues(path string) (*ThemeValues, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseValues(data)
}

func ParseValues(data []byte) (*ThemeValues, error) {
	vals := &ThemeValues{}
	if err := yaml.UnmarshalStrict(data, vals); err != nil {
		return nil, fmt.Errorf("parsing theme values: %w", err)
	}
	return vals, nil
}

// Merge returns v with every non-empty field of override applied.
func (v ThemeValues) Merge(override ThemeValues) ThemeValues {
	pick := func(base, over string) string {
		if over != "" {
			return over
		}
		return base
	}
	return ThemeValues{
		Name:        pick(v.Name, override.Name),
		Version:     pick(v.Version, override.Version),
		Description: pick(v.Description, override.Description),
		Author:      pick(v.Author, override.Author),
		AuthorURI:   pick(v.AuthorURI, override.AuthorURI),
		TextDomain:  pick(v.TextDomain, override.TextDomain),
		Repo:        pick(v.Repo, override.Repo),
	}
}
