package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/innocode-digital/scaffold-theme/pkg/config"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved settings as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secrets, _ := cmd.Flags().GetBool("show-secrets")
			out, err := Settings.Marshal(secrets)
			if err != nil {
				return fmt.Errorf("rendering settings: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	showCmd.Flags().Bool("show-secrets", false, "print the GitHub token instead of redacting it")

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a setting to ~/" + config.GlobalDirName + "/" + config.GlobalFileName,
		Long: `Persists a setting to the global config file. List settings such as
composer_repositories take a comma-separated value.`,
		Args: cobra.ExactArgs(2),
		// set must work even when the current config cannot be loaded.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.SetGlobal(args[0], args[1])
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Set %s in %s.", args[0], path)
			return nil
		},
	}

	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(setCmd)
	return configCmd
}
