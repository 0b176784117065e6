package cmd

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/innocode-digital/scaffold-theme/pkg/config"
)

var (
	flagConfig  string
	flagVerbose bool

	// Settings holds the resolved configuration, available to all
	// subcommands after PersistentPreRunE completes.
	Settings *config.Settings

	logger *log.Logger
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scaffold-theme",
		Short: "WordPress theme scaffolder",
		Long:  "scaffold-theme creates WordPress themes from a skeleton archive and personalizes the theme's manifests, headers and translations.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = newLogger(cmd.ErrOrStderr(), flagVerbose)

			s, err := config.Load(config.LoadOptions{ConfigFile: flagConfig, Flags: cmd.Flags()})
			if err != nil {
				return err
			}
			Settings = s
			logger.Debug("settings loaded", "path", s.Path, "themes_dir", s.ThemesDir)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default ./"+config.LocalFileName+")")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	pf.String("path", "", "WordPress root directory (default .)")
	pf.String("themes-dir", "", "themes directory (default <path>/wp-content/themes)")
	pf.String("github-token", "", "GitHub token, overrides the composer credential store")
	pf.String("wp-version", "", "WordPress version written to the theme headers (default detected)")

	root.AddCommand(newThemeCmd())
	root.AddCommand(newConfigCmd())

	return root
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix: "scaffold-theme",
	})
	if verbose {
		l.SetLevel(log.DebugLevel)
	}
	return l
}

func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		printError(root.ErrOrStderr(), err)
		os.Exit(1)
	}
}
