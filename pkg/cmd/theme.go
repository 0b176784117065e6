package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/innocode-digital/scaffold-theme/pkg/config"
	"github.com/innocode-digital/scaffold-theme/pkg/progress"
	"github.com/innocode-digital/scaffold-theme/pkg/scaffold"
	"github.com/innocode-digital/scaffold-theme/pkg/source"
	"github.com/innocode-digital/scaffold-theme/pkg/store"
	"github.com/innocode-digital/scaffold-theme/pkg/wpcli"
)

// themeValueFlags maps theme flags to the values file fields they override.
var themeValueFlags = []string{"name", "version", "description", "author", "author_uri", "text_domain", "repo"}

func newThemeCmd() *cobra.Command {
	themeCmd := &cobra.Command{
		Use:   "theme <slug>",
		Short: "Generate a theme from the skeleton",
		Long: `Downloads the theme skeleton, unpacks it into the themes directory and
personalizes composer.json, package.json, style.css, README.md, the
translation catalogs and functions.php for the new theme.

The skeleton defaults to the configured GitHub repository. --skeleton accepts
owner/repo[@ref], a local path or a URL; --skeleton-url selects a direct URL.`,
		Args: cobra.ExactArgs(1),
		RunE: runTheme,
	}

	f := themeCmd.Flags()
	f.String("name", "", "theme name (default: slug with an upper-case first letter)")
	f.String("version", "", "theme version (default "+scaffold.DefaultVersion+")")
	f.String("description", "", "theme description")
	f.String("author", "", "theme author (default from settings)")
	f.String("author_uri", "", "theme author URI (default from settings)")
	f.String("text_domain", "", "theme text domain (default: slug)")
	f.String("repo", "", "GitHub repository, owner/name or name (default: slug)")
	f.String("values", "", "YAML file with theme values; flags override it")
	f.String("skeleton", "", "skeleton as owner/repo[@ref], local path or URL")
	f.String("skeleton-url", "", "direct URL or path of the skeleton archive")
	f.Bool("force", false, "overwrite files that already exist")
	f.Bool("activate", false, "activate the new theme")
	f.Bool("enable-network", false, "enable the new theme for the whole network")

	return themeCmd
}

func runTheme(cmd *cobra.Command, args []string) error {
	slug := args[0]
	s := Settings

	vals, err := themeValues(cmd)
	if err != nil {
		return err
	}

	wpVersion := s.WPVersion
	if wpVersion == "" {
		if wpVersion, err = wpcli.DetectVersion(s.Path); err != nil {
			printWarning(cmd.ErrOrStderr(), "Could not detect the WordPress version: %v", err)
		}
	}

	theme, err := scaffold.NewTheme(slug, vals, scaffold.Defaults{
		Author:    s.Author,
		AuthorURI: s.AuthorURI,
		RepoOwner: s.RepoOwner,
		WPVersion: wpVersion,
	})
	if err != nil {
		return err
	}

	ctx := progress.Open(cmd.Context(), cmd.ErrOrStderr())

	cfg, err := sourceConfig(cmd, s)
	if err != nil {
		return err
	}
	src, err := source.New(ctx, cfg)
	if err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	sc := &scaffold.Scaffolder{
		Store:                store.New(s.ThemesDir),
		Source:               src,
		Prompter:             huhPrompter{},
		Logger:               logger,
		Force:                force,
		ComposerRepositories: s.ComposerRepositories,
	}

	res, err := sc.Run(ctx, theme)
	if err != nil {
		return err
	}
	if !res.Created {
		return nil
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Created theme '%s'.", theme.Name)
	printHint(out, "Remember to run `composer install` and `npm install` in %s.", res.Dir)

	activate, _ := cmd.Flags().GetBool("activate")
	network, _ := cmd.Flags().GetBool("enable-network")
	if !activate && !network {
		return nil
	}

	wp := &wpcli.Runner{Path: s.Path, Stdout: out, Stderr: cmd.ErrOrStderr()}
	if activate {
		return wp.Activate(ctx, slug)
	}
	return wp.EnableNetwork(ctx, slug)
}

// themeValues reads --values and applies the theme flags the user set.
func themeValues(cmd *cobra.Command) (config.ThemeValues, error) {
	var vals config.ThemeValues
	if path, _ := cmd.Flags().GetString("values"); path != "" {
		v, err := config.LoadValues(path)
		if err != nil {
			return vals, err
		}
		vals = *v
	}

	flagVals := map[string]string{}
	for _, name := range themeValueFlags {
		if v, _ := cmd.Flags().GetString(name); v != "" {
			flagVals[name] = v
		}
	}

	return vals.Merge(config.ThemeValues{
		Name:        flagVals["name"],
		Version:     flagVals["version"],
		Description: flagVals["description"],
		Author:      flagVals["author"],
		AuthorURI:   flagVals["author_uri"],
		TextDomain:  flagVals["text_domain"],
		Repo:        flagVals["repo"],
	}), nil
}

// sourceConfig selects the skeleton source. --skeleton wins over
// --skeleton-url, which wins over skeleton_source.
func sourceConfig(cmd *cobra.Command, s *config.Settings) (source.Config, error) {
	cfg := source.Config{
		Kind:            source.ParseKind(s.SkeletonSource),
		Username:        s.SourceUsername,
		Repo:            s.SourceRepo,
		Ref:             s.SourceRef,
		Token:           s.GitHubPAT,
		CredentialStore: s.CredentialStore,
		APIURL:          s.GitHubAPIURL,
		URL:             s.SourceURL,
		Logger:          logger,
	}

	if cmd.Flags().Changed("skeleton-url") {
		cfg.Kind = source.KindURL
	}

	ref, _ := cmd.Flags().GetString("skeleton")
	if ref == "" {
		return cfg, nil
	}

	parsed, err := source.ParseRef(ref)
	if err != nil {
		return cfg, fmt.Errorf("--skeleton: %w", err)
	}
	cfg.Kind = parsed.Kind
	if parsed.Kind == source.KindURL {
		cfg.URL = parsed.URL
		return cfg, nil
	}
	cfg.Username, cfg.Repo, cfg.Ref = parsed.Username, parsed.Repo, parsed.Ref
	return cfg, nil
}
