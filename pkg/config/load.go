package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/innocode-digital/scaffold-theme/pkg/credential"
)

// FlagKeys maps command-line flag names to the settings they override.
var FlagKeys = map[string]string{
	"path":         "path",
	"themes-dir":   "themes_dir",
	"github-token": "github_pat",
	"skeleton-url": "source_url",
	"wp-version":   "wp_version",
}

// LoadOptions select the files and flags that feed Load.
type LoadOptions struct {
	// ConfigFile replaces ./.scaffold-theme.toml and must exist when set.
	ConfigFile string
	// Flags are bound through FlagKeys; only flags the user changed win.
	Flags *pflag.FlagSet
}

// Load resolves settings with Viper precedence:
// flags > environment (SCAFFOLD_THEME_*, GITHUB_PAT) > local config file >
// ~/.scaffold-theme/config.toml > Defaults.
func Load(opts LoadOptions) (*Settings, error) {
	globalPath, err := GlobalConfigPath()
	if err != nil {
		return nil, err
	}

	localPath, explicit := opts.ConfigFile, opts.ConfigFile != ""
	if !explicit {
		localPath = LocalFileName
	}
	return load(globalPath, localPath, explicit, opts.Flags)
}

// load is the implementation behind Load with explicit paths, so tests never
// touch the real home directory.
func load(globalPath, localPath string, explicit bool, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("toml")

	for k, d := range Defaults {
		v.SetDefault(k, d)
	}

	if globalPath != "" {
		if _, err := os.Stat(globalPath); err == nil {
			v.SetConfigFile(globalPath)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("reading %s: %w", globalPath, err)
			}
		}
	}

	if _, err := os.Stat(localPath); err == nil {
		v.SetConfigFile(localPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", localPath, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", localPath, err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("github_pat", EnvPrefix+"_GITHUB_PAT", "GITHUB_PAT"); err != nil {
		return nil, fmt.Errorf("binding environment: %w", err)
	}

	if flags != nil {
		for name, key := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag --%s: %w", name, err)
			}
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}

	if err := s.resolvePaths(); err != nil {
		return nil, err
	}
	return s, nil
}

// resolvePaths expands ~ and fills the directories derived from Path.
func (s *Settings) resolvePaths() error {
	var err error

	if s.Path == "" {
		s.Path = "."
	}
	if s.Path, err = homedir.Expand(s.Path); err != nil {
		return fmt.Errorf("expanding path: %w", err)
	}

	if s.ThemesDir == "" {
		s.ThemesDir = filepath.Join(s.Path, "wp-content", "themes")
	} else if s.ThemesDir, err = homedir.Expand(s.ThemesDir); err != nil {
		return fmt.Errorf("expanding themes_dir: %w", err)
	}

	if s.CredentialStore == "" {
		s.CredentialStore = credential.DefaultStorePath(os.Getenv)
	} else if s.CredentialStore, err = homedir.Expand(s.CredentialStore); err != nil {
		return fmt.Errorf("expanding credential_store: %w", err)
	}

	s.GitHubPAT = strings.TrimSpace(s.GitHubPAT)
	return nil
}
