package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// GlobalDirName is the per-user config directory under $HOME.
	GlobalDirName = ".scaffold-theme"
	// GlobalFileName is the config file inside GlobalDirName.
	GlobalFileName = "config.toml"
	// LocalFileName is the project config looked up in the working directory.
	LocalFileName = ".scaffold-theme.toml"

	// EnvPrefix prefixes every environment override, e.g. SCAFFOLD_THEME_PATH.
	EnvPrefix = "SCAFFOLD_THEME"
)

// Settings are the resolved configuration values for a run.
type Settings struct {
	SkeletonSource string `toml:"skeleton_source" mapstructure:"skeleton_source"`
	SourceUsername string `toml:"source_username" mapstructure:"source_username"`
	SourceRepo     string `toml:"source_repo" mapstructure:"source_repo"`
	SourceRef      string `toml:"source_ref" mapstructure:"source_ref"`
	SourceURL      string `toml:"source_url" mapstructure:"source_url"`

	GitHubPAT       string `toml:"github_pat" mapstructure:"github_pat"`
	GitHubAPIURL    string `toml:"github_api_url" mapstructure:"github_api_url"`
	CredentialStore string `toml:"credential_store" mapstructure:"credential_store"`

	Path      string `toml:"path" mapstructure:"path"`
	ThemesDir string `toml:"themes_dir" mapstructure:"themes_dir"`
	WPVersion string `toml:"wp_version" mapstructure:"wp_version"`

	RepoOwner            string   `toml:"repo_owner" mapstructure:"repo_owner"`
	Author               string   `toml:"author" mapstructure:"author"`
	AuthorURI            string   `toml:"author_uri" mapstructure:"author_uri"`
	ComposerRepositories []string `toml:"composer_repositories" mapstructure:"composer_repositories"`
}

// Defaults are the values used when no layer sets a key. Keys without a
// meaningful default are present with their zero value so that environment
// overrides are picked up for them too.
var Defaults = map[string]any{
	"skeleton_source":       "hosted-repo",
	"source_username":       "innocode-digital",
	"source_repo":           "wp-theme-skeleton",
	"source_ref":            "",
	"source_url":            "",
	"github_pat":            "",
	"github_api_url":        "https://api.github.com",
	"credential_store":      "",
	"path":                  ".",
	"themes_dir":            "",
	"wp_version":            "",
	"repo_owner":            "innocode-digital",
	"author":                "Innocode",
	"author_uri":            "https://innocode.com/",
	"composer_repositories": []string{},
}

// Keys returns every known setting name, sorted.
func Keys() []string {
	keys := make([]string, 0, len(Defaults))
	for k := range Defaults {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// IsKey reports whether key is a known setting.
func IsKey(key string) bool {
	_, ok := Defaults[key]
	return ok
}

// Marshal renders the settings as TOML. The token is redacted unless
// showSecrets is set.
func (s *Settings) Marshal(showSecrets bool) ([]byte, error) {
	out := *s
	if !showSecrets && out.GitHubPAT != "" {
		out.GitHubPAT = "<redacted>"
	}
	return toml.Marshal(out)
}

// GlobalConfigDir returns the path to ~/.scaffold-theme, creating it if
// necessary.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	dir := filepath.Join(home, GlobalDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}

// GlobalConfigPath returns ~/.scaffold-theme/config.toml without creating
// anything.
func GlobalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, GlobalDirName, GlobalFileName), nil
}

// SetGlobal persists key=value to the global config file.
func SetGlobal(key, value string) (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, GlobalFileName)
	return path, setInFile(path, key, value)
}

// setInFile updates one key of a TOML config file, keeping the others.
func setInFile(path, key, value string) error {
	if !IsKey(key) {
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Keys(), ", "))
	}

	values := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("reading %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if _, isList := Defaults[key].([]string); isList {
		values[key] = splitList(value)
	} else {
		values[key] = value
	}

	out, err := toml.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func splitList(value string) []string {
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
