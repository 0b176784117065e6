// Package credential discovers the bearer token used for the GitHub API.
//
// Lookup order: an explicit override (flag, environment or config), then
// composer's per-user auth store (~/.composer/auth.json, github-oauth
// section). Finding nothing is not an error; callers proceed anonymously.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
)

// DefaultDomain is the key looked up in the github-oauth section.
const DefaultDomain = "github.com"

// StoreFile is the credential store location relative to the home directory.
var StoreFile = filepath.Join(".composer", "auth.json")

type Discoverer struct {
	// Override wins over the store when non-empty.
	Override string
	// StorePath is the auth.json path. Empty skips the store lookup.
	StorePath string
	// Domain defaults to DefaultDomain.
	Domain string
}

// Discover returns the first credential found, or "" when there is none.
// A malformed store file is reported as an error.
func (d Discoverer) Discover() (string, error) {
	if token := strings.TrimSpace(d.Override); token != "" {
		return token, nil
	}
	if d.StorePath == "" {
		return "", nil
	}

	domain := d.Domain
	if domain == "" {
		domain = DefaultDomain
	}
	return ReadStore(d.StorePath, domain)
}

// ReadStore returns github-oauth[domain] from a composer auth.json file.
func ReadStore(path, domain string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading credential store %s: %w", path, err)
	}

	var auth struct {
		GitHubOAuth map[string]any `json:"github-oauth"`
	}
	if err := json.Unmarshal(data, &auth); err != nil {
		return "", fmt.Errorf("parsing credential store %s: %w", path, err)
	}

	return strings.TrimSpace(cast.ToString(auth.GitHubOAuth[domain])), nil
}

// HomeDir resolves the user's home from the environment: HOME, else
// HOMEDRIVE joined with HOMEPATH when both are set, else "".
func HomeDir(getenv func(string) string) string {
	if home := getenv("HOME"); home != "" {
		return home
	}
	drive, path := getenv("HOMEDRIVE"), getenv("HOMEPATH")
	if drive != "" && path != "" {
		return drive + path
	}
	return ""
}

// DefaultStorePath returns <home>/.composer/auth.json, or "" without a home.
func DefaultStorePath(getenv func(string) string) string {
	home := HomeDir(getenv)
	if home == "" {
		return ""
	}
	return filepath.Join(home, StoreFile)
}
