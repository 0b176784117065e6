package scaffold

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/innocode-digital/scaffold-theme/pkg/config"
)

// ErrInvalidSlug is returned for a slug that cannot name a theme directory.
var ErrInvalidSlug = errors.New("invalid theme slug specified: theme slugs can only contain letters, numbers, underscores and hyphens, and can only start with a letter or underscore")

var slugPattern = regexp.MustCompile(`(?i)^[a-z_]\w+$`)

// DefaultVersion is the version a new theme starts at.
const DefaultVersion = "1.0.0"

// ValidateSlug checks slug with hyphens treated as underscores.
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(strings.ReplaceAll(slug, "-", "_")) {
		return ErrInvalidSlug
	}
	return nil
}

// Defaults fill theme values the caller left empty.
type Defaults struct {
	Author    string
	AuthorURI string
	// RepoOwner prefixes a repo given without an owner and is added to the
	// keywords.
	RepoOwner string
	WPVersion string
}

// Theme is the fully resolved data written into a new theme.
type Theme struct {
	Slug        string
	Name        string
	Version     string
	Description string
	Author      string
	AuthorURI   string
	TextDomain  string
	Repo        string
	WPVersion   string

	URI      string
	Readme   string
	Issues   string
	Keywords []string
}

// NewTheme validates slug and resolves every value of the theme.
func NewTheme(slug string, vals config.ThemeValues, d Defaults) (*Theme, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}

	vals = config.ThemeValues{
		Name:       ucfirst(slug),
		Version:    DefaultVersion,
		Author:     d.Author,
		AuthorURI:  d.AuthorURI,
		TextDomain: slug,
		Repo:       slug,
	}.Merge(vals)

	repo := vals.Repo
	if !strings.Contains(repo, "/") && d.RepoOwner != "" {
		repo = d.RepoOwner + "/" + repo
	}
	uri := "https://github.com/" + repo

	keywords := []string{"wordpress", "wp", "theme", "wordpress-theme", "wp-theme", slug}
	if d.RepoOwner != "" {
		keywords = append(keywords, d.RepoOwner)
	}

	return &Theme{
		Slug:        slug,
		Name:        vals.Name,
		Version:     vals.Version,
		Description: vals.Description,
		Author:      vals.Author,
		AuthorURI:   vals.AuthorURI,
		TextDomain:  vals.TextDomain,
		Repo:        repo,
		WPVersion:   d.WPVersion,
		URI:         uri,
		Readme:      uri + "#readme",
		Issues:      uri + "/issues",
		Keywords:    keywords,
	}, nil
}

// Tags is the keyword list as written to the style.css header.
func (t *Theme) Tags() string {
	return strings.Join(t.Keywords, ", ")
}

func ucfirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
