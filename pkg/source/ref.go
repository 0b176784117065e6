package source

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ParseRef parses the --skeleton shorthand into a source Config. Local
// filesystem paths (./, ../, ~ or absolute) and http(s)/file URLs produce a
// URL source. Everything else is a GitHub reference of the form
// owner/repo[@ref].
func ParseRef(ref string) (Config, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Config{}, fmt.Errorf("empty skeleton reference")
	}

	if isLocalPath(ref) || strings.HasPrefix(ref, "~") || hasURLScheme(ref) {
		return Config{Kind: KindURL, URL: ref}, nil
	}

	pathPart, gitRef, hasRef := strings.Cut(ref, "@")
	if hasRef && gitRef == "" {
		return Config{}, fmt.Errorf("invalid skeleton reference %q: empty ref after @", ref)
	}

	segments := strings.Split(pathPart, "/")
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return Config{}, fmt.Errorf("invalid skeleton reference %q: must be owner/repo[@ref]", ref)
	}

	return Config{
		Kind:     KindHostedRepo,
		Username: segments[0],
		Repo:     strings.TrimSuffix(segments[1], ".git"),
		Ref:      gitRef,
	}, nil
}

// isLocalPath reports whether ref looks like a local filesystem path.
func isLocalPath(ref string) bool {
	return strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") || filepath.IsAbs(ref)
}

func hasURLScheme(ref string) bool {
	lower := strings.ToLower(ref)
	for _, scheme := range []string{"http://", "https://", "file://"} {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
