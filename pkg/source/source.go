// Package source acquires the skeleton theme archive. A source is either a
// GitHub repository (which also knows who the caller is and can attribute
// the generated theme to them) or a plain URL.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/innocode-digital/scaffold-theme/pkg/packager"
)

// Kind selects the source variant.
type Kind string

const (
	KindHostedRepo Kind = "hosted-repo"
	KindURL        Kind = "url"
)

// Defaults for the hosted skeleton repository.
const (
	DefaultUsername = "innocode-digital"
	DefaultRepo     = "wp-theme-skeleton"
)

var (
	// ErrAuthentication wraps a credential the API rejected.
	ErrAuthentication = errors.New("authentication failed")
	// ErrMissingURL is returned when a URL source has no URL configured.
	ErrMissingURL = errors.New("no skeleton source URL configured")
)

// ArchiveSource yields the raw bytes of a skeleton archive. Implementations
// fetch at most once; later calls return the cached result.
type ArchiveSource interface {
	Archive(ctx context.Context) ([]byte, error)
}

// PackagerSource is implemented by sources that can attribute the generated
// theme to the caller.
type PackagerSource interface {
	CreatePackager(ctx context.Context) *packager.Packager
}

// Config describes which source to build and how.
type Config struct {
	Kind Kind

	// hosted repository
	Username        string
	Repo            string
	Ref             string
	Token           string // overrides credential discovery
	CredentialStore string
	APIURL          string

	// direct URL
	URL string

	HTTPClient *http.Client
	Logger     *log.Logger
}

// ParseKind maps a configured source name to a Kind. Empty and the GitHub
// aliases select the hosted repository; anything else is a URL source.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(KindHostedRepo), "github", "hosted_repo":
		return KindHostedRepo
	default:
		return KindURL
	}
}

// New builds the source selected by cfg.Kind.
func New(ctx context.Context, cfg Config) (ArchiveSource, error) {
	opts := []Option{WithLogger(cfg.Logger)}
	if cfg.HTTPClient != nil {
		opts = append(opts, WithHTTPClient(cfg.HTTPClient))
	}

	if ParseKind(string(cfg.Kind)) == KindHostedRepo {
		username := cfg.Username
		if username == "" {
			username = DefaultUsername
		}
		repo := cfg.Repo
		if repo == "" {
			repo = DefaultRepo
		}

		opts = append(opts,
			WithRef(cfg.Ref),
			WithToken(cfg.Token),
			WithCredentialStore(cfg.CredentialStore),
			WithAPIURL(cfg.APIURL),
		)
		src, err := NewGitHubSource(ctx, username, repo, opts...)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("source %q: %w", cfg.Kind, ErrMissingURL)
	}
	return NewURLSource(cfg.URL, opts...), nil
}

// Option configures a source.
type Option func(*options)

type options struct {
	ref             string
	token           string
	credentialStore string
	apiURL          string
	httpClient      *http.Client
	logger          *log.Logger
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	return o
}

// WithRef pins the archive to a branch, tag or commit. Empty means the
// repository's default branch.
func WithRef(ref string) Option {
	return func(o *options) { o.ref = ref }
}

// WithToken sets an explicit credential that takes precedence over the
// credential store.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithCredentialStore sets the composer auth.json path to consult.
func WithCredentialStore(path string) Option {
	return func(o *options) { o.credentialStore = path }
}

// WithAPIURL overrides the GitHub API base URL.
func WithAPIURL(u string) Option {
	return func(o *options) { o.apiURL = u }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}
