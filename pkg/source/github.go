package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/cast"

	"github.com/innocode-digital/scaffold-theme/pkg/credential"
	"github.com/innocode-digital/scaffold-theme/pkg/github"
	"github.com/innocode-digital/scaffold-theme/pkg/packager"
	"github.com/innocode-digital/scaffold-theme/pkg/progress"
)

// GitHubSource fetches the zipball of a GitHub repository.
type GitHubSource struct {
	Owner string
	Repo  string
	Ref   string

	client *github.Client
	logger *log.Logger

	archiveOnce sync.Once
	archive     []byte
	archiveErr  error

	userOnce sync.Once
	user     map[string]any
}

var (
	_ ArchiveSource  = &GitHubSource{}
	_ PackagerSource = &GitHubSource{}
)

// NewGitHubSource discovers a credential and, when one is found, verifies it
// with the API before returning. A rejected credential is an error wrapping
// ErrAuthentication; having no credential at all is not.
func NewGitHubSource(ctx context.Context, owner, repo string, opts ...Option) (*GitHubSource, error) {
	o := newOptions(opts)

	clientOpts := []github.Option{github.WithBaseURL(o.apiURL)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, github.WithHTTPClient(o.httpClient))
	}

	g := &GitHubSource{
		Owner:  owner,
		Repo:   repo,
		Ref:    o.ref,
		client: github.New(clientOpts...),
		logger: o.logger,
	}

	token, err := credential.Discoverer{Override: o.token, StorePath: o.credentialStore}.Discover()
	if err != nil {
		return nil, fmt.Errorf("discovering GitHub credential: %w", err)
	}

	if token == "" {
		g.logger.Debug("no GitHub credential found, continuing anonymously")
		return g, nil
	}

	if err := g.client.Authenticate(ctx, token); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	g.logger.Debug("authenticated with GitHub", "api", g.client.BaseURL())

	return g, nil
}

// Archive downloads the repository zipball on first use. The bytes, or the
// error, are cached for the lifetime of the source.
func (g *GitHubSource) Archive(ctx context.Context) ([]byte, error) {
	g.archiveOnce.Do(func() {
		g.logger.Debug("downloading skeleton", "owner", g.Owner, "repo", g.Repo, "ref", g.Ref)

		var buf bytes.Buffer
		bar := progress.Bytes(ctx, -1, fmt.Sprintf("Downloading %s/%s", g.Owner, g.Repo))
		_, err := g.client.Archive(ctx, g.Owner, g.Repo, github.Zipball, g.Ref, io.MultiWriter(&buf, bar))
		_ = bar.Close()
		if err != nil {
			g.archiveErr = fmt.Errorf("fetching %s/%s: %w", g.Owner, g.Repo, err)
			return
		}
		g.archive = buf.Bytes()
	})
	return g.archive, g.archiveErr
}

// CurrentUser returns the authenticated caller's profile, fetched once. A
// failed fetch is logged and cached as an empty profile.
func (g *GitHubSource) CurrentUser(ctx context.Context) map[string]any {
	g.userOnce.Do(func() {
		user, err := g.client.CurrentUser(ctx)
		if err != nil {
			g.logger.Warn("could not fetch GitHub profile", "err", err)
			user = map[string]any{}
		}
		g.user = user
	})
	return g.user
}

// CreatePackager builds a packager from the caller's profile. Only fields
// present and non-null in the profile are applied. The homepage is the
// profile's blog when set, otherwise its GitHub page.
func (g *GitHubSource) CreatePackager(ctx context.Context) *packager.Packager {
	user := g.CurrentUser(ctx)
	p := packager.New()

	if v, ok := user["name"]; ok && v != nil {
		p.SetName(cast.ToString(v))
	}
	if v, ok := user["email"]; ok && v != nil {
		p.SetEmail(cast.ToString(v))
	}

	if blog := strings.TrimSpace(cast.ToString(user["blog"])); blog != "" {
		p.SetURL(blog)
	} else if v, ok := user["html_url"]; ok && v != nil {
		p.SetURL(cast.ToString(v))
	}

	return p
}
