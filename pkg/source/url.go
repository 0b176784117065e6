package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/mitchellh/go-homedir"

	"github.com/innocode-digital/scaffold-theme/pkg/progress"
)

// URLSource fetches an archive from a plain URL. HTTP(S) URLs are
// downloaded; file:// URLs and local paths are read from disk.
//
// A failed fetch is not an error: it is logged and yields an empty archive,
// which the caller rejects when it tries to decompress it.
type URLSource struct {
	URL string

	httpClient *http.Client
	logger     *log.Logger

	once    sync.Once
	archive []byte
}

var _ ArchiveSource = &URLSource{}

func NewURLSource(rawURL string, opts ...Option) *URLSource {
	o := newOptions(opts)
	client := o.httpClient
	if client == nil {
		client = cleanhttp.DefaultClient()
	}
	return &URLSource{
		URL:        strings.TrimSpace(rawURL),
		httpClient: client,
		logger:     o.logger,
	}
}

// Archive fetches the URL on first use and caches the result. It never
// returns an error.
func (u *URLSource) Archive(ctx context.Context) ([]byte, error) {
	u.once.Do(func() {
		if u.URL == "" {
			u.archive = []byte{}
			return
		}

		data, err := u.fetch(ctx)
		if err != nil {
			u.logger.Warn("could not fetch skeleton archive", "url", u.URL, "err", err)
			data = []byte{}
		}
		u.archive = data
	})
	return u.archive, nil
}

func (u *URLSource) fetch(ctx context.Context) ([]byte, error) {
	if path, ok := localPath(u.URL); ok {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", path, err)
		}
		return os.ReadFile(expanded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	bar := progress.Bytes(ctx, resp.ContentLength, "Downloading skeleton")
	_, err = io.Copy(io.MultiWriter(&buf, bar), resp.Body)
	_ = bar.Close()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// localPath reports whether raw names a file on disk and returns its path.
func localPath(raw string) (string, bool) {
	if isLocalPath(raw) || strings.HasPrefix(raw, "~") {
		return raw, true
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw, true
	}
	switch parsed.Scheme {
	case "file":
		return parsed.Path, true
	case "":
		return raw, true
	}
	return "", false
}
