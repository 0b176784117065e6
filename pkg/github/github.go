// Package github is a small client for the parts of the GitHub REST API the
// scaffolder needs: token verification, the authenticated user's profile and
// repository archive downloads.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const (
	// DefaultBaseURL is the public GitHub API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultUserAgent is sent when no WithUserAgent option is given.
	DefaultUserAgent = "scaffold-theme"

	// maxJSONResponseBytes caps decoded API responses at 10 MB.
	maxJSONResponseBytes = 10 << 20
)

// Archive formats accepted by Archive.
const (
	Zipball = "zipball"
	Tarball = "tarball"
)

// ErrUnauthorized matches an APIError for a rejected token.
var ErrUnauthorized = errors.New("bad credentials")

type (
	// APIError is a non-2xx response from the API.
	APIError struct {
		StatusCode int
		Message    string
	}

	// RateLimitError is returned when the quota reported in X-RateLimit-*
	// headers is exhausted.
	RateLimitError struct {
		Limit     int
		Remaining int
		ResetAt   time.Time
	}

	Client struct {
		httpClient *http.Client
		baseURL    string
		token      string
		userAgent  string
	}

	// Option configures a Client during construction.
	Option func(*Client)
)

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("GitHub API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("GitHub API returned status %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04 UTC"))
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Client) {
		g.httpClient = c
	}
}

// WithBaseURL overrides the API base URL, for GitHub Enterprise or test servers.
func WithBaseURL(base string) Option {
	return func(g *Client) {
		if base != "" {
			g.baseURL = strings.TrimRight(base, "/")
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(g *Client) {
		g.userAgent = ua
	}
}

// New creates a Client. Defaults: DefaultBaseURL, DefaultUserAgent and a
// go-cleanhttp client that does not share global transport state.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: cleanhttp.DefaultClient(),
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL in use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Authenticate installs token and verifies it against /rate_limit, which
// does not count against the quota. A rejected token is reported as an
// error matching ErrUnauthorized and is not kept.
func (c *Client) Authenticate(ctx context.Context, token string) error {
	c.token = token

	resp, err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/rate_limit")
	if err != nil {
		c.token = ""
		return fmt.Errorf("verifying token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkResponse(resp); err != nil {
		c.token = ""
		return fmt.Errorf("verifying token: %w", err)
	}
	return nil
}

// CurrentUser fetches the authenticated user's profile as a generic map so
// callers can tell absent fields from null ones.
func (c *Client) CurrentUser(ctx context.Context) (map[string]any, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/user")
	if err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}

	user := map[string]any{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&user); err != nil {
		return nil, fmt.Errorf("fetching current user: decoding response: %w", err)
	}
	return user, nil
}

// Archive streams a repository archive into w and returns the number of
// bytes written. An empty ref selects the default branch. The API answers
// with a redirect to codeload, which the HTTP client follows.
func (c *Client) Archive(ctx context.Context, owner, repo, format, ref string, w io.Writer) (int64, error) {
	if format == "" {
		format = Zipball
	}

	reqURL := fmt.Sprintf("%s/repos/%s/%s/%s", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), format)
	if ref != "" {
		reqURL += "/" + url.PathEscape(ref)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, reqURL)
	if err != nil {
		return 0, fmt.Errorf("downloading %s/%s %s: %w", owner, repo, format, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkResponse(resp); err != nil {
		return 0, fmt.Errorf("downloading %s/%s %s: %w", owner, repo, format, err)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("downloading %s/%s %s: %w", owner, repo, format, err)
	}
	return n, nil
}

func (c *Client) doRequest(ctx context.Context, method, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}

// checkResponse turns a non-2xx response into a RateLimitError or APIError.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		if err := checkRateLimit(resp); err != nil {
			return err
		}
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&body); err == nil {
		apiErr.Message = body.Message
	}
	return apiErr
}

// checkRateLimit reports a RateLimitError when X-RateLimit-Remaining is zero.
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}

	rem, err := strconv.Atoi(remaining)
	if err != nil || rem > 0 {
		return nil
	}

	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)

	return &RateLimitError{
		Limit:     limit,
		Remaining: 0,
		ResetAt:   time.Unix(resetUnix, 0),
	}
}
