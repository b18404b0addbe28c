// Package github is a small GitHub REST client covering what the pull
// request audit needs: listing changed files and keeping one report comment.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"aiaudit/internal/errors"
	"aiaudit/internal/slogutil"
	"aiaudit/internal/version"
)

const (
	// DefaultAPIURL is the public GitHub REST endpoint.
	DefaultAPIURL = "https://api.github.com"

	apiVersion = "2022-11-28"
	perPage    = 100
	// GitHub stops listing pull request files after 3000 entries.
	maxPages = 30
)

// Options configures a Client.
type Options struct {
	BaseURL           string
	Token             string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	Logger            *slog.Logger

	// HTTPClient replaces the transport; the token is still applied on top.
	HTTPClient *http.Client
}

// Client talks to the GitHub REST API.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a client. Requests are rate limited client-side and
// authenticated with the token when one is given.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultAPIURL
	}
	u, err := url.Parse(strings.TrimSuffix(base, "/") + "/")
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "invalid GitHub API URL", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if opts.Token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}))
	}
	if opts.Timeout > 0 {
		hc.Timeout = opts.Timeout
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	return &Client{
		http:    hc,
		baseURL: u,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}, nil
}

// apiError is the error body GitHub returns.
type apiError struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url,omitempty"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	u, err := c.baseURL.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, errors.New(errors.InputInvalid, "invalid request path", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends the request and decodes a successful JSON response into out.
func (c *Client) do(req *http.Request, out interface{}) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return errors.New(errors.ScanAborted, "request cancelled while rate limited", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return errors.New(errors.ScanAborted, "request cancelled", err)
		}
		return errors.New(errors.UpstreamUnavailable, "GitHub API request failed", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("GitHub API request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start).String(),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.New(errors.UpstreamUnavailable, "invalid GitHub API response", err)
		}
		return nil
	}
	return responseError(resp)
}

func responseError(resp *http.Response) error {
	var body apiError
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) != nil || body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}

	code := codeForStatus(resp)
	return errors.Newf(code, "GitHub API %s %s: %d %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, body.Message).
		WithDetails(map[string]interface{}{
			"status":        resp.StatusCode,
			"documentation": body.DocumentationURL,
		})
}

func codeForStatus(resp *http.Response) errors.ErrorCode {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.Unauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.RateLimited
	case resp.StatusCode == http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != "" {
			return errors.RateLimited
		}
		return errors.Unauthorized
	case resp.StatusCode == http.StatusNotFound:
		return errors.NotFound
	case resp.StatusCode >= 500:
		return errors.UpstreamUnavailable
	}
	return errors.InputInvalid
}

func pageQuery(page int) url.Values {
	return url.Values{
		"per_page": {strconv.Itoa(perPage)},
		"page":     {strconv.Itoa(page)},
	}
}
