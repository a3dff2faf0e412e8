// Package api is the HTTP client for the document tagging service.
//
// Every request goes through Do, which attaches the bearer token, performs
// exactly one attempt and turns any failure into a single *apierr.Error. That
// error is returned to the caller and, when a Reporter is configured, handed
// to it so the user sees a notification.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/doctag/internal/apierr"
	"github.com/felixgeelhaar/doctag/internal/log"
)

// DefaultRoot is the path prefix every endpoint lives under.
const DefaultRoot = "/api/"

// TokenSource supplies the access token sent with every request.
type TokenSource interface {
	AccessToken() string
}

// Reporter receives every failure produced by the client.
type Reporter interface {
	Publish(err *apierr.Error) string
}

// Client is the tagging service API client
type Client struct {
	baseURL    string
	root       string
	httpClient *http.Client
	tokens     TokenSource
	reporter   Reporter
	logger     *log.Logger
	userAgent  string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRoot overrides the API root path (default "/api/")
func WithRoot(root string) Option {
	return func(c *Client) { c.root = root }
}

// WithTokenSource sets where the bearer token comes from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithReporter sets the sink that failures are published to
func WithReporter(r Reporter) Option {
	return func(c *Client) { c.reporter = r }
}

// WithLogger sets the client logger
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for the service at baseURL (scheme and host, e.g.
// "http://localhost:8000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		root:       DefaultRoot,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenSource swaps the token source after construction. The session
// store depends on the client, so the two are wired in two steps.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// SetReporter swaps the failure sink after construction.
func (c *Client) SetReporter(r Reporter) {
	c.reporter = r
}

// URL returns the absolute URL for an endpoint path. A leading "/" on path
// is ignored.
func (c *Client) URL(path string) string {
	path = strings.TrimPrefix(path, "/")
	root := "/" + strings.Trim(c.root, "/") + "/"
	if root == "//" {
		root = "/"
	}
	return c.baseURL + root + path
}

type requestConfig struct {
	headers http.Header
}

// RequestOption customizes a single request
type RequestOption func(*requestConfig)

// WithHeader sets (or overrides) a request header
func WithHeader(key, value string) RequestOption {
	return func(rc *requestConfig) {
		rc.headers.Set(key, value)
	}
}

// Do performs one request and decodes a successful payload into T.
//
// Failures are always *apierr.Error.
func Do[T any](ctx context.Context, c *Client, method, path string, body any, opts ...RequestOption) (T, error) {
	var zero T

	raw, apiErr := c.do(ctx, method, path, body, opts)
	if apiErr != nil {
		return zero, c.fail(ctx, apiErr)
	}

	out, err := apierr.Decode[T](raw)
	if err != nil {
		return zero, c.fail(ctx, apierr.FromStatus(c.URL(path), http.StatusOK, "", err))
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, opts []RequestOption) ([]byte, *apierr.Error) {
	url := c.URL(path)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, apierr.FromTransport(url, fmt.Errorf("failed to marshal request body: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, apierr.FromTransport(url, fmt.Errorf("failed to create request: %w", err))
	}

	rc := requestConfig{headers: c.defaultHeaders()}
	for _, opt := range opts {
		opt(&rc)
	}
	req.Header = rc.headers

	c.logger.DebugContext(ctx, "api request", "method", method, "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierr.FromTransport(url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.FromStatus(url, resp.StatusCode, resp.Status, err)
	}

	payload, apiErr := apierr.FromResponse(url, resp.StatusCode, resp.Status, data)
	if apiErr != nil {
		return nil, apiErr
	}
	return payload, nil
}

func (c *Client) defaultHeaders() http.Header {
	token := ""
	if c.tokens != nil {
		token = c.tokens.AccessToken()
	}
	h := make(http.Header)
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+token)
	if c.userAgent != "" {
		h.Set("User-Agent", c.userAgent)
	}
	return h
}

func (c *Client) fail(ctx context.Context, apiErr *apierr.Error) error {
	if c.reporter != nil {
		c.reporter.Publish(apiErr)
	}
	c.logger.WithError(apiErr).DebugContext(ctx, "api request failed")
	return apiErr
}
