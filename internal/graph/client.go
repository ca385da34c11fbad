// Package graph is a small Microsoft Graph REST client with bearer
// authentication and bounded retry on transient statuses.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/jun/drivegate/internal/auth"
)

const (
	// MaxAttempts bounds the number of tries for one request.
	MaxAttempts = 5
	// DefaultRetryStep is multiplied by the attempt number to get the wait.
	DefaultRetryStep = 1500 * time.Millisecond
	// RequestTimeout is the per-call network timeout.
	RequestTimeout = 60 * time.Second
)

// TokenSource supplies a valid bearer token. It is asked on every attempt.
type TokenSource interface {
	Token(ctx context.Context) (auth.Token, error)
}

// Client issues authenticated requests against the Graph API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	retryStep  time.Duration
	logger     hclog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryStep sets the linear backoff step.
func WithRetryStep(d time.Duration) Option {
	return func(c *Client) { c.retryStep = d }
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client rooted at baseURL (e.g. https://graph.microsoft.com/v1.0).
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: RequestTimeout},
		retryStep:  DefaultRetryStep,
		logger:     hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client resolves relative URLs against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends one logical request. Relative URLs are joined onto the base URL,
// absolute ones (continuation links) are used verbatim. On a 2xx response the
// caller owns the body. Transient statuses are retried; any other failure
// status is returned as *RemoteError.
func (c *Client) Do(ctx context.Context, method, rawURL string, params url.Values, body any) (*http.Response, error) {
	target, err := c.resolve(rawURL, params)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var resp *http.Response
	attempt := 0
	op := func() error {
		attempt++
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+tok.Value)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("graph %s %s: %w", method, target, err))
		}
		if res.StatusCode >= 200 && res.StatusCode < 300 {
			resp = res
			return nil
		}

		remoteErr := newRemoteError(res)
		if retryable(res.StatusCode) {
			return remoteErr
		}
		return backoff.Permanent(remoteErr)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(&linearBackOff{step: c.retryStep}, MaxAttempts-1), ctx)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("transient graph failure, retrying", "method", method, "url", target, "attempt", attempt, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetJSON performs a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, rawURL, params, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode graph response: %w", err)
	}
	return nil
}

// GetContent performs a GET and returns the raw response body.
func (c *Client) GetContent(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, rawURL, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	return data, nil
}

// PostJSON sends body as JSON and decodes the response into out (if non-nil).
func (c *Client) PostJSON(ctx context.Context, rawURL string, body, out any) error {
	resp, err := c.Do(ctx, http.MethodPost, rawURL, nil, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode graph response: %w", err)
	}
	return nil
}

func (c *Client) resolve(rawURL string, params url.Values) (string, error) {
	full := rawURL
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		full = c.baseURL + "/" + strings.TrimLeft(rawURL, "/")
	}
	if len(params) == 0 {
		return full, nil
	}

	u, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("invalid graph url %q: %w", full, err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// linearBackOff waits step, 2*step, 3*step, ... between attempts.
type linearBackOff struct {
	step    time.Duration
	retries int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.retries++
	return time.Duration(b.retries) * b.step
}

func (b *linearBackOff) Reset() {
	b.retries = 0
}
