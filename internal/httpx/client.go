// Package httpx is the small retrying HTTP helper shared by the remote kv
// backends.
package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryPolicy controls retries of transient failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64
}

// DefaultRetryPolicy retries three times starting at 250ms.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	BaseDelay:  250 * time.Millisecond,
	MaxDelay:   2 * time.Second,
	Jitter:     0.25,
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client issues requests relative to a base URL.
type Client struct {
	base    *url.URL
	http    *http.Client
	headers http.Header
	policy  RetryPolicy
	log     logrus.FieldLogger
}

// Request describes one call. Body is replayed on every attempt.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Header  http.Header
	Body    []byte
	NoRetry bool
}

// NewClient creates a Client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("httpx: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("httpx: invalid base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("httpx: base URL %q must be absolute", baseURL)
	}

	c := &Client{
		base:    parsed,
		http:    &http.Client{Timeout: 10 * time.Second},
		headers: make(http.Header),
		policy:  DefaultRetryPolicy,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.MaxRetries < 0 {
		c.policy.MaxRetries = 0
	}
	if c.policy.BaseDelay <= 0 {
		c.policy.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if c.policy.MaxDelay <= 0 {
		c.policy.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	return c, nil
}

// Do executes req, retrying transport errors and retryable statuses. A
// non-2xx final response is returned as *HTTPError with the body consumed.
func (c *Client) Do(ctx context.Context, req *Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("httpx: request is nil")
	}
	if req.Method == "" {
		return nil, errors.New("httpx: HTTP method is required")
	}

	target := c.resolve(req.Path, req.Query)
	b := newBackoff(c.policy)

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := c.once(ctx, req, target)
		if err == nil {
			return resp, nil
		}
		if !c.retryable(req, attempt, err) {
			return nil, err
		}

		wait := b.delay(attempt)
		c.log.WithFields(logrus.Fields{
			"method":  req.Method,
			"url":     target,
			"attempt": attempt + 1,
			"wait":    wait,
		}).WithError(err).Debug("retrying request")

		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (c *Client) once(ctx context.Context, req *Request, target string) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header = c.headers.Clone()
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		data, readErr := ReadAllAndClose(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("httpx: read error body: %w", readErr)
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: data}
	}
	return resp, nil
}

func (c *Client) retryable(req *Request, attempt int, err error) bool {
	if req.NoRetry || attempt >= c.policy.MaxRetries {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return true
}

func (c *Client) resolve(path string, q url.Values) string {
	ref := &url.URL{Path: strings.TrimPrefix(path, "/")}
	if len(q) > 0 {
		ref.RawQuery = q.Encode()
	}
	base := *c.base
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(ref).String()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ReadAllAndClose drains rc and closes it.
func ReadAllAndClose(rc io.ReadCloser) ([]byte, error) {
	if rc == nil {
		return nil, nil
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
