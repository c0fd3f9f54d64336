// Package request implements the host's sendRequest utility.
package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/infra/auth"
)

const (
	DefaultUserAgent   = "Tapestry/1.0 (+https://github.com/CrestNiraj12/tapestry)"
	defaultMaxAttempts = 3
	maxBodyBytes       = 10 << 20
)

// Client is a thin HTTP wrapper used by connectors. It fills in defaults,
// injects bearer tokens for configured hosts and retries transient failures.
type Client struct {
	http        *http.Client
	userAgent   string
	tokens      map[string]auth.TokenProvider
	maxAttempts int
	newBackOff  func() backoff.BackOff
	maxBody     int64
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.logger = l.Named("request") } }

func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackOff replaces the retry schedule; tests use a zero backoff.
func WithBackOff(f func() backoff.BackOff) Option { return func(c *Client) { c.newBackOff = f } }

// WithToken attaches tp's token to every request sent to the host of site.
func WithToken(site string, tp auth.TokenProvider) Option {
	return func(c *Client) {
		if tp == nil {
			return
		}
		u, err := url.Parse(site)
		if err != nil || u.Host == "" {
			return
		}
		c.tokens[strings.ToLower(u.Host)] = tp
	}
}

// NewClient creates a request client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{Timeout: 30 * time.Second},
		userAgent:   DefaultUserAgent,
		tokens:      make(map[string]auth.TokenProvider),
		maxAttempts: defaultMaxAttempts,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 4 * time.Second
			return b
		},
		maxBody: maxBodyBytes,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ app.Requester = (*Client)(nil)

// SendRequest performs req and returns the body, or for HEAD a JSON object
// of the response headers.
func (c *Client) SendRequest(ctx context.Context, req app.Request) (string, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	var out string
	attempt := 0
	op := func() error {
		attempt++
		body, err := c.do(ctx, method, req)
		if err == nil {
			out = body
			return nil
		}
		if ctx.Err() != nil || errors.Is(err, ErrBodyTooLarge) {
			return backoff.Permanent(err)
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxAttempts-1)), ctx)
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("retrying request",
			zap.String("method", method),
			zap.String("url", req.URL),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return "", err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method string, req app.Request) (string, error) {
	var body io.Reader
	if req.Parameters != "" && (method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch) {
		body = strings.NewReader(req.Parameters)
	}

	hreq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	hreq.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		hreq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if tp, ok := c.tokens[strings.ToLower(hreq.URL.Host)]; ok {
		token, err := tp.AccessToken()
		if err != nil {
			return "", fmt.Errorf("auth: %w", err)
		}
		hreq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return "", fmt.Errorf("request to %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if int64(len(data)) > c.maxBody {
		return "", fmt.Errorf("%s %s: %w (limit %d bytes)", method, req.URL, ErrBodyTooLarge, c.maxBody)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Method: method, URL: req.URL, Code: resp.StatusCode, Body: string(data)}
	}

	if method == http.MethodHead {
		return headersJSON(resp.Header)
	}
	return string(data), nil
}

func headersJSON(h http.Header) (string, error) {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[strings.ToLower(k)] = v[0]
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encoding headers: %w", err)
	}
	return string(data), nil
}
