// Package jsonapi is the HTTP client shared by the embedding, LLM and
// Qdrant adapters. Requests are throttled by a ratelimit.Limiter, failures
// are classified with apierr and bodies are exchanged as JSON.
package jsonapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/apierr"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// Config configures a Client.
type Config struct {
	// Provider names the remote service in error messages.
	Provider string

	// BaseURL is prefixed to every request path. A trailing slash is dropped.
	BaseURL string

	// Timeout bounds each request, including reading the body.
	Timeout time.Duration

	// Headers are sent with every request.
	Headers map[string]string

	// RateLimit throttles Post and Send. Nil disables throttling.
	RateLimit *ratelimit.Config
}

// Client talks JSON to one provider.
type Client struct {
	provider string
	baseURL  string
	headers  http.Header
	http     *http.Client
	limiter  *ratelimit.Limiter
}

// New creates a client for cfg.
func New(cfg Config) *Client {
	headers := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}

	c := &Client{
		provider: cfg.Provider,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		headers:  headers,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RateLimit != nil {
		c.limiter = ratelimit.New(*cfg.RateLimit)
	}
	return c
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Limiter returns the client's limiter, nil when unthrottled.
func (c *Client) Limiter() *ratelimit.Limiter { return c.limiter }

// Post sends in as a JSON body to path and decodes the response into out.
// out may be nil when the body is not needed.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Send(ctx, http.MethodPost, path, in, out)
}

// Send is Post for any method. A nil in sends no body.
func (c *Client) Send(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.provider, err)
		}
		body = bytes.NewReader(data)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s rate limit wait: %w", domain.ErrProviderUnavailable, c.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// Get fetches path and decodes the response into out, which may be nil.
// Health checks use it, so it is not throttled.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	return c.do(req, out)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) do(req *http.Request, out any) error {
	for k, v := range c.headers {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apierr.Transport(c.provider, err)
	}
	defer resp.Body.Close()

	c.limiter.Observe(resp)
	if err := apierr.Status(c.provider, resp); err != nil {
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %w", domain.ErrProviderUnavailable, c.provider, err)
	}
	return nil
}
