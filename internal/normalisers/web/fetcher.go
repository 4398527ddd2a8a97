// Package web fetches web pages and extracts their main article text.
package web

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/apierr"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// Default configuration values.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxBytes  = 10 << 20
	DefaultUserAgent = "ragdesk/1.0 (+https://github.com/custodia-labs/ragdesk)"
)

const provider = "web"

// Config holds configuration for the fetcher.
type Config struct {
	// Timeout bounds the whole request (default: 30s).
	Timeout time.Duration

	// MaxBytes caps the response body (default: 10 MiB).
	MaxBytes int64

	// UserAgent is sent with every request.
	UserAgent string
}

// Fetcher downloads pages over HTTP(S).
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// NewFetcher creates a fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
	}
}

// Fetch downloads rawURL. Only http and https are accepted. A 4xx answer
// is ErrInvalidInput; transport failures and 5xx are ErrProviderUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.RawContent, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an http(s) URL", domain.ErrInvalidInput, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apierr.Transport(provider, err)
	}
	defer resp.Body.Close()

	if err := apierr.Status(provider, resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrProviderUnavailable, u, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", domain.ErrInvalidInput, u, f.maxBytes)
	}

	mediaType := "text/html"
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			mediaType = mt
		}
	}

	return &domain.RawContent{
		Name:     resp.Request.URL.String(),
		MIMEType: mediaType,
		URI:      resp.Request.URL.String(),
		Data:     data,
		Metadata: map[string]any{},
	}, nil
}

// Close releases idle connections.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
