package web

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/normalisers/html"
	"github.com/custodia-labs/ragdesk/internal/normalisers/textutil"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser extracts the main article of a fetched page with readability,
// dropping navigation and boilerplate. Pages readability cannot parse fall
// back to plain tag stripping.
type Normaliser struct{}

// New creates a readability normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority is above the generic HTML normaliser.
func (n *Normaliser) Priority() int {
	return 60
}

// Normalise returns the article text. The page URL is taken from raw.URI.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawContent) (*domain.Extraction, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	pageURL, err := url.Parse(raw.URI)
	if err != nil {
		pageURL = &url.URL{}
	}
	meta := textutil.Metadata(raw, "html")

	article, err := readability.FromReader(bytes.NewReader(raw.Data), pageURL)
	text := ""
	if err == nil {
		text = textutil.Tidy(article.TextContent)
	} else {
		logger.Debug("readability failed for %s: %v", raw.URI, err)
	}

	title := ""
	if err == nil {
		title = strings.TrimSpace(article.Title)
		if v := strings.TrimSpace(article.Byline); v != "" {
			meta["byline"] = v
		}
		if v := strings.TrimSpace(article.SiteName); v != "" {
			meta["site_name"] = v
		}
		if v := strings.TrimSpace(article.Excerpt); v != "" {
			meta["excerpt"] = v
		}
	}

	if text == "" {
		text = html.Strip(string(raw.Data))
	}
	if title == "" {
		title = html.Title(string(raw.Data))
	}
	if title == "" {
		title = raw.URI
	}

	return &domain.Extraction{
		Text:     text,
		Title:    title,
		Metadata: meta,
	}, nil
}
