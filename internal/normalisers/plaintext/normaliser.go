// Package plaintext extracts text files as they are.
package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/normalisers/textutil"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text and source files.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/x-go",
		"text/x-python",
		"text/x-shellscript",
		"text/x-sql",
		"text/yaml",
		"text/toml",
		"text/javascript",
		"text/typescript",
		"text/css",
		"application/xml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise returns the text unchanged apart from line endings.
// Content containing NUL bytes is treated as binary and rejected.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawContent) (*domain.Extraction, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if bytes.IndexByte(raw.Data, 0) >= 0 {
		return nil, fmt.Errorf("%w: %s looks like a binary file", domain.ErrUnsupportedType, raw.Name)
	}

	text := string(raw.Data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}

	return &domain.Extraction{
		Text:     textutil.Tidy(text),
		Title:    textutil.TitleFromName(raw.Name),
		Metadata: textutil.Metadata(raw, "text"),
	}, nil
}
