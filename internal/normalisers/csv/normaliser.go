// Package csv renders delimited tables as one line of "column: value"
// pairs per row, so each chunk keeps the header context of its values.
package csv

import (
	"bytes"
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/normalisers/textutil"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles CSV and TSV tables.
type Normaliser struct{}

// New creates a new CSV normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/csv", "text/tab-separated-values"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise treats the first record as the header. Empty cells are left out.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawContent) (*domain.Extraction, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	r := stdcsv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw.Data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	if raw.MIMEType == "text/tab-separated-values" {
		r.Comma = '\t'
	}

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &domain.Extraction{
			Title:    textutil.TitleFromName(raw.Name),
			Metadata: textutil.Metadata(raw, "csv"),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, raw.Name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var lines []string
	rows := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, raw.Name, err)
		}
		rows++

		pairs := make([]string, 0, len(record))
		for i, cell := range record {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			col := fmt.Sprintf("column %d", i+1)
			if i < len(header) && header[i] != "" {
				col = header[i]
			}
			pairs = append(pairs, col+": "+cell)
		}
		if len(pairs) > 0 {
			lines = append(lines, strings.Join(pairs, "; "))
		}
	}

	meta := textutil.Metadata(raw, "csv")
	meta["columns"] = strings.Join(header, ", ")
	meta["rows"] = rows

	return &domain.Extraction{
		Text:     strings.Join(lines, "\n"),
		Title:    textutil.TitleFromName(raw.Name),
		Metadata: meta,
	}, nil
}
