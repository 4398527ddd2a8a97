// Package jsondoc extracts the text values of JSON documents.
package jsondoc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/normalisers/textutil"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles JSON documents.
type Normaliser struct{}

// New creates a new JSON normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/json", "application/ld+json"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise flattens the document into "path: value" lines, with object
// keys sorted so the output is stable. A top-level "title" or "name" string
// becomes the title.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawContent) (*domain.Extraction, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %s is not valid JSON: %w", domain.ErrInvalidInput, raw.Name, err)
	}

	var lines []string
	flatten("", v, &lines)

	title := textutil.TitleFromName(raw.Name)
	if obj, ok := v.(map[string]any); ok {
		for _, key := range []string{"title", "name"} {
			if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
				title = strings.TrimSpace(s)
				break
			}
		}
	}

	return &domain.Extraction{
		Text:     strings.Join(lines, "\n"),
		Title:    title,
		Metadata: textutil.Metadata(raw, "json"),
	}, nil
}

func flatten(path string, v any, lines *[]string) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			flatten(join(path, k), t[k], lines)
		}
	case []any:
		for i, item := range t {
			flatten(path+"["+strconv.Itoa(i)+"]", item, lines)
		}
	case nil:
	default:
		value := strings.TrimSpace(fmt.Sprint(t))
		if value == "" {
			return
		}
		if path == "" {
			*lines = append(*lines, value)
			return
		}
		*lines = append(*lines, path+": "+value)
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
