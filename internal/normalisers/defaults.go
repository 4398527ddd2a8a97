package normalisers

import (
	"github.com/custodia-labs/ragdesk/internal/normalisers/csv"
	"github.com/custodia-labs/ragdesk/internal/normalisers/docx"
	"github.com/custodia-labs/ragdesk/internal/normalisers/eml"
	"github.com/custodia-labs/ragdesk/internal/normalisers/html"
	"github.com/custodia-labs/ragdesk/internal/normalisers/jsondoc"
	"github.com/custodia-labs/ragdesk/internal/normalisers/markdown"
	"github.com/custodia-labs/ragdesk/internal/normalisers/pdf"
	"github.com/custodia-labs/ragdesk/internal/normalisers/plaintext"
)

// RegisterDefaults registers all built-in file normalisers.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(jsondoc.New())
	r.Register(csv.New())
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(eml.New())
}

// NewDefaultRegistry returns a registry with the built-in normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
