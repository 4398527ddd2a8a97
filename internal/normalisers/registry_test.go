package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

type stubNormaliser struct {
	name     string
	types    []string
	priority int
}

func (s *stubNormaliser) SupportedMIMETypes() []string { return s.types }
func (s *stubNormaliser) Priority() int                { return s.priority }
func (s *stubNormaliser) Normalise(_ context.Context, raw *domain.RawContent) (*domain.Extraction, error) {
	return &domain.Extraction{Text: string(raw.Data), Title: s.name}, nil
}

func TestRegistry_PicksHighestPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{name: "fallback", types: []string{"text/plain"}, priority: 5})
	r.Register(&stubNormaliser{name: "special", types: []string{"text/plain", "text/x-special"}, priority: 70})
	r.Register(&stubNormaliser{name: "second", types: []string{"text/plain"}, priority: 70})

	out, err := r.Normalise(context.Background(), &domain.RawContent{MIMEType: "Text/Plain; charset=utf-8", Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "special", out.Title)

	assert.Equal(t, []string{"text/plain", "text/x-special"}, r.SupportedMIMETypes())
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()

	_, err := r.Normalise(context.Background(), &domain.RawContent{Name: "a.bin", MIMEType: "application/octet-stream"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = r.Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewDefaultRegistry(t *testing.T) {
	types := NewDefaultRegistry().SupportedMIMETypes()
	for _, ft := range fileTypes {
		assert.Contains(t, types, ft.mime)
	}
}
