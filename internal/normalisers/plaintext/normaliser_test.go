package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func TestNormalise(t *testing.T) {
	raw := &domain.RawContent{
		Name:     "release_notes.txt",
		MIMEType: "text/plain",
		Data:     []byte("Version 2\r\n\r\n\r\n\r\nFixes the sky colour.\r\n"),
	}

	out, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "Version 2\n\nFixes the sky colour.", out.Text)
	assert.Equal(t, "release notes", out.Title)
	assert.Equal(t, "text", out.Metadata["format"])
	assert.Equal(t, "text/plain", out.Metadata["mime_type"])
}

func TestNormalise_Rejects(t *testing.T) {
	n := New()

	_, err := n.Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = n.Normalise(context.Background(), &domain.RawContent{Name: "a.bin", Data: []byte{0x7f, 'E', 'L', 'F', 0}})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestNormalise_InvalidUTF8(t *testing.T) {
	out, err := New().Normalise(context.Background(), &domain.RawContent{Name: "x.txt", Data: []byte("caf\xe9")})
	require.NoError(t, err)
	assert.Equal(t, "caf�", out.Text)
}

func TestPriorityIsFallback(t *testing.T) {
	assert.Less(t, New().Priority(), 10)
	assert.Contains(t, New().SupportedMIMETypes(), "text/plain")
}
