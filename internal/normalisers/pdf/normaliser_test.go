package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	args   []string
}

func (m *mockRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	m.args = args
	return m.output, m.err
}

// buildPDF writes a minimal PDF with one content stream per page.
func buildPDF(t *testing.T, title string, pages ...string) []byte {
	t.Helper()

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}
	info := "<< /Producer (ragdesk test) >>"
	if title != "" {
		info = fmt.Sprintf("<< /Title (%s) /Author (Ops Team) >>", title)
	}

	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		info,
	}
	for i, content := range pages {
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 6+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 4 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func withoutPDFToText(n *Normaliser) *Normaliser {
	n.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	return n
}

func TestNormalise_BuiltinParser(t *testing.T) {
	data := buildPDF(t, "Staff Handbook",
		"BT /F1 12 Tf 72 720 Td (Employee Handbook) Tj 0 -14 Td (Holidays: 25 days) Tj ET",
		"BT /F1 12 Tf [(Re) 10 (mote) -250 (work)] TJ ET",
	)

	out, err := withoutPDFToText(New()).Normalise(context.Background(), &domain.RawContent{
		Name:     "handbook.pdf",
		MIMEType: "application/pdf",
		Data:     data,
	})
	require.NoError(t, err)

	assert.Equal(t, "Employee Handbook\nHolidays: 25 days\n\nRemote work", out.Text)
	assert.Equal(t, "Staff Handbook", out.Title)
	assert.Equal(t, 2, out.Metadata["pages"])
	assert.Equal(t, "Ops Team", out.Metadata["author"])
	assert.Equal(t, "pdf", out.Metadata["format"])
}

func TestNormalise_TitleFromFirstLine(t *testing.T) {
	data := buildPDF(t, "", "BT 72 720 Td (Release Notes) Tj T* (Bug fixes) Tj ET")

	out, err := withoutPDFToText(New()).Normalise(context.Background(), &domain.RawContent{Name: "notes.pdf", Data: data})
	require.NoError(t, err)
	assert.Equal(t, "Release Notes", out.Title)
	assert.NotContains(t, out.Metadata, "author")
}

func TestNormalise_PrefersPDFToText(t *testing.T) {
	runner := &mockRunner{output: []byte("From poppler\r\n\r\n\r\nSecond para\n")}
	n := NewWithRunner(runner)
	n.lookPath = func(string) (string, error) { return "/usr/bin/pdftotext", nil }

	out, err := n.Normalise(context.Background(), &domain.RawContent{
		Name: "doc.pdf",
		Data: buildPDF(t, "", "BT (ignored) Tj ET"),
	})
	require.NoError(t, err)
	assert.Equal(t, "From poppler\n\nSecond para", out.Text)
	assert.Equal(t, "From poppler", out.Title)
	require.Len(t, runner.args, 5)
	assert.Equal(t, "-", runner.args[4])
}

func TestNormalise_PDFToTextFailureFallsBack(t *testing.T) {
	n := NewWithRunner(&mockRunner{err: errors.New("pdftotext crashed")})
	n.lookPath = func(string) (string, error) { return "/usr/bin/pdftotext", nil }

	out, err := n.Normalise(context.Background(), &domain.RawContent{
		Name: "doc.pdf",
		Data: buildPDF(t, "", "BT (built in) Tj ET"),
	})
	require.NoError(t, err)
	assert.Equal(t, "built in", out.Text)
}

func TestNormalise_Invalid(t *testing.T) {
	n := withoutPDFToText(New())

	_, err := n.Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = n.Normalise(context.Background(), &domain.RawContent{Name: "fake.pdf", Data: []byte("%PDF-1.4 not really")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		file     string
		expected string
	}{
		{"first line as title", "Document Title\n\nSome content here.", "doc.pdf", "Document Title"},
		{"skip empty lines", "\n\n\nActual Title\nContent", "doc.pdf", "Actual Title"},
		{"fallback to filename", "", "/path/to/my_document.pdf", "my document"},
		{"skip very long first line", strings.Repeat("x", 250) + "\nShort Title\nContent", "doc.pdf", "Short Title"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, extractTitle(tc.content, tc.file))
		})
	}
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}
