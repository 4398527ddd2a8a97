// Package pdf extracts text from PDF documents.
//
// When poppler's pdftotext is on PATH it is used, as it copes with embedded
// font encodings. Otherwise the document is parsed with pdfcpu and the text
// operators of each page's content stream are decoded directly.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/normalisers/textutil"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// maxTitle is the longest first line accepted as a title.
const maxTitle = 200

func init() {
	// Keep pdfcpu from writing its config into the user's config dir.
	api.DisableConfigDir()
}

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Normaliser handles PDF documents.
type Normaliser struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// New creates a PDF normaliser that runs pdftotext when available.
func New() *Normaliser {
	return NewWithRunner(execRunner{})
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner, lookPath: exec.LookPath}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the text of every page. A scanned PDF without a text
// layer yields an empty Text, which indexing later rejects.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawContent) (*domain.Extraction, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	pctx, err := readContext(raw.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a readable PDF: %w", domain.ErrInvalidInput, raw.Name, err)
	}

	meta := textutil.Metadata(raw, "pdf")
	meta["pages"] = pctx.PageCount
	if pctx.Author != "" {
		meta["author"] = pctx.Author
	}

	text, err := n.pdftotext(ctx, raw.Data)
	if err != nil {
		logger.Debug("pdftotext unavailable for %s, decoding content streams: %v", raw.Name, err)
		text, err = pageText(pctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, raw.Name, err)
		}
	}
	text = textutil.Tidy(text)

	title := strings.TrimSpace(pctx.Title)
	if title == "" {
		title = extractTitle(text, raw.Name)
	}

	return &domain.Extraction{
		Text:     text,
		Title:    title,
		Metadata: meta,
	}, nil
}

func readContext(data []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}
	if err := api.ValidateContext(pctx); err != nil {
		return nil, err
	}
	if err := pctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	return pctx, nil
}

// pageText decodes the content streams of all pages, one block per page.
func pageText(pctx *model.Context) (string, error) {
	var out strings.Builder
	for page := 1; page <= pctx.PageCount; page++ {
		r, err := pdfcpu.ExtractPageContent(pctx, page)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		if r == nil {
			continue
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(r); err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		out.WriteString(contentText(buf.Bytes()))
		out.WriteString("\n\n")
	}
	return out.String(), nil
}

// pdftotext runs poppler's pdftotext on a temporary copy of data.
func (n *Normaliser) pdftotext(ctx context.Context, data []byte) (string, error) {
	if _, err := n.lookPath("pdftotext"); err != nil {
		return "", ErrPDFToolNotFound
	}

	tmp, err := os.CreateTemp("", "ragdesk-*.pdf")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	out, err := n.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", "-layout", tmp.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return string(out), nil
}

// extractTitle returns the first non-empty short line, or a title built
// from the file name.
func extractTitle(content, name string) string {
	for line := range strings.SplitSeq(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && len(line) <= maxTitle {
			return line
		}
	}
	return textutil.TitleFromName(name)
}
