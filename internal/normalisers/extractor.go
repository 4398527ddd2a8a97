package normalisers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/normalisers/docx"
	"github.com/custodia-labs/ragdesk/internal/normalisers/web"
)

// Ensure Extractor implements the interface.
var _ driven.ContentExtractor = (*Extractor)(nil)

// DefaultMaxFileSize caps uploaded files.
const DefaultMaxFileSize = 50 << 20

// fileType describes one accepted upload extension.
type fileType struct {
	mime string
	tag  string
}

// fileTypes maps lower-case extensions to MIME type and file type tag.
var fileTypes = map[string]fileType{
	".txt":      {"text/plain", "txt"},
	".text":     {"text/plain", "txt"},
	".log":      {"text/plain", "txt"},
	".md":       {"text/markdown", "md"},
	".markdown": {"text/markdown", "md"},
	".json":     {"application/json", "json"},
	".csv":      {"text/csv", "csv"},
	".tsv":      {"text/tab-separated-values", "csv"},
	".pdf":      {"application/pdf", "pdf"},
	".html":     {"text/html", "html"},
	".htm":      {"text/html", "html"},
	".docx":     {docx.MIMEType, "docx"},
	".eml":      {"message/rfc822", "eml"},
}

// SupportedExtensions returns the accepted upload extensions.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(fileTypes))
	for ext := range fileTypes {
		exts = append(exts, ext)
	}
	return exts
}

// Extractor turns uploaded files and URLs into text.
type Extractor struct {
	registry    driven.NormaliserRegistry
	fetcher     *web.Fetcher
	article     driven.Normaliser
	maxFileSize int64
}

// NewExtractor creates an extractor. fetcher may be nil, disabling URLs.
func NewExtractor(registry driven.NormaliserRegistry, fetcher *web.Fetcher) *Extractor {
	return &Extractor{
		registry:    registry,
		fetcher:     fetcher,
		article:     web.New(),
		maxFileSize: DefaultMaxFileSize,
	}
}

// ExtractFile reads path, choosing the normaliser from name's extension.
func (e *Extractor) ExtractFile(ctx context.Context, path, name string) (*domain.Extraction, error) {
	if name == "" {
		name = filepath.Base(path)
	}
	ext := strings.ToLower(filepath.Ext(name))
	ft, ok := fileTypes[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q files are not supported", domain.ErrUnsupportedType, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if info.Size() > e.maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", domain.ErrInvalidInput, name, info.Size(), e.maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	out, err := e.registry.Normalise(ctx, &domain.RawContent{
		Name:     name,
		MIMEType: ft.mime,
		URI:      path,
		Data:     data,
		Metadata: map[string]any{},
	})
	if err != nil {
		return nil, err
	}
	out.FileType = ft.tag
	out.Size = int64(len(data))
	return out, nil
}

// ExtractURL fetches a page. HTML goes through article extraction; other
// content types use the file normalisers.
func (e *Extractor) ExtractURL(ctx context.Context, url string) (*domain.Extraction, error) {
	if e.fetcher == nil {
		return nil, fmt.Errorf("fetch %s: %w", url, domain.ErrNotConfigured)
	}

	raw, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	var out *domain.Extraction
	switch raw.MIMEType {
	case "text/html", "application/xhtml+xml":
		out, err = e.article.Normalise(ctx, raw)
	default:
		out, err = e.registry.Normalise(ctx, raw)
	}
	if err != nil {
		return nil, err
	}
	out.FileType = "html"
	out.Size = int64(len(raw.Data))
	return out, nil
}

// Close releases the fetcher's connections.
func (e *Extractor) Close() error {
	if e.fetcher == nil {
		return nil
	}
	return e.fetcher.Close()
}
