// Package textutil holds helpers shared by the normalisers.
package textutil

import (
	"maps"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

var multiNewlines = regexp.MustCompile(`\n{3,}`)

// TitleFromName turns "quarterly_report-2024.pdf" into "quarterly report 2024".
func TitleFromName(name string) string {
	base := filepath.Base(name)
	if strings.Contains(name, "://") {
		base = path.Base(name)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return strings.TrimSpace(base)
}

// Metadata copies raw metadata and records the MIME type and format.
func Metadata(raw *domain.RawContent, format string) map[string]any {
	meta := make(map[string]any, len(raw.Metadata)+2)
	maps.Copy(meta, raw.Metadata)
	meta["mime_type"] = raw.MIMEType
	meta["format"] = format
	return meta
}

// Tidy normalises line endings, trims trailing spaces and collapses runs of
// blank lines so chunk boundaries fall on real paragraphs.
func Tidy(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(multiNewlines.ReplaceAllString(text, "\n\n"))
}
