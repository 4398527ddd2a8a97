package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/normalisers/textutil"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise strips markup from an HTML page, keeping block structure as
// line breaks.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawContent) (*domain.Extraction, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := string(raw.Data)
	title := Title(content)
	if title == "" {
		title = textutil.TitleFromName(raw.Name)
	}

	return &domain.Extraction{
		Text:     Strip(content),
		Title:    title,
		Metadata: textutil.Metadata(raw, "html"),
	}, nil
}

var titleTag = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// hidden elements are dropped together with everything inside them.
var hidden = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<!--.*?-->`),
	elementRe("head"),
	elementRe("script"),
	elementRe("style"),
	elementRe("noscript"),
	elementRe("svg"),
	elementRe("template"),
}

var (
	// lineBreak matches tags that start or end a block of text.
	lineBreak = regexp.MustCompile(
		`(?i)</?(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article|header|footer|nav)(\s[^>]*)?>|<(br|hr)\s*/?>`)
	anyTag = regexp.MustCompile(`<[^>]+>`)
	blanks = regexp.MustCompile(`[ \t\x{00a0}]+`)
)

func elementRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)<` + name + `(\s[^>]*)?>.*?</` + name + `\s*>`)
}

// Title returns the decoded <title> of a page, or "".
func Title(content string) string {
	m := titleTag.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}

// Strip removes markup and returns the readable text, one block per line.
func Strip(content string) string {
	for _, re := range hidden {
		content = re.ReplaceAllString(content, "")
	}
	content = lineBreak.ReplaceAllString(content, "\n")
	content = html.UnescapeString(anyTag.ReplaceAllString(content, ""))

	var b strings.Builder
	for line := range strings.SplitSeq(content, "\n") {
		line = strings.TrimSpace(blanks.ReplaceAllString(line, " "))
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}
