// Package eml extracts headers and body text from RFC 822 email messages.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/normalisers/html"
	"github.com/custodia-labs/ragdesk/internal/normalisers/textutil"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles EML (email) documents.
type Normaliser struct{}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise renders the main headers followed by the body. Plain text parts
// win over HTML parts in multipart messages. The subject is the title.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawContent) (*domain.Extraction, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, raw.Name, err)
	}

	headers := []struct{ key, value string }{
		{"From", decodeHeader(msg.Header.Get("From"))},
		{"To", decodeHeader(msg.Header.Get("To"))},
		{"Date", msg.Header.Get("Date")},
		{"Subject", decodeHeader(msg.Header.Get("Subject"))},
	}

	body, err := partText(textproto.MIMEHeader(msg.Header), msg.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, raw.Name, err)
	}

	meta := textutil.Metadata(raw, "eml")
	var content strings.Builder
	for _, h := range headers {
		if h.value == "" {
			continue
		}
		fmt.Fprintf(&content, "%s: %s\n", h.key, h.value)
		if h.key != "Subject" {
			meta[strings.ToLower(h.key)] = h.value
		}
	}
	content.WriteString("\n")
	content.WriteString(body)

	title := headers[3].value
	if title == "" {
		title = textutil.TitleFromName(raw.Name)
	}

	return &domain.Extraction{
		Text:     textutil.Tidy(content.String()),
		Title:    title,
		Metadata: meta,
	}, nil
}

// decodeHeader decodes RFC 2047 encoded words, returning the input on failure.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// partText returns the readable text of one MIME entity.
func partText(header textproto.MIMEHeader, body io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartText(body, params["boundary"])
	}

	data, err := io.ReadAll(decodeTransfer(header.Get("Content-Transfer-Encoding"), body))
	if err != nil {
		return "", err
	}

	switch mediaType {
	case "text/html":
		return html.Strip(string(data)), nil
	case "text/plain":
		return string(data), nil
	default:
		return "", nil
	}
}

func multipartText(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", fmt.Errorf("multipart message without boundary")
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		mediaType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		text, err := partText(part.Header, part)
		part.Close()
		if err != nil || text == "" {
			continue
		}
		if mediaType == "text/html" {
			htmlParts = append(htmlParts, text)
		} else {
			textParts = append(textParts, text)
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), nil
	}
	return strings.Join(htmlParts, "\n"), nil
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, newlineStripper{r})
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// newlineStripper drops line breaks so wrapped base64 decodes cleanly.
type newlineStripper struct{ r io.Reader }

func (s newlineStripper) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	out := p[:0]
	for _, b := range p[:n] {
		if b != '\r' && b != '\n' {
			out = append(out, b)
		}
	}
	return len(out), err
}
