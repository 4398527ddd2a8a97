package pdf

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf16"
)

// tjSpace is the TJ kerning offset, in thousandths of a text unit, beyond
// which a gap is read as a word break.
const tjSpace = -200

type tokenKind int

const (
	tokString tokenKind = iota
	tokNumber
	tokArrayStart
	tokOther
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

// contentText returns the text shown by a page content stream. Strings are
// decoded as PDFDocEncoding or UTF-16BE; glyph mappings of embedded fonts
// are not applied.
func contentText(stream []byte) string {
	var (
		out      strings.Builder
		operands []token
	)

	newline := func() {
		s := out.String()
		if s != "" && !strings.HasSuffix(s, "\n") {
			out.WriteByte('\n')
		}
	}
	space := func() {
		s := out.String()
		if s != "" && !strings.HasSuffix(s, " ") && !strings.HasSuffix(s, "\n") {
			out.WriteByte(' ')
		}
	}
	lastString := func() string {
		for i := len(operands) - 1; i >= 0; i-- {
			if operands[i].kind == tokString {
				return operands[i].text
			}
		}
		return ""
	}

	s := stream
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isSpace(c):
			i++
		case c == '%':
			for i < len(s) && s[i] != '\n' && s[i] != '\r' {
				i++
			}
		case c == '(':
			str, n := readLiteral(s[i:])
			operands = append(operands, token{kind: tokString, text: decodeText(str)})
			i += n
		case c == '<' && i+1 < len(s) && s[i+1] == '<':
			operands = append(operands, token{kind: tokOther})
			i += 2
		case c == '<':
			str, n := readHex(s[i:])
			operands = append(operands, token{kind: tokString, text: decodeText(str)})
			i += n
		case c == '>':
			i++
		case c == '[':
			operands = append(operands, token{kind: tokArrayStart})
			i++
		case c == ']':
			i++
		case c == '/':
			j := i + 1
			for j < len(s) && !isSpace(s[j]) && !isDelim(s[j]) {
				j++
			}
			operands = append(operands, token{kind: tokOther})
			i = j
		case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
			j := i + 1
			for j < len(s) && (s[j] == '.' || (s[j] >= '0' && s[j] <= '9')) {
				j++
			}
			num, _ := strconv.ParseFloat(string(s[i:j]), 64)
			operands = append(operands, token{kind: tokNumber, num: num})
			i = j
		default:
			j := i
			for j < len(s) && !isSpace(s[j]) && !isDelim(s[j]) {
				j++
			}
			if j == i {
				j++
			}
			op := string(s[i:j])
			i = j

			switch op {
			case "Tj":
				out.WriteString(lastString())
			case "'", `"`:
				newline()
				out.WriteString(lastString())
			case "TJ":
				start := 0
				for k := len(operands) - 1; k >= 0; k-- {
					if operands[k].kind == tokArrayStart {
						start = k + 1
						break
					}
				}
				for _, t := range operands[start:] {
					switch {
					case t.kind == tokString:
						out.WriteString(t.text)
					case t.kind == tokNumber && t.num < tjSpace:
						space()
					}
				}
			case "Td", "TD":
				if len(operands) >= 2 && operands[len(operands)-1].num != 0 {
					newline()
				} else {
					space()
				}
			case "T*", "ET":
				newline()
			case "ID":
				i = skipInlineImage(s, i)
			}
			operands = operands[:0]
		}
	}

	return out.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

// readLiteral reads a balanced (...) string starting at s[0] and returns
// its bytes and the number of input bytes consumed.
func readLiteral(s []byte) ([]byte, int) {
	var out []byte
	depth := 0
	i := 0
	for i < len(s) {
		c := s[i]
		switch c {
		case '(':
			depth++
			if depth > 1 {
				out = append(out, c)
			}
			i++
		case ')':
			depth--
			i++
			if depth == 0 {
				return out, i
			}
			out = append(out, c)
		case '\\':
			i++
			if i >= len(s) {
				return out, i
			}
			e := s[i]
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if i+1 < len(s) && s[i+1] == '\n' {
					i++
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := 0
				k := 0
				for k < 3 && i < len(s) && s[i] >= '0' && s[i] <= '7' {
					v = v*8 + int(s[i]-'0')
					i++
					k++
				}
				out = append(out, byte(v))
				continue
			default:
				out = append(out, e)
			}
			i++
		default:
			out = append(out, c)
			i++
		}
	}
	return out, i
}

// readHex reads a <...> hex string. An odd final digit is padded with 0.
func readHex(s []byte) ([]byte, int) {
	end := bytes.IndexByte(s, '>')
	if end < 0 {
		end = len(s)
	}
	var digits []byte
	for _, c := range s[1:end] {
		if unhex(c) >= 0 {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = byte(unhex(digits[2*i])<<4 | unhex(digits[2*i+1]))
	}
	return out, min(end+1, len(s))
}

func unhex(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

// decodeText converts a PDF string to UTF-8. A UTF-16BE byte order mark
// selects UTF-16; anything else is read as Latin-1, which matches
// PDFDocEncoding and WinAnsiEncoding for printable ASCII and most accents.
func decodeText(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		units := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(units))
	}

	var sb strings.Builder
	for _, c := range b {
		switch {
		case c == '\n' || c == '\t':
			sb.WriteByte(c)
		case c == '\r':
			sb.WriteByte('\n')
		case c < 0x20 || c == 0x7f:
		default:
			sb.WriteRune(rune(c))
		}
	}
	return sb.String()
}

// skipInlineImage advances past the binary data of an inline image, which
// runs from just after "ID" to a whitespace-delimited "EI".
func skipInlineImage(s []byte, i int) int {
	for j := i; j+1 < len(s); j++ {
		if s[j] == 'E' && s[j+1] == 'I' &&
			j > 0 && isSpace(s[j-1]) && (j+2 == len(s) || isSpace(s[j+2])) {
			return j + 2
		}
	}
	return len(s)
}
