package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentText(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name:   "show text",
			stream: "BT /F1 12 Tf 72 720 Td (Hello) Tj ET",
			want:   "Hello\n",
		},
		{
			name:   "line moves",
			stream: "BT (one) Tj 0 -12 Td (two) Tj T* (three) Tj ET",
			want:   "one\ntwo\nthree\n",
		},
		{
			name:   "horizontal move is a space",
			stream: "BT (left) Tj 120 0 Td (right) Tj ET",
			want:   "left right\n",
		},
		{
			name:   "TJ kerning",
			stream: "BT [(Kern) -50 (ing) -400 (gap)] TJ ET",
			want:   "Kerning gap\n",
		},
		{
			name:   "quote operators",
			stream: "BT (a) Tj (b) ' 1 2 (c) \" ET",
			want:   "a\nb\nc\n",
		},
		{
			name:   "escapes and nesting",
			stream: `BT (x \(y\) (z) \\ \101\102) Tj ET`,
			want:   `x (y) (z) \ AB` + "\n",
		},
		{
			name:   "hex string",
			stream: "BT <48656C6C6F> Tj <4> Tj ET",
			want:   "Hello@\n",
		},
		{
			name:   "utf16 hex",
			stream: "BT <FEFF00430061006600E9> Tj ET",
			want:   "Café\n",
		},
		{
			name:   "comments and marked content",
			stream: "% comment (not text) Tj\n/Span << /ActualText (x) >> BDC BT (kept) Tj ET EMC",
			want:   "kept\n",
		},
		{
			name:   "inline image skipped",
			stream: "BI /W 2 /H 2 ID \x00\xff(junk) Tj EI BT (after) Tj ET",
			want:   "after\n",
		},
		{
			name:   "graphics only",
			stream: "q 1 0 0 1 0 0 cm 0 0 100 100 re f Q",
			want:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, contentText([]byte(tt.stream)))
		})
	}
}

func TestReadLiteral_Unterminated(t *testing.T) {
	out, n := readLiteral([]byte("(abc"))
	assert.Equal(t, "abc", string(out))
	assert.Equal(t, 4, n)
}

func TestDecodeText(t *testing.T) {
	assert.Equal(t, "a\nb", decodeText([]byte("a\rb")))
	assert.Equal(t, "ab", decodeText([]byte{'a', 0x01, 'b'}))
	assert.Equal(t, "é", decodeText([]byte{0xE9}))
}
