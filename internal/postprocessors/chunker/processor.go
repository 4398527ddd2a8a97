// Package chunker splits document text into overlapping, embeddable spans.
package chunker

import (
	"unicode"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Strategy selects how window boundaries are chosen.
type Strategy string

const (
	// StrategyRecursive cuts at paragraph, line, sentence, clause and word
	// boundaries, in that order, before falling back to a hard cut.
	StrategyRecursive Strategy = "recursive"

	// StrategyFixed cuts every chunkSize characters regardless of content.
	StrategyFixed Strategy = "fixed"
)

// separators in preference order. Each cut is placed after the separator,
// so the separator stays with the preceding chunk.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune("; "),
	[]rune(", "),
	[]rune(" "),
}

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits text into chunks measured in characters (runes).
// It holds no state between calls, so Split is a pure function of its input.
type Processor struct {
	chunkSize int
	overlap   int
	strategy  Strategy
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithStrategy selects the boundary strategy. Unknown values are ignored.
func WithStrategy(s Strategy) Option {
	return func(p *Processor) {
		if s == StrategyRecursive || s == StrategyFixed {
			p.strategy = s
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		strategy:  StrategyRecursive,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Split divides text into ordered spans.
//
// Every span is at most chunkSize runes long. Span i+1 starts inside span i,
// so dropping the first End(i)-Start(i+1) runes of each later span and
// concatenating reproduces text exactly.
func (p *Processor) Split(text string) []domain.ChunkSpan {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if p.strategy == StrategyFixed {
		return p.splitFixed(runes)
	}
	return p.splitRecursive(runes)
}

func (p *Processor) splitFixed(runes []rune) []domain.ChunkSpan {
	n := len(runes)
	step := p.chunkSize - p.overlap
	spans := make([]domain.ChunkSpan, 0, n/step+1)

	for start := 0; ; start += step {
		end := min(start+p.chunkSize, n)
		spans = append(spans, span(runes, len(spans), start, end))
		if end == n {
			break
		}
	}

	return spans
}

func (p *Processor) splitRecursive(runes []rune) []domain.ChunkSpan {
	n := len(runes)
	var spans []domain.ChunkSpan //nolint:prealloc // count depends on boundaries

	// A cut must leave room past the overlap so the next start advances,
	// and should not produce slivers far below the target size.
	minAdvance := max(p.overlap, p.chunkSize/4)

	start := 0
	for {
		if n-start <= p.chunkSize {
			spans = append(spans, span(runes, len(spans), start, n))
			return spans
		}

		limit := start + p.chunkSize
		cut := bestCut(runes, start+minAdvance, limit)
		spans = append(spans, span(runes, len(spans), start, cut))

		start = p.nextStart(runes, start, cut)
	}
}

// bestCut returns the cut position in (lower, limit] after the highest
// priority separator, or limit when none fits.
func bestCut(runes []rune, lower, limit int) int {
	for _, sep := range separators {
		if cut := lastCutAfter(runes, sep, lower, limit); cut > 0 {
			return cut
		}
	}
	return limit
}

// lastCutAfter finds the last occurrence of sep ending in (lower, limit]
// and returns the position just after it, or 0.
func lastCutAfter(runes, sep []rune, lower, limit int) int {
	for end := limit; end > lower; end-- {
		begin := end - len(sep)
		if begin < 0 {
			return 0
		}
		if equalRunes(runes[begin:end], sep) {
			return end
		}
	}
	return 0
}

// nextStart backs off from cut by the overlap, then moves forward to the
// start of a word when one exists inside the overlap region.
func (p *Processor) nextStart(runes []rune, prevStart, cut int) int {
	if p.overlap == 0 {
		return cut
	}

	next := cut - p.overlap
	if next <= prevStart {
		next = prevStart + 1
	}
	if unicode.IsSpace(runes[next-1]) {
		return next
	}
	for j := next + 1; j < cut; j++ {
		if unicode.IsSpace(runes[j-1]) && !unicode.IsSpace(runes[j]) {
			return j
		}
	}
	return next
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func span(runes []rune, index, start, end int) domain.ChunkSpan {
	return domain.ChunkSpan{
		Index: index,
		Text:  string(runes[start:end]),
		Start: start,
		End:   end,
	}
}

// Reassemble joins spans back into the original text by dropping the part of
// each span that overlaps its predecessor.
func Reassemble(spans []domain.ChunkSpan) string {
	var out []rune
	covered := 0
	for _, s := range spans {
		r := []rune(s.Text)
		skip := covered - s.Start
		if skip < 0 {
			skip = 0
		}
		if skip < len(r) {
			out = append(out, r[skip:]...)
		}
		covered = s.End
	}
	return string(out)
}
