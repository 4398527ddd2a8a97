// Package doccontent provides the document content view component for the TUI.
package doccontent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// ErrNoIndexService is returned when chunks are requested without an index service.
var ErrNoIndexService = errors.New("index service not available")

// View shows the extracted text of a document, or its indexed chunks.
type View struct {
	styles       *styles.Styles
	indexService driving.IndexService
	ownerID      string
	ctx          context.Context

	document     *domain.IndexedDocument
	back         messages.ViewType
	showChunks   bool
	chunks       []domain.Chunk
	lines        []string
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
	loading      bool
}

// NewView creates a new document content view.
func NewView(s *styles.Styles, indexService driving.IndexService, ownerID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:       s,
		indexService: indexService,
		ownerID:      ownerID,
		ctx:          context.Background(),
		back:         messages.ViewDocuments,
		width:        80,
		height:       24,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetDocument shows doc's content. Esc returns to back.
func (v *View) SetDocument(doc domain.IndexedDocument, back messages.ViewType) {
	v.document = &doc
	v.back = back
	v.showChunks = false
	v.chunks = nil
	v.scrollOffset = 0
	v.err = nil
	v.loading = false
	v.wrapContent()
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

func (v *View) loadChunks() tea.Cmd {
	if v.document == nil {
		return nil
	}
	id := v.document.Document.ID
	v.loading = true
	return func() tea.Msg {
		if v.indexService == nil {
			return messages.ChunksLoaded{DocumentID: id, Err: ErrNoIndexService}
		}
		chunks, err := v.indexService.Chunks(v.ctx, v.ownerID, id)
		return messages.ChunksLoaded{DocumentID: id, Chunks: chunks, Err: err}
	}
}

// Update handles messages for the document content view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ChunksLoaded:
		if v.document == nil || msg.DocumentID != v.document.Document.ID {
			return v, nil
		}
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.chunks = msg.Chunks
		v.scrollOffset = 0
		v.wrapContent()
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case "pgup", "ctrl+u":
		v.scrollOffset = max(v.scrollOffset-v.visibleLines(), 0)
	case "pgdown", "ctrl+d":
		v.scrollOffset = min(v.scrollOffset+v.visibleLines(), v.maxScrollOffset())
	case "home", "g":
		v.scrollOffset = 0
	case "end", "G":
		v.scrollOffset = v.maxScrollOffset()
	case "t":
		return v, v.toggleChunks()
	case "esc":
		back := v.back
		return v, func() tea.Msg {
			return messages.ViewChanged{View: back}
		}
	}

	return v, nil
}

// toggleChunks switches between the full text and the indexed chunks.
func (v *View) toggleChunks() tea.Cmd {
	v.showChunks = !v.showChunks
	v.scrollOffset = 0
	v.err = nil
	if v.showChunks && v.chunks == nil {
		v.lines = nil
		return v.loadChunks()
	}
	v.wrapContent()
	return nil
}

// wrapContent splits the visible text into lines that fit the view width.
func (v *View) wrapContent() {
	v.lines = nil
	if v.document == nil {
		return
	}

	width := max(v.width-4, 20)

	if !v.showChunks {
		v.lines = wrap(v.document.Document.Content, width)
		return
	}

	for i, c := range v.chunks {
		if i > 0 {
			v.lines = append(v.lines, "")
		}
		v.lines = append(v.lines, fmt.Sprintf("── chunk %d (runes %d-%d) ──", c.Index+1, c.Start, c.End))
		v.lines = append(v.lines, wrap(c.Text, width)...)
	}
}

// wrap hard-wraps text at width runes.
func wrap(text string, width int) []string {
	if text == "" {
		return nil
	}
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		runes := []rune(line)
		for len(runes) > width {
			lines = append(lines, string(runes[:width]))
			runes = runes[width:]
		}
		if len(runes) > 0 || len(line) == 0 {
			lines = append(lines, string(runes))
		}
	}
	return lines
}

// visibleLines returns the number of lines that can be displayed.
func (v *View) visibleLines() int {
	// Title, separator, help and padding.
	return max(v.height-6, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the document content view.
func (v *View) View() string {
	var b strings.Builder

	title := "Document Content"
	if v.document != nil {
		title = v.document.Document.Title
		if title == "" {
			title = v.document.Document.ID
		}
	}
	if v.showChunks {
		title += fmt.Sprintf(" (%d chunks)", len(v.chunks))
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(min(v.width-4, 60), 0)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading chunks..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.lines) == 0 && v.showChunks:
		b.WriteString(v.styles.Muted.Render("(Not indexed)"))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(No content)"))
	default:
		v.renderLines(&b)
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *View) renderLines(b *strings.Builder) {
	visible := v.visibleLines()
	end := min(v.scrollOffset+visible, len(v.lines))
	for i := v.scrollOffset; i < end; i++ {
		b.WriteString(v.styles.Normal.Render(v.lines[i]))
		b.WriteString("\n")
	}

	if len(v.lines) > visible {
		percentage := 0
		if m := v.maxScrollOffset(); m > 0 {
			percentage = v.scrollOffset * 100 / m
		}
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
			percentage, v.scrollOffset+1, end, len(v.lines))))
	}
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	toggle := "[t] chunks"
	if v.showChunks {
		toggle = "[t] full text"
	}
	return v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  " + toggle + "  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.wrapContent()
}

// Document returns the current document.
func (v *View) Document() *domain.IndexedDocument {
	return v.document
}

// ShowingChunks reports whether the chunk listing is displayed.
func (v *View) ShowingChunks() bool {
	return v.showChunks
}

// Lines returns the wrapped lines currently displayed.
func (v *View) Lines() []string {
	return v.lines
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
