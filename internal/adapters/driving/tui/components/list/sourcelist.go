// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// SourceList displays the sources cited by an answer in a navigable list.
type SourceList struct {
	sources  []domain.SourceAttribution
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewSourceList creates an empty source list.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &SourceList{
		styles: s,
		width:  80,
		height: 6,
	}
}

// Init initialises the list.
func (l *SourceList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation keys.
func (l *SourceList) Update(msg tea.Msg) (*SourceList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the list, one line per source.
func (l *SourceList) View() string {
	if len(l.sources) == 0 {
		return ""
	}

	lines := make([]string, 0, len(l.sources)+1)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(l.sources))))

	visible := max(l.height-1, 1)
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.sources))

	for i := start; i < end; i++ {
		lines = append(lines, l.renderSource(i, &l.sources[i]))
	}
	return strings.Join(lines, "\n")
}

func (l *SourceList) renderSource(index int, src *domain.SourceAttribution) string {
	title := src.Title
	if title == "" {
		title = "(Untitled)"
	}

	maxTitle := max(l.width-24, 10)
	if len(title) > maxTitle {
		title = title[:maxTitle-3] + "..."
	}

	kind := src.Type
	if kind == "" {
		kind = "-"
	}
	score := fmt.Sprintf("%3.0f%%", src.Score*100)

	if index == l.selected {
		return l.styles.Selected.Render(fmt.Sprintf("> [%d] %-*s %-5s %s", index+1, maxTitle, title, kind, score))
	}
	return l.styles.Citation.Render(fmt.Sprintf("  [%d] %-*s %-5s ", index+1, maxTitle, title, kind)) +
		l.styles.Muted.Render(score)
}

// SetSources replaces the list contents and resets the selection.
func (l *SourceList) SetSources(sources []domain.SourceAttribution) {
	l.sources = sources
	l.selected = 0
}

// Sources returns the current sources.
func (l *SourceList) Sources() []domain.SourceAttribution {
	return l.sources
}

// Selected returns the index of the selected source.
func (l *SourceList) Selected() int {
	return l.selected
}

// SelectedSource returns the selected source, or nil when the list is empty.
func (l *SourceList) SelectedSource() *domain.SourceAttribution {
	if l.selected < 0 || l.selected >= len(l.sources) {
		return nil
	}
	return &l.sources[l.selected]
}

// MoveUp moves selection up.
func (l *SourceList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *SourceList) MoveDown() {
	if l.selected < len(l.sources)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *SourceList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of sources.
func (l *SourceList) Count() int {
	return len(l.sources)
}

// IsEmpty reports whether the list has no sources.
func (l *SourceList) IsEmpty() bool {
	return len(l.sources) == 0
}
