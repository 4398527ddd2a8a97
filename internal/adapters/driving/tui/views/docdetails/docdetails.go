// Package docdetails provides the document details view component for the TUI.
package docdetails

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

const timeLayout = "2006-01-02 15:04:05"

// line is one labelled row of the details listing.
type line struct {
	label string
	value string
	style *lipgloss.Style
}

// View is the document details view.
type View struct {
	styles *styles.Styles

	details      *driving.DocumentDetails
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
}

// NewView creates a new document details view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		width:  80,
		height: 24,
	}
}

// SetDetails sets the document details to display.
func (v *View) SetDetails(details *driving.DocumentDetails) {
	v.details = details
	v.scrollOffset = 0
	v.err = nil
}

// SetError sets an error to display.
func (v *View) SetError(err error) {
	v.err = err
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the document details view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentDetailsLoaded:
		if msg.Err != nil {
			v.details = nil
			v.SetError(msg.Err)
			return v, nil
		}
		v.SetDetails(msg.Details)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

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
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewDocuments}
		}
	}

	return v, nil
}

func (v *View) visibleLines() int {
	return max(v.height-6, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.buildContent())-v.visibleLines(), 0)
}

// buildContent builds the rows for display.
func (v *View) buildContent() []line {
	d := v.details
	if d == nil {
		return nil
	}

	state := v.styles.IndexState(d.Status)
	lines := []line{
		{label: "ID", value: d.ID},
		{label: "Title", value: d.Title},
		{label: "Origin", value: d.Origin.String()},
		{label: "Type", value: d.FileType},
		{label: "Location", value: d.Location},
		{label: "Size", value: formatSize(d.Size)},
		{label: "Status", value: d.Status.String(), style: &state},
	}
	if d.Error != "" {
		lines = append(lines, line{label: "Error", value: d.Error, style: &v.styles.Error})
	}
	lines = append(lines, line{label: "Chunks", value: fmt.Sprintf("%d", d.ChunkCount)})
	if !d.CreatedAt.IsZero() {
		lines = append(lines, line{label: "Created", value: d.CreatedAt.Local().Format(timeLayout)})
	}
	if d.IndexedAt != nil {
		lines = append(lines, line{label: "Indexed", value: d.IndexedAt.Local().Format(timeLayout)})
	}

	if len(d.Metadata) > 0 {
		lines = append(lines, line{}, line{label: "Metadata"})

		keys := make([]string, 0, len(d.Metadata))
		for k := range d.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		for _, k := range keys {
			value := d.Metadata[k]
			if len(value) > 50 {
				value = value[:47] + "..."
			}
			lines = append(lines, line{label: "  " + k, value: value, style: &v.styles.Muted})
		}
	}

	return lines
}

// View renders the document details view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Document Details"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(min(v.width-4, 60), 0)))
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	case v.details == nil:
		b.WriteString(v.styles.Muted.Render("No document details available"))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	lines := v.buildContent()
	visible := v.visibleLines()
	end := min(v.scrollOffset+visible, len(lines))
	for _, l := range lines[v.scrollOffset:end] {
		b.WriteString(v.renderLine(l))
		b.WriteString("\n")
	}

	if len(lines) > visible {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [Line %d-%d of %d]",
			v.scrollOffset+1, end, len(lines))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

func (v *View) renderLine(l line) string {
	switch {
	case l.label == "":
		return ""
	case l.value == "" && l.style == nil && l.label == "Metadata":
		return v.styles.Subtitle.Render("Metadata:")
	case strings.HasPrefix(l.label, "  "):
		return v.styles.Muted.Render(l.label+":") + " " + v.styles.Normal.Render(l.value)
	}

	value := v.styles.Normal
	if l.style != nil {
		value = *l.style
	}
	return v.styles.Subtitle.Render(fmt.Sprintf("%-10s", l.label+":")) + " " + value.Render(l.value)
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] scroll  [esc] back")
}

// formatSize renders a byte count with a binary unit.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Details returns the current document details.
func (v *View) Details() *driving.DocumentDetails {
	return v.details
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
