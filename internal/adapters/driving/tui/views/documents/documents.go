// Package documents provides the documents list view component for the TUI.
package documents

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

// ErrNoService is returned by commands when a required service is missing.
var ErrNoService = errors.New("document service not available")

// ActionOption represents a document action.
type ActionOption int

const (
	ActionShowContent ActionOption = iota
	ActionShowDetails
	ActionIndex
	ActionDeindex
	ActionOpenDocument
	ActionDelete
	ActionCancel
)

var actionLabels = []struct {
	action ActionOption
	label  string
}{
	{ActionShowContent, "Show Content"},
	{ActionShowDetails, "Show Details"},
	{ActionIndex, "Index"},
	{ActionDeindex, "Remove from Index"},
	{ActionOpenDocument, "Open Document"},
	{ActionDelete, "Delete Document"},
	{ActionCancel, "Cancel"},
}

// confirmation is an action waiting for a y/n answer.
type confirmation int

const (
	confirmNone confirmation = iota
	confirmDelete
	confirmClear
)

// View is the documents list view.
type View struct {
	styles          *styles.Styles
	documentService driving.DocumentService
	indexService    driving.IndexService
	ownerID         string
	ctx             context.Context

	documents    []domain.IndexedDocument
	indexedOnly  bool
	selected     int
	width        int
	height       int
	ready        bool
	err          error
	notice       string
	loading      bool
	busy         map[string]bool
	showingMenu  bool
	menuSelected ActionOption
	confirm      confirmation
	scrollOffset int
}

// NewView creates a new documents view.
func NewView(
	s *styles.Styles,
	documentService driving.DocumentService,
	indexService driving.IndexService,
	ownerID string,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		documentService: documentService,
		indexService:    indexService,
		ownerID:         ownerID,
		ctx:             context.Background(),
		busy:            make(map[string]bool),
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load resets the selection and returns a command that lists documents.
func (v *View) Load() tea.Cmd {
	v.selected = 0
	v.scrollOffset = 0
	v.showingMenu = false
	v.confirm = confirmNone
	v.err = nil
	return v.loadDocuments()
}

func (v *View) loadDocuments() tea.Cmd {
	v.loading = true
	indexedOnly := v.indexedOnly
	return func() tea.Msg {
		if indexedOnly {
			if v.indexService == nil {
				return messages.DocumentsLoaded{Err: ErrNoService}
			}
			docs, err := v.indexService.ListIndexed(v.ctx, v.ownerID)
			return messages.DocumentsLoaded{Documents: docs, Err: err}
		}
		if v.documentService == nil {
			return messages.DocumentsLoaded{Err: ErrNoService}
		}
		docs, err := v.documentService.List(v.ctx, v.ownerID)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch {
		case v.confirm != confirmNone:
			return v.handleConfirmKey(msg)
		case v.showingMenu:
			return v.handleMenuKeyMsg(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.documents = msg.Documents
		v.err = nil
		if v.selected >= len(v.documents) {
			v.selected = max(len(v.documents)-1, 0)
		}
		v.adjustScroll()
		return v, nil

	case messages.DocumentIndexed:
		delete(v.busy, msg.DocumentID)
		return v, v.afterChange(msg.Err, v.indexNotice(msg))

	case messages.DocumentDeindexed:
		delete(v.busy, msg.DocumentID)
		return v, v.afterChange(msg.Err, "Removed from index")

	case messages.DocumentDeleted:
		delete(v.busy, msg.DocumentID)
		return v, v.afterChange(msg.Err, "Document deleted")

	case messages.IndexCleared:
		return v, v.afterChange(msg.Err, "Index cleared")

	case messages.DocumentOpened:
		if msg.Err != nil {
			v.err = msg.Err
		} else {
			v.notice = "Opened in default application"
		}
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// afterChange reports the outcome of a mutation and reloads the list.
func (v *View) afterChange(err error, notice string) tea.Cmd {
	if err != nil {
		v.err = err
		v.notice = ""
	} else {
		v.err = nil
		v.notice = notice
	}
	return v.loadDocuments()
}

func (v *View) indexNotice(msg messages.DocumentIndexed) string {
	if msg.Status == nil {
		return "Indexed"
	}
	return fmt.Sprintf("Indexed %d chunks", msg.Status.TotalChunks)
}

// handleKeyMsg handles key presses in list mode.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "enter":
		if len(v.documents) > 0 {
			v.showingMenu = true
			v.menuSelected = ActionShowContent
		}
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case "r":
		v.notice = ""
		return v, v.loadDocuments()
	case "f":
		v.indexedOnly = !v.indexedOnly
		return v, v.Load()
	case "C":
		v.confirm = confirmClear
	}

	return v, nil
}

// handleMenuKeyMsg handles key presses in action menu mode.
func (v *View) handleMenuKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.menuSelected > ActionShowContent {
			v.menuSelected--
		}
	case "down", "j":
		if v.menuSelected < ActionCancel {
			v.menuSelected++
		}
	case "enter":
		return v.handleMenuSelect()
	case "esc":
		v.showingMenu = false
	}

	return v, nil
}

func (v *View) handleConfirmKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	pending := v.confirm
	v.confirm = confirmNone
	if msg.String() != "y" {
		return v, nil
	}

	switch pending {
	case confirmDelete:
		if doc := v.SelectedDocument(); doc != nil {
			return v, v.deleteDocument(doc.Document.ID)
		}
	case confirmClear:
		return v, v.clearIndex()
	case confirmNone:
	}
	return v, nil
}

// handleMenuSelect handles selection of an action.
func (v *View) handleMenuSelect() (*View, tea.Cmd) {
	v.showingMenu = false
	doc := v.SelectedDocument()
	if doc == nil {
		return v, nil
	}
	id := doc.Document.ID

	switch v.menuSelected {
	case ActionShowContent:
		selected := *doc
		return v, func() tea.Msg {
			return messages.DocumentSelected{Document: selected}
		}
	case ActionShowDetails:
		return v, v.loadDocDetails(id)
	case ActionIndex:
		return v, v.indexDocument(id)
	case ActionDeindex:
		return v, v.deindexDocument(id)
	case ActionOpenDocument:
		return v, v.openDocument(id)
	case ActionDelete:
		v.confirm = confirmDelete
	case ActionCancel:
	}

	return v, nil
}

func (v *View) loadDocDetails(docID string) tea.Cmd {
	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentDetailsLoaded{DocumentID: docID, Err: ErrNoService}
		}
		details, err := v.documentService.GetDetails(v.ctx, v.ownerID, docID)
		return messages.DocumentDetailsLoaded{DocumentID: docID, Details: details, Err: err}
	}
}

func (v *View) indexDocument(docID string) tea.Cmd {
	v.busy[docID] = true
	v.notice = ""
	return func() tea.Msg {
		if v.indexService == nil {
			return messages.DocumentIndexed{DocumentID: docID, Err: ErrNoService}
		}
		st, err := v.indexService.Index(v.ctx, v.ownerID, docID)
		return messages.DocumentIndexed{DocumentID: docID, Status: st, Err: err}
	}
}

func (v *View) deindexDocument(docID string) tea.Cmd {
	v.busy[docID] = true
	v.notice = ""
	return func() tea.Msg {
		if v.indexService == nil {
			return messages.DocumentDeindexed{DocumentID: docID, Err: ErrNoService}
		}
		st, err := v.indexService.Deindex(v.ctx, v.ownerID, docID)
		return messages.DocumentDeindexed{DocumentID: docID, Status: st, Err: err}
	}
}

func (v *View) deleteDocument(docID string) tea.Cmd {
	v.busy[docID] = true
	v.notice = ""
	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentDeleted{DocumentID: docID, Err: ErrNoService}
		}
		return messages.DocumentDeleted{DocumentID: docID, Err: v.documentService.Delete(v.ctx, v.ownerID, docID)}
	}
}

func (v *View) openDocument(docID string) tea.Cmd {
	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentOpened{DocumentID: docID, Err: ErrNoService}
		}
		return messages.DocumentOpened{DocumentID: docID, Err: v.documentService.Open(v.ctx, v.ownerID, docID)}
	}
}

func (v *View) clearIndex() tea.Cmd {
	v.notice = ""
	return func() tea.Msg {
		if v.indexService == nil {
			return messages.IndexCleared{Err: ErrNoService}
		}
		return messages.IndexCleared{Err: v.indexService.ClearAll(v.ctx, v.ownerID)}
	}
}

// adjustScroll adjusts the scroll offset to keep the selected item visible.
func (v *View) adjustScroll() {
	visibleItems := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visibleItems {
		v.scrollOffset = v.selected - visibleItems + 1
	}
}

// visibleItemCount returns the number of items that can be displayed.
func (v *View) visibleItemCount() int {
	// Title, header, notice, help and padding.
	return max(v.height-9, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	title := fmt.Sprintf("Documents (%d)", len(v.documents))
	if v.indexedOnly {
		title = fmt.Sprintf("Indexed Documents (%d)", len(v.documents))
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n\n")

	if v.loading && len(v.documents) == 0 {
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
	} else if v.notice != "" {
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n\n")
	}

	if len(v.documents) == 0 {
		empty := "No documents yet. Add some with `ragdesk document add-text|add-file|add-url`."
		if v.indexedOnly {
			empty = "No indexed documents."
		}
		b.WriteString(v.styles.Muted.Render(empty))
		b.WriteString("\n\n")
		b.WriteString(v.renderFooter())
		return b.String()
	}

	if v.showingMenu {
		b.WriteString(v.renderActionMenu())
		return b.String()
	}

	visibleItems := v.visibleItemCount()
	end := min(v.scrollOffset+visibleItems, len(v.documents))
	for i := v.scrollOffset; i < end; i++ {
		b.WriteString(v.renderDocument(i, &v.documents[i]))
		b.WriteString("\n")
	}

	if len(v.documents) > visibleItems {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1, end, len(v.documents))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderFooter())

	return b.String()
}

func (v *View) renderFooter() string {
	switch v.confirm {
	case confirmDelete:
		return v.styles.Warning.Render("Delete this document and its index entries? (y/n)")
	case confirmClear:
		return v.styles.Warning.Render("Remove every document from the index? (y/n)")
	case confirmNone:
	}
	return v.renderHelp()
}

// renderDocument renders a single document line.
func (v *View) renderDocument(index int, doc *domain.IndexedDocument) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	title := doc.Document.Title
	if title == "" {
		title = doc.Document.ID
	}
	maxTitleLen := max(v.width-40, 10)
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen-3] + "..."
	}

	state := doc.Status.State.String()
	if v.busy[doc.Document.ID] {
		state = domain.IndexProcessing.String()
	}
	kind := fmt.Sprintf("%-4s %-4s", doc.Document.Origin, doc.Document.FileType)
	chunks := ""
	if doc.Status.State == domain.IndexCompleted {
		chunks = fmt.Sprintf("%d chunks", doc.Status.TotalChunks)
	}

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s  %-10s %s",
			indicator, maxTitleLen, title, kind, state, chunks))
	}

	return v.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxTitleLen, title)) +
		v.styles.Muted.Render(kind+"  ") +
		v.styles.IndexState(domain.IndexState(state)).Render(fmt.Sprintf("%-10s", state)) +
		" " + v.styles.Muted.Render(chunks)
}

// renderActionMenu renders the action menu overlay.
func (v *View) renderActionMenu() string {
	var b strings.Builder

	if doc := v.SelectedDocument(); doc != nil {
		title := doc.Document.Title
		if title == "" {
			title = doc.Document.ID
		}
		b.WriteString(v.styles.Subtitle.Render("Actions for: " + title))
		b.WriteString("\n\n")
	}

	for _, opt := range actionLabels {
		if v.menuSelected == opt.action {
			b.WriteString(v.styles.Selected.Render("> " + opt.label))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + opt.label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] navigate  [enter] select  [esc] cancel"))

	return b.String()
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] navigate  [enter] actions  [f] indexed only  [r] reload  [C] clear index  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Documents returns the current list of documents.
func (v *View) Documents() []domain.IndexedDocument {
	return v.documents
}

// SelectedIndex returns the currently selected document index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the currently selected document.
func (v *View) SelectedDocument() *domain.IndexedDocument {
	if v.selected >= 0 && v.selected < len(v.documents) {
		return &v.documents[v.selected]
	}
	return nil
}

// IsShowingMenu returns true if the action menu is visible.
func (v *View) IsShowingMenu() bool {
	return v.showingMenu
}

// IndexedOnly reports whether the list is filtered to indexed documents.
func (v *View) IndexedOnly() bool {
	return v.indexedOnly
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
