package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/views/doccontent"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/views/docdetails"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/views/menu"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles

	menuView       *menu.View
	chatView       *chat.View
	documentsView  *documents.View
	docContentView *doccontent.View
	docDetailsView *docdetails.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	return &App{
		ports:          ports,
		ctx:            context.Background(),
		styles:         s,
		menuView:       menu.NewView(s),
		chatView:       chat.NewView(s, nil, ports.Chat, ports.OwnerID),
		documentsView:  documents.NewView(s, ports.Document, ports.Index, ports.OwnerID),
		docContentView: doccontent.NewView(s, ports.Index, ports.OwnerID),
		docDetailsView: docdetails.NewView(s),
		currentView:    messages.ViewMenu,
	}, nil
}

// WithContext sets the context used for every service call.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	a.docContentView.WithContext(ctx)
	return a
}

// WithSession selects the chat session used by the chat view.
func (a *App) WithSession(sessionID string) *App {
	a.chatView.WithSession(sessionID)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("ragdesk"),
		a.loadSummary(),
	)
}

// loadSummary lists documents so the menu can show how many are indexed.
func (a *App) loadSummary() tea.Cmd {
	return func() tea.Msg {
		docs, err := a.ports.Document.List(a.ctx, a.ports.OwnerID)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

// loadDocument fetches a cited document for the content view.
func (a *App) loadDocument(documentID string) tea.Cmd {
	return func() tea.Msg {
		doc, err := a.ports.Document.Get(a.ctx, a.ports.OwnerID, documentID)
		return messages.DocumentLoaded{Document: doc, Err: err}
	}
}

// Update implements tea.Model.
//
//nolint:gocognit,gocyclo,funlen // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		switch a.currentView {
		case messages.ViewMenu:
			a.menuView, cmd = a.menuView.Update(msg)
		case messages.ViewChat:
			a.chatView, cmd = a.chatView.Update(msg)
			a.err = a.chatView.Err()
		case messages.ViewDocuments:
			a.documentsView, cmd = a.documentsView.Update(msg)
		case messages.ViewDocContent:
			a.docContentView, cmd = a.docContentView.Update(msg)
		case messages.ViewDocDetails:
			a.docDetailsView, cmd = a.docDetailsView.Update(msg)
		case messages.ViewHelp:
			if msg.Type == tea.KeyEsc || msg.String() == "q" {
				a.currentView = messages.ViewMenu
			}
		}
		return a, cmd

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewMenu:
			return a, a.loadSummary()
		case messages.ViewChat:
			a.chatView.Reset()
			return a, a.chatView.Init()
		case messages.ViewDocuments:
			return a, a.documentsView.Load()
		case messages.ViewDocContent, messages.ViewDocDetails, messages.ViewHelp:
		}
		return a, nil

	case messages.ChatAnswered, messages.HistoryLoaded, messages.HistoryCleared:
		a.chatView, cmd = a.chatView.Update(msg)
		a.err = a.chatView.Err()
		return a, cmd

	case messages.SourceSelected:
		return a, a.loadDocument(msg.DocumentID)

	case messages.DocumentLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a.forwardError(msg.Err)
		}
		a.docContentView.SetDocument(*msg.Document, a.currentView)
		a.currentView = messages.ViewDocContent
		return a, nil

	case messages.DocumentsLoaded:
		// The menu summary counts all documents, so filtered lists are skipped.
		if a.currentView == messages.ViewMenu || !a.documentsView.IndexedOnly() {
			a.menuView, _ = a.menuView.Update(msg)
		}
		if a.currentView != messages.ViewMenu {
			a.documentsView, cmd = a.documentsView.Update(msg)
		}
		return a, cmd

	case messages.DocumentSelected:
		a.docContentView.SetDocument(msg.Document, messages.ViewDocuments)
		a.currentView = messages.ViewDocContent
		return a, nil

	case messages.ChunksLoaded:
		a.docContentView, cmd = a.docContentView.Update(msg)
		return a, cmd

	case messages.DocumentDetailsLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			a.documentsView, cmd = a.documentsView.Update(messages.ErrorOccurred{Err: msg.Err})
			return a, cmd
		}
		a.docDetailsView.SetDetails(msg.Details)
		a.currentView = messages.ViewDocDetails
		return a, nil

	case messages.DocumentIndexed, messages.DocumentDeindexed, messages.DocumentDeleted,
		messages.DocumentOpened, messages.IndexCleared:
		a.documentsView, cmd = a.documentsView.Update(msg)
		a.err = a.documentsView.Err()
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a.forwardError(msg.Err)

	case messages.Quit:
		return a, tea.Quit
	}

	// Forward other messages, such as cursor blinks, to the active view.
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewDocContent:
		a.docContentView, cmd = a.docContentView.Update(msg)
	case messages.ViewDocDetails:
		a.docDetailsView, cmd = a.docDetailsView.Update(msg)
	case messages.ViewHelp:
	}

	return a, cmd
}

// forwardError shows err in the active view.
func (a *App) forwardError(err error) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	msg := messages.ErrorOccurred{Err: err}
	switch a.currentView {
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewDocContent:
		a.docContentView, cmd = a.docContentView.Update(msg)
	case messages.ViewDocDetails:
		a.docDetailsView, cmd = a.docDetailsView.Update(msg)
	case messages.ViewMenu, messages.ViewHelp:
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewChat:
		return a.chatView.View()
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewDocContent:
		return a.docContentView.View()
	case messages.ViewDocDetails:
		return a.docDetailsView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	case messages.ViewMenu:
	}
	return a.menuView.View()
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Global:
  ctrl+c      Quit
  esc         Back

Menu:
  j/k, ↑/↓    Navigate options
  1-4         Jump to option
  enter       Select option
  q           Quit

Chat:
  (type)      Write a question
  enter       Send question
  tab         Switch between prompt and sources
  i           Focus the prompt
  j/k         Select a cited source
  enter       Read the selected source
  c           Clear the conversation
  PgUp/PgDn   Scroll the conversation

Documents:
  enter       Actions (content, details, index, remove, open, delete)
  f           Toggle indexed documents only
  r           Reload
  C           Clear the whole index

Content:
  t           Toggle indexed chunks
  g/G         Top/bottom

` + a.styles.Help.Render("[esc] back to menu")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sizes every view to the terminal.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
	a.docContentView.SetDimensions(width, height)
	a.docDetailsView.SetDimensions(width, height)
}
