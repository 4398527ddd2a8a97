// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// View shows the conversation of one session with a prompt underneath.
//
// The view has two modes. While the prompt is focused every key goes to
// the input; otherwise keys browse the cited sources of the latest answer.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.PromptInput
	sources   *list.SourceList
	statusbar *status.Bar

	chatService driving.ChatService
	ownerID     string
	sessionID   string
	ctx         context.Context

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool

	history  []domain.ChatMessage
	pending  string
	thinking bool
	scroll   int // transcript lines hidden below the viewport

	confirmClear bool
}

// NewView creates a chat view for the owner's default session.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	chatService driving.ChatService,
	ownerID string,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:      s,
		keymap:      km,
		input:       input.NewPromptInput(s),
		sources:     list.NewSourceList(s),
		statusbar:   status.NewBar(s, km),
		chatService: chatService,
		ownerID:     ownerID,
		sessionID:   domain.DefaultSessionID,
		ctx:         context.Background(),
		width:       80,
		height:      24,
		focusInput:  true,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithSession selects the session shown by the view.
func (v *View) WithSession(sessionID string) *View {
	if sessionID != "" {
		v.sessionID = sessionID
	}
	return v
}

// Init starts the cursor and loads the stored conversation.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.LoadHistory())
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ChatAnswered:
		v.handleAnswer(msg)
		return v, nil

	case messages.HistoryLoaded:
		v.handleHistory(msg)
		return v, nil

	case messages.HistoryCleared:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.history = nil
		v.sources.SetSources(nil)
		v.scroll = 0
		v.err = nil
		v.statusbar.SetState(status.StateChat)
		v.statusbar.SetCount(0)
		v.statusbar.SetMessage("History cleared")
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.confirmClear {
		v.confirmClear = false
		if msg.String() == "y" {
			return v, v.clearHistory()
		}
		v.statusbar.SetState(status.StateChat)
		v.statusbar.SetMessage("")
		return v, nil
	}

	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEsc:
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case tea.KeyTab:
		v.setFocus(!v.focusInput)
		return v, nil
	case tea.KeyPgUp:
		v.scroll += max(v.transcriptHeight()-1, 1)
		return v, nil
	case tea.KeyPgDown:
		v.scroll = max(v.scroll-max(v.transcriptHeight()-1, 1), 0)
		return v, nil
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			return v, v.submit()
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.Up):
		v.sources.MoveUp()
	case keymap.Matches(msg.String(), v.keymap.Down):
		v.sources.MoveDown()
	case keymap.Matches(msg.String(), v.keymap.Select):
		if src := v.sources.SelectedSource(); src != nil {
			id := src.DocumentID
			return v, func() tea.Msg {
				return messages.SourceSelected{DocumentID: id}
			}
		}
	case keymap.Matches(msg.String(), v.keymap.Ask):
		v.setFocus(true)
	case keymap.Matches(msg.String(), v.keymap.ClearHistory):
		if len(v.history) > 0 {
			v.confirmClear = true
			v.statusbar.SetState(status.StateWorking)
			v.statusbar.SetMessage("Clear this conversation? (y/n)")
		}
	}
	return v, nil
}

// submit sends the prompt's question, unless one is already in flight.
func (v *View) submit() tea.Cmd {
	question := strings.TrimSpace(v.input.Value())
	if question == "" || v.thinking {
		return nil
	}

	v.thinking = true
	v.pending = question
	v.scroll = 0
	v.err = nil
	v.input.Reset()
	v.setFocus(false)
	v.statusbar.SetState(status.StateThinking)
	v.statusbar.SetMessage("")

	return func() tea.Msg {
		if v.chatService == nil {
			return messages.ChatAnswered{Question: question, Err: ErrNoChatService}
		}
		answer, err := v.chatService.Send(v.ctx, v.ownerID, v.sessionID, question)
		return messages.ChatAnswered{Question: question, Answer: answer, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.ChatAnswered) {
	v.thinking = false
	v.pending = ""

	if msg.Err != nil {
		// The question is stored even when answering fails.
		if !errors.Is(msg.Err, ErrNoChatService) {
			v.history = append(v.history, domain.ChatMessage{Role: domain.RoleUser, Content: msg.Question})
		}
		v.input.SetValue(msg.Question)
		v.setFocus(true)
		v.setError(msg.Err)
		return
	}

	v.history = append(v.history,
		domain.ChatMessage{
			SessionID: v.sessionID,
			Role:      domain.RoleUser,
			Content:   msg.Question,
			CreatedAt: msg.Answer.Timestamp,
		},
		domain.ChatMessage{
			SessionID: v.sessionID,
			Role:      domain.RoleAssistant,
			Content:   msg.Answer.Content,
			Sources:   msg.Answer.Sources,
			CreatedAt: msg.Answer.Timestamp,
		},
	)
	v.showSources(msg.Answer.Sources)
}

func (v *View) handleHistory(msg messages.HistoryLoaded) {
	if msg.Err != nil && !errors.Is(msg.Err, domain.ErrNotFound) {
		v.setError(msg.Err)
		return
	}

	v.history = msg.Messages
	v.scroll = 0
	v.err = nil

	var last []domain.SourceAttribution
	for i := len(v.history) - 1; i >= 0; i-- {
		if v.history[i].Role == domain.RoleAssistant {
			last = v.history[i].Sources
			break
		}
	}
	v.showSources(last)
}

func (v *View) showSources(sources []domain.SourceAttribution) {
	v.err = nil
	v.sources.SetSources(sources)
	v.statusbar.SetState(status.StateChat)
	v.statusbar.SetMessage("")
	v.statusbar.SetCount(len(sources))
}

func (v *View) setError(err error) {
	if err == nil {
		return
	}
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

func (v *View) setFocus(input bool) {
	v.focusInput = input
	if input {
		v.input.Focus()
		return
	}
	v.input.Blur()
}

// LoadHistory returns a command that fetches the session's messages.
func (v *View) LoadHistory() tea.Cmd {
	return func() tea.Msg {
		if v.chatService == nil {
			return messages.HistoryLoaded{Err: ErrNoChatService}
		}
		msgs, err := v.chatService.History(v.ctx, v.ownerID, v.sessionID)
		return messages.HistoryLoaded{Messages: msgs, Err: err}
	}
}

func (v *View) clearHistory() tea.Cmd {
	v.statusbar.SetState(status.StateWorking)
	v.statusbar.SetMessage("Clearing history...")
	return func() tea.Msg {
		if v.chatService == nil {
			return messages.HistoryCleared{Err: ErrNoChatService}
		}
		return messages.HistoryCleared{Err: v.chatService.ClearHistory(v.ctx, v.ownerID, v.sessionID)}
	}
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)
	sections = append(sections, v.styles.Title.Render("Chat")+" "+v.styles.Muted.Render(v.sessionID), "")
	sections = append(sections, v.renderTranscript())

	if v.err != nil {
		sections = append(sections, "", v.styles.Error.Render("Error: "+v.err.Error()))
	}
	if !v.sources.IsEmpty() {
		sections = append(sections, "", v.sources.View())
	}

	sections = append(sections, "", v.input.View(), "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderTranscript wraps the conversation and keeps the newest lines in view.
func (v *View) renderTranscript() string {
	lines := v.transcriptLines()
	if len(lines) == 0 {
		return v.styles.Muted.Render("No messages yet. Ask something about your indexed documents.")
	}

	height := v.transcriptHeight()
	v.scroll = min(v.scroll, max(len(lines)-height, 0))
	end := len(lines) - v.scroll
	start := max(end-height, 0)
	return strings.Join(lines[start:end], "\n")
}

func (v *View) transcriptLines() []string {
	wrap := lipgloss.NewStyle().Width(max(v.width-4, 20))

	var lines []string
	add := func(label lipgloss.Style, who, text string) {
		lines = append(lines, label.Render(who))
		lines = append(lines, strings.Split(wrap.Render(text), "\n")...)
	}

	for i := range v.history {
		msg := &v.history[i]
		if msg.Role == domain.RoleUser {
			add(v.styles.UserMessage, "You", msg.Content)
		} else {
			add(v.styles.AssistantMessage, "Assistant", msg.Content)
			if cites := citations(msg.Sources); cites != "" {
				lines = append(lines, strings.Split(wrap.Inherit(v.styles.Citation).Render(cites), "\n")...)
			}
		}
		lines = append(lines, "")
	}

	if v.thinking {
		add(v.styles.UserMessage, "You", v.pending)
		lines = append(lines, v.styles.Muted.Render("Thinking..."))
	}
	return lines
}

// transcriptHeight is the number of lines left for the conversation.
func (v *View) transcriptHeight() int {
	reserved := 10
	if n := v.sources.Count(); n > 0 {
		reserved += min(n, 5) + 2
	}
	return max(v.height-reserved, 3)
}

func citations(sources []domain.SourceAttribution) string {
	if len(sources) == 0 {
		return ""
	}
	parts := make([]string, 0, len(sources))
	for i, src := range sources {
		parts = append(parts, fmt.Sprintf("[%d] %s", i+1, src.Title))
	}
	return "Sources: " + strings.Join(parts, ", ")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.sources.SetDimensions(width, 6)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// History returns the messages shown in the transcript.
func (v *View) History() []domain.ChatMessage {
	return v.history
}

// Thinking reports whether a question is awaiting its answer.
func (v *View) Thinking() bool {
	return v.thinking
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the prompt has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Reset focuses an empty prompt and clears any error.
func (v *View) Reset() {
	v.setFocus(true)
	v.input.Reset()
	v.err = nil
	v.confirmClear = false
	v.statusbar.SetState(status.StateChat)
	v.statusbar.SetMessage("")
}
