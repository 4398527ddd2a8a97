package list

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func sampleSources() []domain.SourceAttribution {
	return []domain.SourceAttribution{
		{DocumentID: "d1", Title: "Handbook", Type: "pdf", Score: 0.91},
		{DocumentID: "d2", Title: "Release notes", Type: "md", Score: 0.72},
		{DocumentID: "d3", Title: "", Type: "", Score: 0.40},
	}
}

func TestNewSourceList(t *testing.T) {
	l := NewSourceList(styles.DefaultStyles())

	require.NotNil(t, l)
	assert.True(t, l.IsEmpty())
	assert.Nil(t, l.SelectedSource())
	assert.Nil(t, l.Init())
}

func TestNewSourceList_NilStyles(t *testing.T) {
	l := NewSourceList(nil)

	assert.NotNil(t, l.styles)
}

func TestSourceList_EmptyView(t *testing.T) {
	assert.Equal(t, "", NewSourceList(nil).View())
}

func TestSourceList_SetSources(t *testing.T) {
	l := NewSourceList(nil)
	l.SetSources(sampleSources())
	l.MoveDown()

	l.SetSources(sampleSources()[:2])

	assert.Equal(t, 2, l.Count())
	assert.Equal(t, 0, l.Selected())
	assert.Len(t, l.Sources(), 2)
}

func TestSourceList_Navigation(t *testing.T) {
	l := NewSourceList(nil)
	l.SetSources(sampleSources())

	l.MoveUp()
	assert.Equal(t, 0, l.Selected())

	l.Update(tea.KeyMsg{Type: tea.KeyDown})
	l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	l.MoveDown()
	assert.Equal(t, 2, l.Selected())
	assert.Equal(t, "d3", l.SelectedSource().DocumentID)

	l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, "d2", l.SelectedSource().DocumentID)
}

func TestSourceList_View(t *testing.T) {
	l := NewSourceList(nil)
	l.SetDimensions(100, 10)
	l.SetSources(sampleSources())

	view := l.View()

	assert.Contains(t, view, "Sources (3)")
	assert.Contains(t, view, "[1]")
	assert.Contains(t, view, "Handbook")
	assert.Contains(t, view, "91%")
	assert.Contains(t, view, "Release notes")
	assert.Contains(t, view, "(Untitled)")
}

func TestSourceList_ViewScrollsToSelection(t *testing.T) {
	l := NewSourceList(nil)
	l.SetDimensions(100, 2)
	l.SetSources(sampleSources())
	l.MoveDown()
	l.MoveDown()

	view := l.View()

	assert.Contains(t, view, "[3]")
	assert.NotContains(t, view, "Handbook")
}

func TestSourceList_TruncatesLongTitles(t *testing.T) {
	l := NewSourceList(nil)
	l.SetDimensions(40, 10)
	l.SetSources([]domain.SourceAttribution{{Title: "A very long document title that cannot fit"}})

	view := l.View()

	assert.Contains(t, view, "...")
	assert.NotContains(t, view, "cannot fit")
}
