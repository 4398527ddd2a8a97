package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

func indexTexts(t *testing.T, p *pipeline, owner string, texts ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(texts))
	for _, text := range texts {
		id := p.addText(t, owner, text)
		_, err := p.index.Index(context.Background(), owner, id)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestRetrievalEngine_NoIndexedDocuments(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	p.addText(t, "alice", "The sky is blue.")

	answer, err := p.retrieval.Send(ctx, "alice", "s1", "What color is the sky?")
	require.NoError(t, err)
	assert.Equal(t, domain.NoRelevantInformation, answer.Content)
	assert.NotNil(t, answer.Sources)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, p.llm.calls)

	history, err := p.retrieval.History(ctx, "alice", "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "What color is the sky?", history[0].Content)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	assert.Equal(t, domain.NoRelevantInformation, history[1].Content)
}

func TestRetrievalEngine_GroundedAnswer(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	ids := indexTexts(t, p, "alice", "The sky is blue.", "Grass is green.")
	skyID, grassID := ids[0], ids[1]

	answer, err := p.retrieval.Send(ctx, "alice", "s1", "What color is the sky?")
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", answer.Content)
	assert.False(t, answer.Timestamp.IsZero())

	require.Len(t, answer.Sources, 2)
	assert.Equal(t, skyID, answer.Sources[0].DocumentID)
	assert.Equal(t, grassID, answer.Sources[1].DocumentID)
	assert.Greater(t, answer.Sources[0].Score, answer.Sources[1].Score)
	assert.Equal(t, "txt", answer.Sources[0].Type)
	assert.True(t, strings.HasPrefix(answer.Sources[0].Title, "Text Document - "))

	// The best chunk is first in the context block.
	assert.Contains(t, p.llm.system, "[Source 1]: The sky is blue.")
	assert.Contains(t, p.llm.system, "[Source 2]: Grass is green.")
	assert.Equal(t, "What color is the sky?", p.llm.message)
	assert.InDelta(t, DefaultRetrievalConfig().Temperature, p.llm.opts.Temperature, 1e-9)

	history, err := p.retrieval.History(ctx, "alice", "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, answer.Content, history[1].Content)
	assert.Equal(t, answer.Sources, history[1].Sources)
}

func TestRetrievalEngine_TopKLimitsContext(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	ids := indexTexts(t, p, "alice", "The sky is blue.", "Grass is green.")

	cfg := DefaultRetrievalConfig()
	cfg.TopK = 1
	engine := NewRetrievalEngine(p.store, p.store, p.vectors, p.embedder, p.llm, cfg)

	answer, err := engine.Send(ctx, "alice", "", "What color is the sky?")
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, ids[0], answer.Sources[0].DocumentID)
	assert.NotContains(t, p.llm.system, "Grass")
}

func TestRetrievalEngine_OnlyOwnersCompletedDocuments(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	skyID := indexTexts(t, p, "alice", "The sky is blue.")[0]
	p.addText(t, "alice", "The sky is green in the story.")
	indexTexts(t, p, "bob", "The sky is blue over the ocean.")

	answer, err := p.retrieval.Send(ctx, "alice", "s1", "What color is the sky?")
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, skyID, answer.Sources[0].DocumentID)
	assert.NotContains(t, p.llm.system, "ocean")
	assert.NotContains(t, p.llm.system, "story")
}

func TestRetrievalEngine_SourcesDeduplicatedPerDocument(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	id := indexTexts(t, p, "alice", longText)[0]

	answer, err := p.retrieval.Send(ctx, "alice", "s1", "What color is the sky?")
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, id, answer.Sources[0].DocumentID)
	assert.Contains(t, p.llm.system, "[Source 3]:")
}

func TestRetrievalEngine_OrphanVectorsAreSkipped(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	indexTexts(t, p, "alice", "The sky is blue.")
	p.vectors.hits = []driven.VectorHit{{ID: "ghost", Score: 0.99}}

	answer, err := p.retrieval.Send(ctx, "alice", "s1", "What color is the sky?")
	require.NoError(t, err)
	assert.Equal(t, domain.NoRelevantInformation, answer.Content)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, p.llm.calls)
}

func TestRetrievalEngine_ProviderFailuresKeepQuestion(t *testing.T) {
	tests := []struct {
		name   string
		inject func(p *pipeline)
	}{
		{"embedding", func(p *pipeline) { p.embedder.embedErr = errInjected }},
		{"search", func(p *pipeline) { p.vectors.searchErr = errInjected }},
		{"llm", func(p *pipeline) { p.llm.err = errInjected }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t)
			ctx := context.Background()
			indexTexts(t, p, "alice", "The sky is blue.")
			tt.inject(p)

			answer, err := p.retrieval.Send(ctx, "alice", "s1", "What color is the sky?")
			assert.Nil(t, answer)
			assert.ErrorIs(t, err, domain.ErrRetrievalFailed)
			assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

			history, err := p.retrieval.History(ctx, "alice", "s1")
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, domain.RoleUser, history[0].Role)
		})
	}
}

func TestRetrievalEngine_EmptyMessage(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	_, err := p.retrieval.Send(ctx, "alice", "s1", "  \n ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	sessions, err := p.retrieval.Sessions(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRetrievalEngine_DefaultSession(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	_, err := p.retrieval.Send(ctx, "alice", "", "hello")
	require.NoError(t, err)

	history, err := p.retrieval.History(ctx, "alice", domain.DefaultSessionID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	history, err = p.retrieval.History(ctx, "alice", "")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRetrievalEngine_HistoryAndClear(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	_, err := p.retrieval.History(ctx, "alice", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = p.retrieval.Send(ctx, "alice", "s1", "first")
	require.NoError(t, err)
	_, err = p.retrieval.Send(ctx, "alice", "s1", "second")
	require.NoError(t, err)

	history, err := p.retrieval.History(ctx, "alice", "s1")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[2].Content)

	// Sessions are private to their owner.
	_, err = p.retrieval.History(ctx, "bob", "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, p.retrieval.ClearHistory(ctx, "alice", "s1"))
	require.NoError(t, p.retrieval.ClearHistory(ctx, "alice", "s1"))
	require.NoError(t, p.retrieval.ClearHistory(ctx, "alice", "never-existed"))

	history, err = p.retrieval.History(ctx, "alice", "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRetrievalEngine_CustomPrompts(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	p.retrieval.SetPromptStore(&mockPromptStore{prompts: map[string]string{
		driven.PromptNoContext:      "Nothing indexed yet.",
		driven.PromptGroundedAnswer: "Answer briefly.",
	}})

	answer, err := p.retrieval.Send(ctx, "alice", "s1", "What color is the sky?")
	require.NoError(t, err)
	assert.Equal(t, "Nothing indexed yet.", answer.Content)

	indexTexts(t, p, "alice", "The sky is blue.")
	_, err = p.retrieval.Send(ctx, "alice", "s1", "What color is the sky?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.llm.system, "Answer briefly.\n\nContext:\n[Source 1]: The sky is blue."))
}

func TestRetrievalEngine_PromptStoreErrorFallsBack(t *testing.T) {
	p := newPipeline(t)
	p.retrieval.SetPromptStore(&mockPromptStore{err: errInjected})

	answer, err := p.retrieval.Send(context.Background(), "alice", "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.NoRelevantInformation, answer.Content)
}

func TestGroundedPrompt(t *testing.T) {
	tests := []struct {
		name     string
		template string
		block    string
		want     string
	}{
		{"placeholder", "Context:\n%s\nEnd", "BLOCK", "Context:\nBLOCK\nEnd"},
		{"no placeholder", "Be brief.\n", "BLOCK", "Be brief.\n\nContext:\nBLOCK"},
		{"two placeholders", "%s and %s", "BLOCK", "%s and %s\n\nContext:\nBLOCK"},
		{"literal percent", "Answer if under 50% is noise.\n%s", "BLOCK", "Answer if under 50% is noise.\nBLOCK"},
		{"percent in block", "Context: %s", "100%d sure", "Context: 100%d sure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, groundedPrompt(tt.template, tt.block))
		})
	}
}
