package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

// Ensure RetrievalEngine implements the interface.
var _ driving.ChatService = (*RetrievalEngine)(nil)

// RetrievalConfig tunes retrieval and answer generation.
type RetrievalConfig struct {
	// TopK is the number of chunks retrieved per question.
	TopK int

	// Temperature is passed to the language model.
	Temperature float64

	// MaxTokens caps the answer length. Zero leaves it to the provider.
	MaxTokens int

	// EmbedTimeout bounds the query embedding.
	EmbedTimeout time.Duration

	// SearchTimeout bounds the vector search.
	SearchTimeout time.Duration

	// LLMTimeout bounds answer generation.
	LLMTimeout time.Duration
}

// DefaultRetrievalConfig returns the default retrieval tuning.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:          3,
		Temperature:   0.1,
		EmbedTimeout:  30 * time.Second,
		SearchTimeout: 15 * time.Second,
		LLMTimeout:    120 * time.Second,
	}
}

// RetrievalEngine answers questions grounded in an owner's indexed documents.
type RetrievalEngine struct {
	indexStore  driven.IndexStore
	chatStore   driven.ChatStore
	vectors     driven.VectorIndex
	embedder    driven.EmbeddingService
	llm         driven.LLMService
	promptStore driven.PromptStore
	cfg         RetrievalConfig

	now func() time.Time
}

// NewRetrievalEngine creates a new retrieval engine.
func NewRetrievalEngine(
	indexStore driven.IndexStore,
	chatStore driven.ChatStore,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	cfg RetrievalConfig,
) *RetrievalEngine {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultRetrievalConfig().TopK
	}
	return &RetrievalEngine{
		indexStore: indexStore,
		chatStore:  chatStore,
		vectors:    vectors,
		embedder:   embedder,
		llm:        llm,
		cfg:        cfg,
		now:        time.Now,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the engine uses the built-in prompts.
func (r *RetrievalEngine) SetPromptStore(store driven.PromptStore) {
	r.promptStore = store
}

// Send records the question, retrieves context and returns a grounded answer.
//
// The user turn is written before anything else and is kept when a later
// step fails. Failures after that point are reported as
// domain.ErrRetrievalFailed wrapping the provider error.
func (r *RetrievalEngine) Send(ctx context.Context, ownerID, sessionID, message string) (*domain.Answer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("send message: %w: message is empty", domain.ErrInvalidInput)
	}
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}

	logger.Section("Chat " + sessionID)
	logger.Debug("Question: %q", message)

	// 1. RECORD THE USER TURN
	now := r.now()
	session := &domain.ChatSession{
		ID:        sessionID,
		OwnerID:   ownerID,
		Title:     domain.DefaultSessionTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.chatStore.EnsureSession(ctx, session); err != nil {
		return nil, fmt.Errorf("ensure session: %w", err)
	}
	if err := r.chatStore.AppendMessage(ctx, ownerID, &domain.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Content:   message,
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("record question: %w", err)
	}

	// 2-6. RETRIEVE AND GENERATE
	answer, err := r.answer(ctx, ownerID, message)
	if err != nil {
		metrics.Retrievals.WithLabelValues(metrics.OutcomeFailed).Inc()
		logger.Warn("Retrieval failed for session %s: %v", sessionID, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, err)
	}

	// 7. RECORD THE ASSISTANT TURN
	if err := r.chatStore.AppendMessage(ctx, ownerID, &domain.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   answer.Content,
		Sources:   answer.Sources,
		CreatedAt: answer.Timestamp,
	}); err != nil {
		return nil, fmt.Errorf("record answer: %w", err)
	}

	outcome := metrics.OutcomeAnswered
	if len(answer.Sources) == 0 {
		outcome = metrics.OutcomeNoContext
	}
	metrics.Retrievals.WithLabelValues(outcome).Inc()

	return answer, nil
}

// History returns the messages of a session in order.
func (r *RetrievalEngine) History(ctx context.Context, ownerID, sessionID string) ([]domain.ChatMessage, error) {
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}
	if _, err := r.chatStore.GetSession(ctx, ownerID, sessionID); err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	msgs, err := r.chatStore.ListMessages(ctx, ownerID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// ClearHistory deletes the messages of a session. Idempotent.
func (r *RetrievalEngine) ClearHistory(ctx context.Context, ownerID, sessionID string) error {
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}
	if err := r.chatStore.DeleteMessages(ctx, ownerID, sessionID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

// Sessions lists the owner's chat sessions.
func (r *RetrievalEngine) Sessions(ctx context.Context, ownerID string) ([]domain.ChatSession, error) {
	sessions, err := r.chatStore.ListSessions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// answer runs retrieval and generation for one question.
func (r *RetrievalEngine) answer(ctx context.Context, ownerID, question string) (*domain.Answer, error) {
	indexed, err := r.indexStore.ListIndexed(ctx, ownerID, domain.IndexCompleted)
	if err != nil {
		return nil, fmt.Errorf("list indexed: %w", err)
	}
	if len(indexed) == 0 {
		logger.Debug("No indexed documents for %s", ownerID)
		return r.noContext(), nil
	}

	docs := make(map[string]*domain.Document, len(indexed))
	docIDs := make([]string, 0, len(indexed))
	for i := range indexed {
		docs[indexed[i].Document.ID] = &indexed[i].Document
		docIDs = append(docIDs, indexed[i].Document.ID)
	}

	// Embed the question.
	embedCtx, cancel := withTimeout(ctx, r.cfg.EmbedTimeout)
	began := time.Now()
	query, err := r.embedder.Embed(embedCtx, question)
	metrics.ObserveProvider("embedding", "embed", began, err)
	cancel()
	if err != nil {
		return nil, providerErr("embed question", err)
	}

	// Search, restricted to the owner's completed documents.
	searchCtx, cancel := withTimeout(ctx, r.cfg.SearchTimeout)
	began = time.Now()
	hits, err := r.vectors.Search(searchCtx, query, r.cfg.TopK, driven.VectorFilter{
		OwnerID:     ownerID,
		DocumentIDs: docIDs,
	})
	metrics.ObserveProvider("vector", "search", began, err)
	cancel()
	if err != nil {
		return nil, providerErr("search vectors", err)
	}

	contexts, sources, err := r.hydrate(ctx, hits, docs)
	if err != nil {
		return nil, err
	}
	if len(contexts) == 0 {
		logger.Debug("Search returned no usable chunks")
		return r.noContext(), nil
	}

	// Generate.
	systemPrompt := groundedPrompt(
		r.loadPrompt(driven.PromptGroundedAnswer, domain.GroundedAnswerPrompt),
		strings.Join(contexts, "\n\n"))

	llmCtx, cancel := withTimeout(ctx, r.cfg.LLMTimeout)
	defer cancel()
	began = time.Now()
	content, err := r.llm.Complete(llmCtx, systemPrompt, question, driven.ChatOptions{
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	metrics.ObserveProvider("llm", "complete", began, err)
	if err != nil {
		return nil, providerErr("generate answer", err)
	}

	return &domain.Answer{
		Content:   strings.TrimSpace(content),
		Sources:   sources,
		Timestamp: r.now(),
	}, nil
}

// hydrate resolves hits to chunk texts through the relational store and
// builds the ranked context block and per-document sources.
//
// A hit without a chunk row is an orphaned vector. It is logged and skipped.
func (r *RetrievalEngine) hydrate(
	ctx context.Context,
	hits []driven.VectorHit,
	docs map[string]*domain.Document,
) ([]string, []domain.SourceAttribution, error) {
	if len(hits) == 0 {
		return nil, nil, nil
	}

	ids := make([]string, len(hits))
	for i := range hits {
		ids[i] = hits[i].ID
	}
	chunks, err := r.indexStore.GetChunksByPointIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("get chunks: %w", err)
	}
	byPoint := make(map[string]*domain.Chunk, len(chunks))
	for i := range chunks {
		byPoint[chunks[i].PointID] = &chunks[i]
	}

	contexts := make([]string, 0, len(hits))
	best := make(map[string]float64)
	for _, hit := range hits {
		chunk, ok := byPoint[hit.ID]
		if !ok {
			logger.Warn("%v: vector %s has no chunk row", domain.ErrInconsistentState, hit.ID)
			continue
		}
		if _, ok := docs[chunk.DocumentID]; !ok {
			continue
		}

		contexts = append(contexts, fmt.Sprintf("[Source %d]: %s", len(contexts)+1, chunk.Text))
		if score, seen := best[chunk.DocumentID]; !seen || hit.Score > score {
			best[chunk.DocumentID] = hit.Score
		}
	}

	sources := make([]domain.SourceAttribution, 0, len(best))
	for id, score := range best {
		doc := docs[id]
		sources = append(sources, domain.SourceAttribution{
			DocumentID: id,
			Title:      doc.Title,
			Type:       doc.FileType,
			Score:      score,
		})
	}
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Score != sources[j].Score {
			return sources[i].Score > sources[j].Score
		}
		return sources[i].DocumentID < sources[j].DocumentID
	})

	return contexts, sources, nil
}

func (r *RetrievalEngine) noContext() *domain.Answer {
	return &domain.Answer{
		Content:   r.loadPrompt(driven.PromptNoContext, domain.NoRelevantInformation),
		Sources:   []domain.SourceAttribution{},
		Timestamp: r.now(),
	}
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (r *RetrievalEngine) loadPrompt(name, fallback string) string {
	if r.promptStore == nil {
		return fallback
	}
	prompt, err := r.promptStore.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return fallback
	}
	return prompt
}

// groundedPrompt places the context block at the template's %s, or
// appends it when a customised template has no placeholder. Other % signs
// in the template are kept as written.
func groundedPrompt(template, block string) string {
	if strings.Count(template, "%s") != 1 {
		return strings.TrimRight(template, "\n") + "\n\nContext:\n" + block
	}
	return strings.Replace(template, "%s", block, 1)
}
