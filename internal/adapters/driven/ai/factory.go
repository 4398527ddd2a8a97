// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/embedding/cache"
	ollamaembed "github.com/custodia-labs/ragdesk/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ragdesk/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/ragdesk/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/ragdesk/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/ragdesk/internal/adapters/driven/llm/openai"
	vectormem "github.com/custodia-labs/ragdesk/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/vector/pgvector"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the providers built from application settings.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	VectorIndex      driven.VectorIndex
	Warnings         []string // Non-fatal issues found while connecting.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init builds every provider named by settings.
//
// Construction errors are fatal. An unreachable embedding or LLM provider is
// only recorded as a warning: documents can still be created and listed, and
// the first call that needs the provider reports domain.ErrProviderUnavailable.
func Init(ctx context.Context, settings *domain.AppSettings) (*InitResult, error) {
	result := &InitResult{}

	embedder, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create embedding service: %w", err)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding provider %q. Run 'ragdesk settings' to fix",
			domain.ErrNotConfigured, settings.Embedding.Provider)
	}
	if settings.Cache.RedisURL != "" {
		store, err := cache.NewRedisStore(settings.Cache.RedisURL)
		if err != nil {
			embedder.Close()
			return nil, fmt.Errorf("create embedding cache: %w", err)
		}
		embedder = cache.New(embedder, store, settings.Cache.TTL)
	}
	result.EmbeddingService = embedder

	llm, err := CreateLLMService(&settings.LLM)
	if err != nil {
		result.Close()
		return nil, fmt.Errorf("create LLM service: %w", err)
	}
	if llm == nil {
		result.Close()
		return nil, fmt.Errorf("%w: LLM provider %q. Run 'ragdesk settings' to fix",
			domain.ErrNotConfigured, settings.LLM.Provider)
	}
	result.LLMService = llm

	vectors, err := CreateVectorIndex(ctx, &settings.VectorIndex, settings.Timeouts.Vector)
	if err != nil {
		result.Close()
		return nil, fmt.Errorf("create vector index: %w", err)
	}
	result.VectorIndex = vectors

	if err := ping(ctx, embedder.Ping); err != nil {
		result.warn("embedding provider %s unreachable: %v", settings.Embedding.Provider, err)
	}
	if err := ping(ctx, llm.Ping); err != nil {
		result.warn("LLM provider %s unreachable: %v", settings.LLM.Provider, err)
	}

	return result, nil
}

func (r *InitResult) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Warn("%s", msg)
	r.Warnings = append(r.Warnings, msg)
}

func ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return fn(ctx)
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
// This is intended for use in the settings command to validate credentials on configuration.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	return ping(context.Background(), svc.Ping)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
// This is intended for use in the settings command to validate credentials on configuration.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	return ping(context.Background(), svc.Ping)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama or openai",
			domain.ErrInvalidInput)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateVectorIndex creates the vector index selected by settings.
// The pgvector backend connects immediately; the others connect lazily.
func CreateVectorIndex(
	ctx context.Context,
	settings *domain.VectorIndexSettings,
	timeout time.Duration,
) (driven.VectorIndex, error) {
	switch settings.Backend {
	case domain.VectorBackendMemory, "":
		return vectormem.New(), nil

	case domain.VectorBackendQdrant:
		return qdrant.New(qdrant.Config{
			URL:        settings.URL,
			APIKey:     settings.APIKey,
			Collection: settings.Collection,
			Timeout:    timeout,
		}), nil

	case domain.VectorBackendPgvector:
		return pgvector.Open(ctx, pgvector.Config{
			DSN:            settings.DSN,
			Table:          settings.Collection,
			ConnectTimeout: timeout,
		})

	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrNotConfigured, settings.Backend)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := domain.EmbeddingDimensions()[settings.Model]

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
