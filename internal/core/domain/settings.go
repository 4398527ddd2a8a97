package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendMemory keeps vectors in process memory. Nothing survives a restart.
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendQdrant stores vectors in a Qdrant collection.
	VectorBackendQdrant VectorBackend = "qdrant"

	// VectorBackendPgvector stores vectors in a Postgres table with the pgvector extension.
	VectorBackendPgvector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendQdrant, VectorBackendPgvector:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b VectorBackend) Description() string {
	switch b {
	case VectorBackendMemory:
		return "In-memory (ephemeral)"
	case VectorBackendQdrant:
		return "Qdrant (REST)"
	case VectorBackendPgvector:
		return "Postgres + pgvector"
	default:
		return unknownDescription
	}
}

// VectorIndexSettings holds vector index configuration.
type VectorIndexSettings struct {
	// Backend is the vector store implementation.
	Backend VectorBackend

	// URL is the Qdrant endpoint.
	URL string

	// APIKey authenticates against Qdrant Cloud.
	APIKey string

	// Collection is the Qdrant collection or pgvector table name.
	Collection string

	// DSN is the Postgres connection string for pgvector.
	DSN string

	// Dimensions is the embedding vector size.
	Dimensions int
}

// ChunkingSettings controls the chunker window.
type ChunkingSettings struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int

	// Strategy names the chunker ("recursive" or "fixed").
	Strategy string
}

// RetrievalSettings controls answer generation.
type RetrievalSettings struct {
	// TopK is the number of nearest chunks used as context.
	TopK int

	// Temperature is the LLM sampling temperature.
	Temperature float64
}

// TimeoutSettings bounds each external provider call.
type TimeoutSettings struct {
	Embedding time.Duration
	Vector    time.Duration
	LLM       time.Duration
}

// CacheSettings configures the optional embedding cache.
type CacheSettings struct {
	// RedisURL enables the cache when non-empty.
	RedisURL string

	// TTL is how long cached embeddings live.
	TTL time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorIndex VectorIndexSettings
	Chunking    ChunkingSettings
	Retrieval   RetrievalSettings
	Timeouts    TimeoutSettings
	Cache       CacheSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Both AI providers default to a local Ollama instance.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    DefaultLLMModels()[AIProviderOllama],
		},
		VectorIndex: VectorIndexSettings{
			Backend:    VectorBackendMemory,
			Collection: "documents",
			Dimensions: 768, // nomic-embed-text
		},
		Chunking: ChunkingSettings{
			Size:     1000,
			Overlap:  200,
			Strategy: "recursive",
		},
		Retrieval: RetrievalSettings{
			TopK:        3,
			Temperature: 0.1,
		},
		Timeouts: TimeoutSettings{
			Embedding: 30 * time.Second,
			Vector:    15 * time.Second,
			LLM:       120 * time.Second,
		},
		Cache: CacheSettings{
			TTL: 24 * time.Hour,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// AllVectorBackends returns all available vector backends.
func AllVectorBackends() []VectorBackend {
	return []VectorBackend{
		VectorBackendMemory,
		VectorBackendQdrant,
		VectorBackendPgvector,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
