package services

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyVectorBackend    = "vector.backend"
	keyVectorURL        = "vector.url"
	keyVectorAPIKey     = "vector.api_key"
	keyVectorCollection = "vector.collection"
	keyVectorDSN        = "vector.dsn"
	keyVectorDims       = "vector.dimensions"
	keyChunkSize        = "chunking.size"
	keyChunkOverlap     = "chunking.overlap"
	keyChunkStrategy    = "chunking.strategy"
	keyTopK             = "retrieval.top_k"
	keyTemperature      = "retrieval.temperature"
	keyTimeoutEmbedding = "timeouts.embedding"
	keyTimeoutVector    = "timeouts.vector"
	keyTimeoutLLM       = "timeouts.llm"
	keyCacheRedisURL    = "cache.redis_url"
	keyCacheTTL         = "cache.ttl"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		VectorIndex: domain.VectorIndexSettings{
			Backend:    s.getBackend(defaults.VectorIndex.Backend),
			URL:        s.configStore.GetString(keyVectorURL),
			APIKey:     s.configStore.GetString(keyVectorAPIKey),
			Collection: s.getString(keyVectorCollection, defaults.VectorIndex.Collection),
			DSN:        s.configStore.GetString(keyVectorDSN),
			Dimensions: s.getInt(keyVectorDims, defaults.VectorIndex.Dimensions),
		},
		Chunking: domain.ChunkingSettings{
			Size:     s.getInt(keyChunkSize, defaults.Chunking.Size),
			Overlap:  s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
			Strategy: s.getString(keyChunkStrategy, defaults.Chunking.Strategy),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:        s.getInt(keyTopK, defaults.Retrieval.TopK),
			Temperature: s.getFloat(keyTemperature, defaults.Retrieval.Temperature),
		},
		Timeouts: domain.TimeoutSettings{
			Embedding: s.getDuration(keyTimeoutEmbedding, defaults.Timeouts.Embedding),
			Vector:    s.getDuration(keyTimeoutVector, defaults.Timeouts.Vector),
			LLM:       s.getDuration(keyTimeoutLLM, defaults.Timeouts.LLM),
		},
		Cache: domain.CacheSettings{
			RedisURL: s.configStore.GetString(keyCacheRedisURL),
			TTL:      s.getDuration(keyCacheTTL, defaults.Cache.TTL),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyVectorBackend, settings.VectorIndex.Backend.String()},
		{keyVectorURL, settings.VectorIndex.URL},
		{keyVectorCollection, settings.VectorIndex.Collection},
		{keyVectorDSN, settings.VectorIndex.DSN},
		{keyVectorDims, settings.VectorIndex.Dimensions},
		{keyChunkSize, settings.Chunking.Size},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyChunkStrategy, settings.Chunking.Strategy},
		{keyTopK, settings.Retrieval.TopK},
		{keyTemperature, settings.Retrieval.Temperature},
		{keyTimeoutEmbedding, settings.Timeouts.Embedding.String()},
		{keyTimeoutVector, settings.Timeouts.Vector.String()},
		{keyTimeoutLLM, settings.Timeouts.LLM.String()},
		{keyCacheRedisURL, settings.Cache.RedisURL},
		{keyCacheTTL, settings.Cache.TTL.String()},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Secrets are only written when present so an empty form never erases them.
	secrets := map[string]string{
		keyEmbedAPIKey:  settings.Embedding.APIKey,
		keyLLMAPIKey:    settings.LLM.APIKey,
		keyVectorAPIKey: settings.VectorIndex.APIKey,
	}
	for key, value := range secrets {
		if value == "" {
			continue
		}
		if err := s.configStore.Set(key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate provider supports embeddings
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	// Update vector dimensions based on model
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.VectorIndex.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetVectorBackend configures the vector index.
// location is the Qdrant URL or the Postgres DSN; it is ignored for memory.
func (s *SettingsService) SetVectorBackend(backend domain.VectorBackend, location string) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid vector backend: %s", backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	switch backend {
	case domain.VectorBackendQdrant:
		if location == "" {
			location = "http://localhost:6333"
		}
		settings.VectorIndex.URL = location
	case domain.VectorBackendPgvector:
		if location == "" {
			return fmt.Errorf("connection string required for %s", backend)
		}
		settings.VectorIndex.DSN = location
	case domain.VectorBackendMemory:
	}
	settings.VectorIndex.Backend = backend

	return s.Save(settings)
}

// SetChunking configures the chunk window.
func (s *SettingsService) SetChunking(size, overlap int) error {
	if err := validateChunking(size, overlap); err != nil {
		return err
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Chunking.Size = size
	settings.Chunking.Overlap = overlap

	return s.Save(settings)
}

// Validate checks that the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrNotConfigured, settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %q is not configured",
			domain.ErrNotConfigured, settings.LLM.Provider)
	}

	switch settings.VectorIndex.Backend {
	case domain.VectorBackendQdrant:
		if settings.VectorIndex.URL == "" {
			return fmt.Errorf("%w: qdrant backend requires vector.url", domain.ErrNotConfigured)
		}
	case domain.VectorBackendPgvector:
		if settings.VectorIndex.DSN == "" {
			return fmt.Errorf("%w: pgvector backend requires vector.dsn", domain.ErrNotConfigured)
		}
	case domain.VectorBackendMemory:
	default:
		return fmt.Errorf("%w: unknown vector backend %q", domain.ErrNotConfigured, settings.VectorIndex.Backend)
	}

	if err := validateChunking(settings.Chunking.Size, settings.Chunking.Overlap); err != nil {
		return err
	}
	if settings.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", domain.ErrInvalidInput)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func validateChunking(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", domain.ErrInvalidInput)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap must be in [0, %d)", domain.ErrInvalidInput, size)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getFloat accepts TOML floats, integers and numeric strings.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	raw, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getDuration parses duration strings such as "45s" or "2m".
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	val := s.configStore.GetString(keyVectorBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.VectorBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
