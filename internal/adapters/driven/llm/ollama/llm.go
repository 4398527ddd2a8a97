// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/jsonapi"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService answers prompts with a local Ollama model.
// Local models are not throttled.
type LLMService struct {
	api   *jsonapi.Client
	model string
}

type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

// chatRequest is the /api/chat body. Stream is always false so the
// answer arrives as one JSON object.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		api:   jsonapi.New(jsonapi.Config{Provider: "ollama", BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}),
		model: cfg.Model,
	}
}

// Complete answers userMessage under the given system instruction.
func (s *LLMService) Complete(ctx context.Context, systemPrompt, userMessage string, opts driven.ChatOptions) (string, error) {
	return s.Chat(ctx, withSystem(systemPrompt, userMessage), opts)
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := chatRequest{
		Model:    s.model,
		Messages: make([]chatMessage, len(messages)),
		Options:  &options{NumPredict: opts.MaxTokens, Temperature: opts.Temperature},
	}
	for i, msg := range messages {
		req.Messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	var resp chatResponse
	if err := s.api.Post(ctx, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	// Ollama reports model errors in a 200 body.
	if resp.Error != "" {
		return "", fmt.Errorf("%w: ollama: %s", domain.ErrProviderUnavailable, resp.Error)
	}
	return resp.Message.Content, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks that the server answers on /api/tags.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/api/tags", nil)
}

// Close releases idle connections.
func (s *LLMService) Close() error {
	s.api.Close()
	return nil
}

func withSystem(systemPrompt, userMessage string) []driven.ChatMessage {
	messages := make([]driven.ChatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, driven.ChatMessage{Role: driven.RoleSystem, Content: systemPrompt})
	}
	return append(messages, driven.ChatMessage{Role: driven.RoleUser, Content: userMessage})
}
