package agent

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"

	"geoagent/internal/config"
	"geoagent/internal/logger"
)

// ErrMissingAPIKey is returned when the configured API key environment
// variable is empty.
var ErrMissingAPIKey = errors.New("model API key not found")

// ChatCompleter is the model-provider boundary. The production
// implementation is the go-openai client pointed at an OpenAI-compatible
// endpoint; tests substitute a scripted fake.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewModelClient builds the chat-completions client for the configured
// provider (DeepSeek by default, or any OpenAI-compatible endpoint).
func NewModelClient(cfg *config.Config) (*openai.Client, error) {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		logger.Errorf("No API key found in environment variable %s", cfg.Model.APIKeyEnv)
		return nil, ErrMissingAPIKey
	}

	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = cfg.Model.Provider

	logger.Successf("Model client initialized for %s (%s)", cfg.Model.Name, cfg.Model.Provider)
	return openai.NewClientWithConfig(clientConfig), nil
}
