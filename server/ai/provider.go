// Package ai wraps the OpenAI-compatible chat completion API used to
// generate assistant replies.
package ai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/plume-chat/plume/internal/profile"
)

// Config holds the LLM provider configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	ChatModel   string
	MaxTokens   int
	Temperature float32
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://api.openai.com/v1",
		ChatModel:   "gpt-3.5-turbo",
		MaxTokens:   500,
		Temperature: 0.7,
	}
}

// NewConfigFromProfile builds the provider config from the profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := DefaultConfig()
	if p.LLMBaseURL != "" {
		cfg.BaseURL = p.LLMBaseURL
	}
	if p.LLMModel != "" {
		cfg.ChatModel = p.LLMModel
	}
	if p.LLMMaxTokens > 0 {
		cfg.MaxTokens = p.LLMMaxTokens
	}
	cfg.APIKey = p.LLMAPIKey
	return cfg
}

// Provider provides chat completion against any OpenAI-compatible API.
type Provider struct {
	client *openai.Client
	config *Config
}

// NewProvider creates a new LLM provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required, set PLUME_LLM_API_KEY")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-3.5-turbo"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Model returns the configured chat model name.
func (p *Provider) Model() string {
	return p.config.ChatModel
}

// Complete turns a context prompt into reply text. The system prompt
// frames the assistant; the full assembled context arrives as the user
// message.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: p.config.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a helpful assistant that learns from user interactions.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat response")
	}
	return resp.Choices[0].Message.Content, nil
}
