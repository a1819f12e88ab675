package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig defines configuration options for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// OpenAIProvider implements Provider against the OpenAI chat completion API.
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIProvider builds a new provider using the provided configuration.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIProvider{
		client: client,
		cfg:    cfg,
	}, nil
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string { return "openai" }

// Model returns the configured model.
func (p *OpenAIProvider) Model() string { return p.cfg.Model }

// Complete sends the prompt as a chat completion and returns the first choice.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt.User,
	})

	request := openai.ChatCompletionRequest{
		Model:          p.cfg.Model,
		MaxTokens:      prompt.MaxTokens,
		Temperature:    p.cfg.Temperature,
		Messages:       messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := p.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from openai")
	}

	return resp.Choices[0].Message.Content, nil
}
