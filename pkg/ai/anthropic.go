package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicConfig holds Anthropic credentials and model selection.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// AnthropicProvider implements Provider with the Anthropic Messages API.
type AnthropicProvider struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewAnthropicProvider constructs the provider.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &AnthropicProvider{
		api:   &client,
		model: anthropic.Model(cfg.Model),
	}, nil
}

// Name returns the provider identifier.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Model returns the configured model.
func (p *AnthropicProvider) Model() string { return string(p.model) }

// Complete sends one message and returns the first text block.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: int64(prompt.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: prompt.System}}
	}

	msg, err := p.api.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("no text content in anthropic response")
}
