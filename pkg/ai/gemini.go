package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig holds Gemini API credentials and model selection.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// GeminiProvider implements Provider with the Google GenAI SDK.
type GeminiProvider struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

// NewGeminiProvider creates a provider configured for the Gemini API backend.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiProvider{client: client, modelName: model, temperature: cfg.Temperature}, nil
}

// Name returns the provider identifier.
func (g *GeminiProvider) Name() string { return "gemini" }

// Model returns the configured model.
func (g *GeminiProvider) Model() string { return g.modelName }

// Complete sends the prompt and joins the textual parts of every candidate.
func (g *GeminiProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  int32(prompt.MaxTokens),
		Temperature:      genai.Ptr(g.temperature),
	}
	if prompt.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt.User), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(part.Text)
		}
	}

	return builder.String(), nil
}
