package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "generation_duration_seconds",
		Help:      "Duration of upstream text generation requests",
	}, []string{"provider", "model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "generation_failures_total",
		Help:      "Number of upstream text generation failures",
	}, []string{"provider", "model"})
)

const (
	defaultMaxTokens = 2048
	defaultTimeout   = 60 * time.Second
)

// Config selects and configures the upstream provider.
type Config struct {
	Provider        string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string
	MaxTokens       int
	Temperature     float32
	Timeout         time.Duration
	Logger          zerolog.Logger
}

// Client is the process-wide handle on the upstream model. It is built once
// and never reconfigured; a client without credentials reports Available()==false.
type Client struct {
	provider  Provider
	maxTokens int
	timeout   time.Duration
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewClient builds the client for the configured provider. Missing credentials
// are not an error: the returned client is simply unavailable.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	logger := cfg.Logger.With().Str("component", "ai_client").Logger()
	client := &Client{
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		tracer:    otel.Tracer("github.com/noah-isme/gema-assessment-api/pkg/ai"),
		logger:    logger,
	}

	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = "openai"
	}

	var (
		provider Provider
		err      error
	)
	switch name {
	case "openai":
		provider, err = NewOpenAIProvider(OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
		})
	case "anthropic":
		provider, err = NewAnthropicProvider(AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
		})
	case "gemini":
		provider, err = NewGeminiProvider(ctx, GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
		})
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}

	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			logger.Warn().Str("provider", name).Msg("ai provider credentials missing; live generation unavailable")
			return client, nil
		}
		return nil, err
	}

	client.provider = provider
	logger.Info().Str("provider", provider.Name()).Str("model", provider.Model()).Msg("ai client ready")
	return client, nil
}

// NewClientWithProvider wraps an already constructed provider.
func NewClientWithProvider(provider Provider, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		provider:  provider,
		maxTokens: defaultMaxTokens,
		timeout:   timeout,
		tracer:    otel.Tracer("github.com/noah-isme/gema-assessment-api/pkg/ai"),
		logger:    logger.With().Str("component", "ai_client").Logger(),
	}
}

// Available reports whether a provider is configured.
func (c *Client) Available() bool {
	return c != nil && c.provider != nil
}

// ProviderName returns the configured provider name, or an empty string.
func (c *Client) ProviderName() string {
	if !c.Available() {
		return ""
	}
	return c.provider.Name()
}

// Generate sends one prompt upstream, bounded by the configured timeout.
func (c *Client) Generate(parent context.Context, prompt Prompt) (string, error) {
	if !c.Available() {
		return "", ErrNotConfigured
	}

	if prompt.MaxTokens <= 0 {
		prompt.MaxTokens = c.maxTokens
	}

	name, model := c.provider.Name(), c.provider.Model()
	ctx, span := c.tracer.Start(parent, "ai.generate", trace.WithAttributes(
		attribute.String("ai.provider", name),
		attribute.String("ai.model", model),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.provider.Complete(ctx, prompt)
	aiDuration.WithLabelValues(name, model).Observe(time.Since(start).Seconds())
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		aiFailures.WithLabelValues(name, model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn().Err(err).Str("provider", name).Dur("elapsed", time.Since(start)).Msg("upstream generation failed")
		return "", fmt.Errorf("%s generate: %w", name, err)
	}

	return strings.TrimSpace(text), nil
}
