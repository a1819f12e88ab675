package ai

import (
	"context"
	"errors"
)

// ErrNotConfigured indicates no provider credentials were supplied at start-up.
var ErrNotConfigured = errors.New("ai provider not configured")

// ErrEmptyResponse indicates the provider answered without any text.
var ErrEmptyResponse = errors.New("ai provider returned empty response")

// Prompt is a single free-text request to an upstream model.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
}

// Provider is a concrete model backend.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Generator is the capability the assessment pipeline depends on.
type Generator interface {
	Available() bool
	Generate(ctx context.Context, prompt Prompt) (string, error)
}
