package ai

import (
	"context"
)

// CompletionRequest represents a prompt to the model.
type CompletionRequest struct {
	Prompt      string
	System      string
	Temperature float32
	MaxTokens   int
	// JSONMode asks providers that support it to constrain output to JSON.
	JSONMode bool
}

// CompletionResponse represents the model's answer.
type CompletionResponse struct {
	Text  string
	Usage TokenUsage
	Model string
}

// TokenUsage tracks costs.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Provider is the interface for all model backends.
type Provider interface {
	ID() string
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
