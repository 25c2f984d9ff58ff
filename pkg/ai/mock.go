package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/auditor/pkg/domain/ai"
)

// MockProvider is an offline, deterministic provider. For judge prompts it
// derives a score from the share of found evidence and the persona's bias.
type MockProvider struct {
	Model string
}

func (p *MockProvider) ID() string {
	return "mock:" + p.Model
}

func (p *MockProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found := strings.Count(req.Prompt, "Found:      YES")
	missing := strings.Count(req.Prompt, "Found:      NO")
	score := 3
	if total := found + missing; total > 0 {
		score = 1 + (4*found+total/2)/total
	}

	bias := "neutral"
	switch {
	case strings.Contains(req.System, "Prosecutor"):
		score--
		bias = "adversarial"
	case strings.Contains(req.System, "Defense"):
		score++
		bias = "advocacy"
	case strings.Contains(req.System, "Tech Lead"):
		bias = "technical"
	}
	score = max(1, min(5, score))

	body, err := json.Marshal(map[string]any{
		"score":          score,
		"argument":       fmt.Sprintf("Offline %s assessment: %d of %d evidence items were found.", bias, found, found+missing),
		"cited_evidence": []string{},
	})
	if err != nil {
		return nil, err
	}

	return &ai.CompletionResponse{
		Text:  string(body),
		Model: p.Model,
		Usage: ai.TokenUsage{InputTokens: len(req.Prompt) / 4, OutputTokens: len(body) / 4},
	}, nil
}
