package ai_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	infraAI "github.com/felixgeelhaar/auditor/pkg/ai"
	"github.com/felixgeelhaar/auditor/pkg/domain/ai"
)

func mockScore(t *testing.T, system, prompt string) int {
	t.Helper()
	resp, err := (&infraAI.MockProvider{Model: "m"}).Complete(context.Background(), ai.CompletionRequest{System: system, Prompt: prompt})
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Score int `json:"score"`
	}
	if err := json.Unmarshal([]byte(resp.Text), &out); err != nil {
		t.Fatalf("mock output is not JSON: %v", err)
	}
	return out.Score
}

func TestMockProvider_PersonaBias(t *testing.T) {
	prompt := strings.Repeat("     Found:      YES\n", 1) + strings.Repeat("     Found:      NO\n", 1)
	neutral := mockScore(t, "You are the Tech Lead", prompt)
	if neutral != 3 {
		t.Errorf("expected tech lead score 3, got %d", neutral)
	}
	if got := mockScore(t, "You are the Prosecutor", prompt); got != 2 {
		t.Errorf("expected prosecutor score 2, got %d", got)
	}
	if got := mockScore(t, "You are the Defense", prompt); got != 4 {
		t.Errorf("expected defense score 4, got %d", got)
	}
}

func TestMockProvider_Bounds(t *testing.T) {
	allFound := strings.Repeat("Found:      YES\n", 3)
	if got := mockScore(t, "You are the Defense", allFound); got != 5 {
		t.Errorf("expected clamp at 5, got %d", got)
	}
	if got := mockScore(t, "You are the Prosecutor", "Found:      NO\n"); got != 1 {
		t.Errorf("expected clamp at 1, got %d", got)
	}
}

func TestMockProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&infraAI.MockProvider{}).Complete(ctx, ai.CompletionRequest{}); err == nil {
		t.Error("expected context error")
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		wantID string
	}{
		{"mock", "x", "mock:x"},
		{"", "", "ollama:llama3"},
		{"openai", "", "openai:gpt-4o"},
		{"anthropic", "claude", "anthropic:claude"},
		{"gemini", "", "gemini:gemini-1.5-pro"},
	}
	for _, tt := range tests {
		p, err := infraAI.NewProvider(tt.name, tt.model)
		if err != nil {
			t.Fatalf("NewProvider(%q): %v", tt.name, err)
		}
		if p.ID() != tt.wantID {
			t.Errorf("NewProvider(%q) id = %s, want %s", tt.name, p.ID(), tt.wantID)
		}
	}
	if _, err := infraAI.NewProvider("watson", ""); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestGetDefaultProvider_EnvOverride(t *testing.T) {
	t.Setenv("AUDITOR_AI_PROVIDER", "mock")
	t.Setenv("AUDITOR_AI_MODEL", "env-model")
	p, err := infraAI.GetDefaultProvider("openai", "gpt-4o")
	if err != nil {
		t.Fatal(err)
	}
	if p.ID() != "mock:env-model" {
		t.Errorf("expected env override, got %s", p.ID())
	}
}
