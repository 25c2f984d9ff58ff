package ai_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	infraAI "github.com/felixgeelhaar/auditor/pkg/ai"
	"github.com/felixgeelhaar/auditor/pkg/domain/ai"
)

type flakyProvider struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyProvider) ID() string { return "flaky" }

func (f *flakyProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, errors.New("transient")
	}
	return &ai.CompletionResponse{Text: "ok"}, nil
}

func TestResilientProvider_ID_Delegates(t *testing.T) {
	p := infraAI.NewResilientProvider(&infraAI.MockProvider{Model: "test-model"})
	if p.ID() != "mock:test-model" {
		t.Errorf("expected ID 'mock:test-model', got %q", p.ID())
	}
}

func TestResilientProvider_DefaultConfig(t *testing.T) {
	cfg := infraAI.DefaultResilienceConfig()
	if cfg.MaxRetries != 2 || cfg.RetryDelay != time.Second || cfg.Timeout != 300*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	p := infraAI.NewResilientProviderWithConfig(&infraAI.MockProvider{}, infraAI.ResilienceConfig{})
	if p.Config() != cfg {
		t.Errorf("zero config should take defaults, got %+v", p.Config())
	}
}

func TestResilientProvider_RetriesTransientErrors(t *testing.T) {
	inner := &flakyProvider{failures: 1}
	p := infraAI.NewResilientProviderWithConfig(inner, infraAI.ResilienceConfig{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		Timeout:    time.Second,
	})
	resp, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if resp.Text != "ok" || inner.calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", inner.calls.Load())
	}
}

func TestResilientProvider_GivesUp(t *testing.T) {
	inner := &flakyProvider{failures: 100}
	p := infraAI.NewResilientProviderWithConfig(inner, infraAI.ResilienceConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Timeout:    time.Second,
	})
	if _, err := p.Complete(context.Background(), ai.CompletionRequest{}); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if inner.calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", inner.calls.Load())
	}
}
