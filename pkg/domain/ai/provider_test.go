package ai

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	response *CompletionResponse
	err      error
	last     CompletionRequest
}

func (s *stubProvider) ID() string { return "stub" }
func (s *stubProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func TestProvider_InterfaceContract(t *testing.T) {
	var _ Provider = &stubProvider{}
}

func TestProvider_Complete(t *testing.T) {
	p := &stubProvider{response: &CompletionResponse{Text: `{"score":3}`, Usage: TokenUsage{InputTokens: 10, OutputTokens: 5}}}
	resp, err := p.Complete(context.Background(), CompletionRequest{Prompt: "judge", JSONMode: true})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Usage.Total() != 15 {
		t.Errorf("expected 15 tokens, got %d", resp.Usage.Total())
	}
	if !p.last.JSONMode {
		t.Error("request fields not passed through")
	}
}

func TestProvider_CompleteError(t *testing.T) {
	want := errors.New("rate limited")
	p := &stubProvider{err: want}
	if _, err := p.Complete(context.Background(), CompletionRequest{}); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}
