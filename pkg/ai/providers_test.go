package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	infraAI "github.com/felixgeelhaar/auditor/pkg/ai"
	"github.com/felixgeelhaar/auditor/pkg/domain/ai"
)

func TestOpenAIProvider_Complete(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": `{"score":4}`}},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5},
		})
	}))
	defer server.Close()

	p := infraAI.NewOpenAIProviderWithClient("gpt-4", "test-key", server.URL, server.Client())
	resp, err := p.Complete(context.Background(), ai.CompletionRequest{
		System: "persona", Prompt: "judge", Temperature: 0.2, JSONMode: true,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != `{"score":4}` || resp.Usage.Total() != 15 {
		t.Errorf("unexpected response %+v", resp)
	}
	msgs, _ := received["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Errorf("expected system and user messages, got %d", len(msgs))
	}
	if rf, _ := received["response_format"].(map[string]interface{}); rf["type"] != "json_object" {
		t.Errorf("expected json response format, got %v", received["response_format"])
	}
}

func TestOpenAIProvider_Errors(t *testing.T) {
	if _, err := infraAI.NewOpenAIProvider("", "").Complete(context.Background(), ai.CompletionRequest{}); err == nil {
		t.Error("expected error for missing API key")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()
	p := infraAI.NewOpenAIProviderWithClient("", "k", server.URL, server.Client())
	if _, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x"}); err == nil {
		t.Error("expected error for non-200 status")
	}
	if p.ID() != "openai:gpt-4o" {
		t.Errorf("expected default model, got %s", p.ID())
	}
}

func TestAnthropicProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" || r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("unexpected headers %v", r.Header)
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["system"] != "persona" {
			t.Errorf("expected system prompt, got %v", body["system"])
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{{"text": "verdict"}},
			"usage":   map[string]int{"input_tokens": 15, "output_tokens": 8},
		})
	}))
	defer server.Close()

	p := infraAI.NewAnthropicProviderWithClient("claude-3-haiku", "test-key", server.URL, server.Client())
	resp, err := p.Complete(context.Background(), ai.CompletionRequest{System: "persona", Prompt: "judge"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "verdict" || resp.Usage.InputTokens != 15 {
		t.Errorf("unexpected response %+v", resp)
	}
	if p.ID() != "anthropic:claude-3-haiku" {
		t.Errorf("unexpected id %s", p.ID())
	}
}

func TestAnthropicProvider_NoAPIKey(t *testing.T) {
	p := infraAI.NewAnthropicProvider("", "")
	if _, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "hi"}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestGeminiProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gen, _ := body["generationConfig"].(map[string]interface{})
		if gen["responseMimeType"] != "application/json" {
			t.Errorf("expected json mime type, got %v", gen)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{"parts": []map[string]string{{"text": "ok"}}}},
			},
			"usageMetadata": map[string]int{"promptTokenCount": 3, "candidatesTokenCount": 1},
		})
	}))
	defer server.Close()

	p := infraAI.NewGeminiProviderWithClient("", "key", server.URL, server.Client())
	resp, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x", JSONMode: true})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "ok" || resp.Usage.Total() != 4 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestGeminiProvider_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()
	p := infraAI.NewGeminiProviderWithClient("", "key", server.URL, server.Client())
	if _, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x"}); err == nil {
		t.Error("expected error for empty candidates")
	}
}

func TestOllamaProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["format"] != "json" {
			t.Errorf("expected json format, got %v", body["format"])
		}
		_, _ = w.Write([]byte(`{"response":"  {\"score\":2}  ","done":true,"prompt_eval_count":7,"eval_count":3}`))
	}))
	defer server.Close()

	p := infraAI.NewOllamaProviderWithClient("llama3", server.URL+"/", server.Client())
	resp, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x", JSONMode: true})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != `{"score":2}` || resp.Usage.Total() != 10 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestOllamaProvider_RejectsUnsafeModel(t *testing.T) {
	p := infraAI.NewOllamaProvider("llama3; rm -rf /")
	_, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "invalid model name") {
		t.Errorf("expected invalid model error, got %v", err)
	}
}
