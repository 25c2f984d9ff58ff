package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/auditor/pkg/domain/ai"
)

const defaultOllamaHost = "http://localhost:11434"

type OllamaProvider struct {
	Model      string
	host       string
	httpClient *http.Client
}

func NewOllamaProvider(model string) *OllamaProvider {
	return NewOllamaProviderWithClient(model, "", nil)
}

// NewOllamaProviderWithClient creates a provider against a custom host (for testing or OLLAMA_HOST).
func NewOllamaProviderWithClient(model, host string, client *http.Client) *OllamaProvider {
	if model == "" {
		model = "llama3"
	}
	if host == "" {
		host = defaultOllamaHost
	}
	return &OllamaProvider{Model: model, host: strings.TrimRight(host, "/"), httpClient: client}
}

func (p *OllamaProvider) ID() string {
	return "ollama:" + p.Model
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

var safeModelName = regexp.MustCompile(`^[a-zA-Z0-9:._-]+$`)

func (p *OllamaProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if !safeModelName.MatchString(p.Model) {
		return nil, fmt.Errorf("invalid model name: %s", p.Model)
	}

	if req.Temperature < 0 {
		return nil, fmt.Errorf("invalid temperature")
	}

	payload := ollamaRequest{
		Model:  p.Model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	}
	if req.JSONMode {
		payload.Format = "json"
	}
	if req.Temperature > 0 {
		payload.Options = &ollamaOptions{Temperature: req.Temperature}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	hReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/generate", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	hReq.Header.Set("Content-Type", "application/json")

	client := p.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(hReq)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ollama API: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama API error: status %d", resp.StatusCode)
	}

	var oResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}

	usage := ai.TokenUsage{InputTokens: oResp.PromptEvalCount, OutputTokens: oResp.EvalCount}
	if usage.Total() == 0 {
		usage = ai.TokenUsage{InputTokens: len(req.Prompt) / 4, OutputTokens: len(oResp.Response) / 4}
	}

	return &ai.CompletionResponse{
		Text:  strings.TrimSpace(oResp.Response),
		Model: p.Model,
		Usage: usage,
	}, nil
}
