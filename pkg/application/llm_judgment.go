package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/felixgeelhaar/auditor/pkg/domain/ai"
	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/judicial"
)

const (
	evidenceContentLimit = 1200
	judgeTemperature     = 0.2
	judgeMaxTokens       = 2048
)

const opinionSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["score", "argument"],
  "properties": {
    "judge": { "type": "string" },
    "criterion_id": { "type": "string" },
    "score": { "type": "integer" },
    "argument": { "type": "string", "minLength": 1 },
    "cited_evidence": { "type": "array", "items": { "type": "string" } }
  }
}`

var opinionSchemaLoader = gojsonschema.NewStringLoader(opinionSchemaJSON)

// TokenRecorder receives token usage per completed model call.
type TokenRecorder interface {
	RecordTokenUsage(model string, inputTokens, outputTokens int) error
}

// LLMJudgment renders opinions by prompting a language model with the
// persona doctrine and the criterion's evidence.
type LLMJudgment struct {
	provider ai.Provider
	usage    TokenRecorder
}

func NewLLMJudgment(provider ai.Provider, usage TokenRecorder) *LLMJudgment {
	return &LLMJudgment{provider: provider, usage: usage}
}

func (j *LLMJudgment) Render(ctx context.Context, req JudgmentRequest) (*judicial.Opinion, error) {
	resp, err := j.provider.Complete(ctx, ai.CompletionRequest{
		System:      systemPrompt(req.Persona),
		Prompt:      userPrompt(req),
		Temperature: judgeTemperature,
		MaxTokens:   judgeMaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("judgment call failed: %w", err)
	}
	if j.usage != nil {
		_ = j.usage.RecordTokenUsage(j.provider.ID(), resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}
	return ParseOpinion(resp.Text)
}

// ParseOpinion validates and decodes a model response into an opinion.
// Code fences and prose around the JSON object are tolerated.
func ParseOpinion(text string) (*judicial.Opinion, error) {
	payload := extractJSONPayload(text)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedOpinion)
	}

	result, err := gojsonschema.Validate(opinionSchemaLoader, gojsonschema.NewStringLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOpinion, err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformedOpinion, strings.Join(issues, "; "))
	}

	var op judicial.Opinion
	if err := json.Unmarshal([]byte(payload), &op); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOpinion, err)
	}
	return &op, nil
}

func extractJSONPayload(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start == -1 || end <= start {
		return clean
	}
	return clean[start : end+1]
}

func systemPrompt(p judicial.Persona) string {
	return fmt.Sprintf("%s\n\n%s\n\nRespond with a single JSON object with the keys judge, criterion_id, score, argument and cited_evidence.",
		p.Motto, p.Doctrine)
}

func userPrompt(req JudgmentRequest) string {
	var b strings.Builder
	b.WriteString("Evaluate the following rubric criterion using ONLY the forensic evidence provided below.\n\n")
	fmt.Fprintf(&b, "CRITERION ID  : %s\n", req.CriterionID)
	fmt.Fprintf(&b, "CRITERION NAME: %s\n\n", orNA(req.Dimension.Name))
	fmt.Fprintf(&b, "SUCCESS PATTERN (Score 4-5 territory):\n%s\n\n", orNA(req.Dimension.SuccessPattern))
	fmt.Fprintf(&b, "FAILURE PATTERN (Score 1-2 territory):\n%s\n\n", orNA(req.Dimension.FailurePattern))
	b.WriteString(FormatEvidence(req.CriterionID, req.Evidence))
	b.WriteString("\n\nReturn your verdict with these exact field values:\n")
	fmt.Fprintf(&b, "  judge          -> %q\n", string(req.Persona.Judge))
	fmt.Fprintf(&b, "  criterion_id   -> %q\n", req.CriterionID)
	b.WriteString("  score          -> integer 1-5, applying your scoring doctrine\n")
	b.WriteString("  argument       -> your full reasoning, citing evidence goals and locations above\n")
	b.WriteString("  cited_evidence -> list of evidence goals or locations you are citing\n")
	return b.String()
}

// FormatEvidence renders an evidence list as the block judges read.
func FormatEvidence(criterionID string, list []evidence.Evidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== DETECTIVE EVIDENCE: %s ===\n", strings.ToUpper(criterionID))
	for i, e := range list {
		found := "NO  ✗"
		if e.Found {
			found = "YES ✓"
		}
		fmt.Fprintf(&b, "\n[%d]  Goal:       %s\n", i+1, e.Goal)
		fmt.Fprintf(&b, "     Found:      %s\n", found)
		fmt.Fprintf(&b, "     Confidence: %.0f%%\n", e.Confidence*100)
		fmt.Fprintf(&b, "     Location:   %s\n", e.Location)
		fmt.Fprintf(&b, "     Rationale:  %s\n", e.Rationale)
		if content := e.Text(); content != "" {
			if r := []rune(content); len(r) > evidenceContentLimit {
				content = string(r[:evidenceContentLimit]) + "\n...(truncated)"
			}
			fmt.Fprintf(&b, "     Content:\n%s\n", content)
		}
	}
	b.WriteString("=== END EVIDENCE ===")
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
