package application

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/judicial"
	"github.com/felixgeelhaar/auditor/pkg/domain/pipeline"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
	"github.com/felixgeelhaar/auditor/pkg/domain/synthesis"
)

// Bundle is a recorded deliberation: the evidence the judges saw and the
// opinions they rendered. It can be synthesized again without any model.
type Bundle struct {
	Subject  string                         `json:"subject"`
	Rubric   *rubric.Rubric                 `json:"rubric,omitempty"`
	Evidence map[string][]evidence.Evidence `json:"evidence"`
	Opinions []judicial.Opinion             `json:"opinions"`
}

// BundleFromOutcome captures a finished or aborted run.
func BundleFromOutcome(subject string, r *rubric.Rubric, o *pipeline.Outcome) *Bundle {
	return &Bundle{Subject: subject, Rubric: r, Evidence: o.Evidence, Opinions: o.Opinions}
}

func LoadBundle(path string) (*Bundle, error) {
	// #nosec G304 -- Path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse bundle: %w", err)
	}
	return &b, nil
}

func WriteBundle(path string, b *Bundle) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bundle: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Synthesize runs the conflict-resolution engine over the bundle. Opinions
// from unknown judges are dropped and scores are clamped.
func (b *Bundle) Synthesize(engine *synthesis.Engine, fallback *rubric.Rubric) (*report.AuditReport, error) {
	r := b.Rubric
	if r == nil {
		r = fallback
	}
	if r == nil {
		r = rubric.Default()
	}

	opinions := make([]judicial.Opinion, 0, len(b.Opinions))
	for _, op := range b.Opinions {
		judge, err := judicial.ParseJudge(string(op.Judge))
		if err != nil || op.CriterionID == "" {
			continue
		}
		opinions = append(opinions, judicial.Normalize(op, judge, op.CriterionID))
	}

	return engine.Synthesize(synthesis.Input{
		Subject:  b.Subject,
		Rubric:   r,
		Evidence: b.Evidence,
		Opinions: opinions,
	})
}

// SynthesizeFromFile loads a bundle and synthesizes it.
func SynthesizeFromFile(path string, engine *synthesis.Engine, fallback *rubric.Rubric) (*report.AuditReport, error) {
	b, err := LoadBundle(path)
	if err != nil {
		return nil, err
	}
	return b.Synthesize(engine, fallback)
}
