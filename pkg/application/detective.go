package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
)

// ErrInvalidInput marks detective failures caused by bad run inputs (an
// unreachable URL, a missing document). Those are certain, so the degraded
// evidence carries full confidence.
var ErrInvalidInput = errors.New("invalid detective input")

const (
	invalidInputConfidence = 1.0
	transientConfidence    = 0.9
)

// DetectiveInput is the read-only view a detective gets of the run.
type DetectiveInput struct {
	RepoURL      string
	DocumentPath string
	Rubric       *rubric.Rubric
}

// Findings is what one detective contributes to the evidence store.
// FileCatalog is only set by the repository detective.
type Findings struct {
	Evidence    evidence.Partial
	FileCatalog []string
}

// Detective collects evidence for the rubric criteria it owns.
type Detective interface {
	Name() string
	Criteria(r *rubric.Rubric) []string
	Investigate(ctx context.Context, in DetectiveInput) (Findings, error)
}

// DegradedFindings converts a detective failure into one not-found record per
// owned criterion so the judges still see why nothing was collected.
func DegradedFindings(name string, criteria []string, r *rubric.Rubric, cause error) Findings {
	confidence := transientConfidence
	if errors.Is(cause, ErrInvalidInput) {
		confidence = invalidInputConfidence
	}
	partial := evidence.Partial{}
	for _, id := range criteria {
		goal := id
		if r != nil {
			if d, ok := r.Lookup(id); ok && d.ForensicInstruction != "" {
				goal = d.ForensicInstruction
			}
		}
		partial.Add(evidence.NotFound(id, goal, name,
			fmt.Sprintf("%s could not investigate: %v", name, cause), confidence))
	}
	return Findings{Evidence: partial}
}
