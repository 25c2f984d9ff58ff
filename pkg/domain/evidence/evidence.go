package evidence

import (
	"errors"
	"fmt"
)

// Evidence is one forensic observation attached to a rubric criterion.
// Values are immutable once produced by a detective.
type Evidence struct {
	Goal        string  `json:"goal"`
	Found       bool    `json:"found"`
	Content     *string `json:"content,omitempty"`
	Location    string  `json:"location"`
	Rationale   string  `json:"rationale"`
	Confidence  float64 `json:"confidence"`
	CriterionID string  `json:"criterion_id"`
}

var (
	ErrMissingCriterion = errors.New("evidence criterion id is required")
	ErrConfidenceRange  = errors.New("evidence confidence must be within [0,1]")
)

// New builds a validated Evidence record.
func New(criterionID, goal string, found bool, content, location, rationale string, confidence float64) (Evidence, error) {
	e := Evidence{
		Goal:        goal,
		Found:       found,
		Location:    location,
		Rationale:   rationale,
		Confidence:  confidence,
		CriterionID: criterionID,
	}
	if content != "" {
		c := content
		e.Content = &c
	}
	if err := e.Validate(); err != nil {
		return Evidence{}, err
	}
	return e, nil
}

// NotFound builds the degraded record a detective emits when it could not
// investigate a criterion.
func NotFound(criterionID, goal, location, rationale string, confidence float64) Evidence {
	return Evidence{
		Goal:        goal,
		Found:       false,
		Location:    location,
		Rationale:   rationale,
		Confidence:  clampConfidence(confidence),
		CriterionID: criterionID,
	}
}

func (e Evidence) Validate() error {
	if e.CriterionID == "" {
		return ErrMissingCriterion
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("%w: got %v", ErrConfidenceRange, e.Confidence)
	}
	return nil
}

// Text returns the content or an empty string.
func (e Evidence) Text() string {
	if e.Content == nil {
		return ""
	}
	return *e.Content
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
