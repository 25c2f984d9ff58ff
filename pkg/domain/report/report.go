package report

import (
	"errors"
	"math"
	"time"

	"github.com/felixgeelhaar/auditor/pkg/domain/judicial"
)

// ErrNoReport signals that nothing could be synthesized. It is a valid
// terminal outcome, not a failure of the pipeline.
var ErrNoReport = errors.New("no criteria produced a complete judicial panel")

// CriterionResult is the binding verdict for one rubric criterion.
type CriterionResult struct {
	DimensionID    string             `json:"dimension_id"`
	DimensionName  string             `json:"dimension_name"`
	FinalScore     int                `json:"final_score"`
	JudgeOpinions  []judicial.Opinion `json:"judge_opinions"`
	DissentSummary *string            `json:"dissent_summary,omitempty"`
	Remediation    string             `json:"remediation"`
	Rule           string             `json:"rule"`
	AppliedRules   []string           `json:"applied_rules,omitempty"`
}

// Passing reports a score of 4 or more.
func (c CriterionResult) Passing() bool { return c.FinalScore >= 4 }

// Failing reports a score of 2 or less.
func (c CriterionResult) Failing() bool { return c.FinalScore <= 2 }

// AuditReport is the final artifact of a run.
type AuditReport struct {
	ID               string            `json:"id"`
	Subject          string            `json:"subject"`
	GeneratedAt      time.Time         `json:"generated_at"`
	ExecutiveSummary string            `json:"executive_summary"`
	OverallScore     float64           `json:"overall_score"`
	Verdict          Tier              `json:"verdict"`
	Criteria         []CriterionResult `json:"criteria"`
	RemediationPlan  string            `json:"remediation_plan"`
}

// Tier is the qualitative verdict band for an overall score.
type Tier string

const (
	TierExemplary        Tier = "EXEMPLARY"
	TierSatisfactory     Tier = "SATISFACTORY"
	TierNeedsImprovement Tier = "NEEDS IMPROVEMENT"
	TierInsufficient     Tier = "INSUFFICIENT"
)

func TierFor(score float64) Tier {
	switch {
	case score >= 4.5:
		return TierExemplary
	case score >= 3.5:
		return TierSatisfactory
	case score >= 2.5:
		return TierNeedsImprovement
	default:
		return TierInsufficient
	}
}

// OverallScore is the mean final score, clamped to [1,5] and rounded to two
// decimals.
func OverallScore(results []CriterionResult) (float64, error) {
	if len(results) == 0 {
		return 0, ErrNoReport
	}
	sum := 0
	for _, r := range results {
		sum += r.FinalScore
	}
	mean := float64(sum) / float64(len(results))
	mean = math.Max(1.0, math.Min(5.0, mean))
	return math.RoundToEven(mean*100) / 100, nil
}
