package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Assembler turns per-criterion verdicts into an AuditReport.
type Assembler struct {
	VarianceThreshold int
	Now               func() time.Time
}

func NewAssembler(varianceThreshold int) *Assembler {
	return &Assembler{VarianceThreshold: varianceThreshold, Now: time.Now}
}

// Assemble builds the report. An empty result set yields ErrNoReport.
func (a *Assembler) Assemble(subject string, results []CriterionResult) (*AuditReport, error) {
	overall, err := OverallScore(results)
	if err != nil {
		return nil, err
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	return &AuditReport{
		ID:               uuid.NewString(),
		Subject:          subject,
		GeneratedAt:      now().UTC(),
		ExecutiveSummary: a.ExecutiveSummary(subject, results, overall),
		OverallScore:     overall,
		Verdict:          TierFor(overall),
		Criteria:         results,
		RemediationPlan:  RemediationPlan(results),
	}, nil
}

// ExecutiveSummary renders the verdict narrative.
func (a *Assembler) ExecutiveSummary(subject string, results []CriterionResult, overall float64) string {
	total := len(results)
	passing, failing, dissent, opinions := 0, 0, 0, 0
	for _, r := range results {
		if r.Passing() {
			passing++
		}
		if r.Failing() {
			failing++
		}
		if r.DissentSummary != nil {
			dissent++
		}
		opinions += len(r.JudgeOpinions)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Verdict: %s**. Overall Score: %.2f/5.0\n\n", TierFor(overall), overall)
	fmt.Fprintf(&b, "Submission `%s` was evaluated across %d rubric criteria. ", subject, total)
	fmt.Fprintf(&b, "%d/%d criteria passed at Score >= 4. ", passing, total)
	fmt.Fprintf(&b, "%d/%d criteria are critical failures (Score <= 2). ", failing, total)
	fmt.Fprintf(&b, "%d criteria required a dissent summary (score variance > %d).\n\n", dissent, a.VarianceThreshold)
	fmt.Fprintf(&b, "The bench of Prosecutor, Defense and Tech Lead rendered %d opinions, resolved into binding verdicts by deterministic conflict-resolution rules.", opinions)
	return b.String()
}

// RemediationPlan groups criteria as critical (<=2), needs work (3) and
// passing (>=4), lowest score first.
func RemediationPlan(results []CriterionResult) string {
	sorted := make([]CriterionResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FinalScore < sorted[j].FinalScore
	})

	var critical, needsWork, passing []CriterionResult
	for _, r := range sorted {
		switch {
		case r.FinalScore <= 2:
			critical = append(critical, r)
		case r.FinalScore == 3:
			needsWork = append(needsWork, r)
		default:
			passing = append(passing, r)
		}
	}

	var sections []string
	if len(critical) > 0 {
		sections = append(sections, "### Critical Failures (Score <= 2): address immediately\n")
		for _, r := range critical {
			sections = append(sections, fmt.Sprintf("**%s** (Score %d/5)\n", r.DimensionName, r.FinalScore))
			sections = append(sections, r.Remediation+"\n")
		}
	}
	if len(needsWork) > 0 {
		sections = append(sections, "### Needs Work (Score 3): required for a passing grade\n")
		for _, r := range needsWork {
			sections = append(sections, fmt.Sprintf("**%s** (Score %d/5)\n", r.DimensionName, r.FinalScore))
			sections = append(sections, r.Remediation+"\n")
		}
	}
	if len(passing) > 0 {
		sections = append(sections, "### Passing (Score >= 4): minor improvements only\n")
		for _, r := range passing {
			excerpt := strings.ReplaceAll(Truncate(r.Remediation, 120), "\n", " ")
			sections = append(sections, fmt.Sprintf("**%s** (Score %d/5): %s\n", r.DimensionName, r.FinalScore, excerpt))
		}
	}
	if len(sections) == 0 {
		return "No remediation items."
	}
	return strings.Join(sections, "\n")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
