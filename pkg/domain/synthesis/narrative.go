package synthesis

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/auditor/pkg/domain/report"
)

func excerpt(s string, n int) string {
	return strings.TrimRight(strings.ReplaceAll(report.Truncate(s, n), "\n", " "), " \t")
}

// Dissent returns a summary when the panel disagreed by more than the
// threshold, and nil otherwise.
func Dissent(c Case, d Decision, cfg Config) *string {
	if d.Variance <= cfg.VarianceThreshold {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Prosecutor (Score %d):** %s...\n\n", c.Prosecutor.Score, excerpt(c.Prosecutor.Argument, cfg.DissentExcerpt))
	fmt.Fprintf(&b, "**Defense (Score %d):** %s...\n\n", c.Defense.Score, excerpt(c.Defense.Argument, cfg.DissentExcerpt))
	fmt.Fprintf(&b, "**Tech Lead (Score %d):** %s...\n\n", c.TechLead.Score, excerpt(c.TechLead.Argument, cfg.DissentExcerpt))
	fmt.Fprintf(&b, "**Resolution:** %s", strings.Join(d.Applied, "; "))
	s := b.String()
	return &s
}

// Label turns a criterion id into an upper-case heading.
func Label(criterionID string) string {
	return strings.ToUpper(strings.ReplaceAll(criterionID, "_", " "))
}

// Remediation builds the actionable guidance for one criterion.
func Remediation(c Case, finalScore int, cfg Config) string {
	label := Label(c.CriterionID)
	if finalScore >= 4 {
		return fmt.Sprintf("[%s] Score %d/5. No critical remediation required. Minor: %s...",
			label, finalScore, excerpt(c.Prosecutor.Argument, cfg.MinorExcerpt))
	}
	return fmt.Sprintf("[%s] Score %d/5\n  Prosecutor charge: %s...\n  Tech Lead guidance: %s...",
		label, finalScore,
		excerpt(c.Prosecutor.Argument, cfg.ChargeExcerpt),
		excerpt(c.TechLead.Argument, cfg.ChargeExcerpt))
}
