package report

import (
	"fmt"
	"strings"
)

// Markdown renders the report as a human-readable document.
func Markdown(r *AuditReport) string {
	var b strings.Builder
	b.WriteString("# Audit Report\n\n")
	fmt.Fprintf(&b, "**Subject:** %s\n", r.Subject)
	fmt.Fprintf(&b, "**Overall Score:** %.2f / 5.0\n", r.OverallScore)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", r.GeneratedAt.Format("20060102T150405Z"))
	b.WriteString("---\n\n## Executive Summary\n\n")
	b.WriteString(r.ExecutiveSummary)
	b.WriteString("\n\n---\n\n## Criterion Breakdown\n\n")

	for _, c := range r.Criteria {
		fmt.Fprintf(&b, "### %s\n\n", c.DimensionName)
		fmt.Fprintf(&b, "**Final Score: %d/5** `[%s]` (rule: %s)\n\n", c.FinalScore, ScoreBar(c.FinalScore), c.Rule)
		b.WriteString("| Judge | Score | Argument (excerpt) |\n|---|:---:|---|\n")
		for _, op := range c.JudgeOpinions {
			excerpt := strings.TrimRight(strings.ReplaceAll(strings.ReplaceAll(Truncate(op.Argument, 130), "|", "\\|"), "\n", " "), " ")
			fmt.Fprintf(&b, "| **%s** | %d | %s... |\n", op.Judge.DisplayName(), op.Score, excerpt)
		}
		b.WriteString("\n")
		if c.DissentSummary != nil {
			b.WriteString("<details>\n<summary>Dissent Summary (score variance &gt; 2)</summary>\n\n")
			b.WriteString(*c.DissentSummary)
			b.WriteString("\n\n</details>\n\n")
		}
		fmt.Fprintf(&b, "> **Remediation:** %s\n\n---\n\n", c.Remediation)
	}

	b.WriteString("## Remediation Plan\n\n")
	b.WriteString(r.RemediationPlan)
	b.WriteString("\n")
	return b.String()
}

// ScoreBar draws a five-cell bar for a score.
func ScoreBar(score int) string {
	if score < 0 {
		score = 0
	}
	if score > 5 {
		score = 5
	}
	return strings.Repeat("█", score) + strings.Repeat("░", 5-score)
}
