package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
)

var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	PaddingLeft(1).
	PaddingRight(1)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 4:
		return passStyle
	case score <= 2:
		return failStyle
	default:
		return warnStyle
	}
}

func tierStyle(t report.Tier) lipgloss.Style {
	switch t {
	case report.TierExemplary, report.TierSatisfactory:
		return passStyle
	case report.TierNeedsImprovement:
		return warnStyle
	default:
		return failStyle
	}
}
