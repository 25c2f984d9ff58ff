package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/felixgeelhaar/auditor/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Browse the last report in an interactive table",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		rep, err := wiring.NewWorkspace(root).Repo.LoadReport()
		if err != nil {
			return MapError(err)
		}
		if os.Getenv("AUDITOR_SKIP_DASHBOARD_RUN") == "true" {
			return nil
		}
		p := tea.NewProgram(newDashboardModel(rep))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("dashboard run failed: %w", err)
		}
		return nil
	},
}

func init() {
	reportCmd.AddCommand(dashboardCmd)
}

type dashboardModel struct {
	table  table.Model
	report *report.AuditReport
}

func newDashboardModel(rep *report.AuditReport) dashboardModel {
	columns := []table.Column{
		{Title: "Score", Width: 6},
		{Title: "Criterion", Width: 34},
		{Title: "Rule", Width: 26},
		{Title: "Dissent", Width: 8},
	}

	rows := make([]table.Row, 0, len(rep.Criteria))
	for _, c := range rep.Criteria {
		dissent := "-"
		if c.DissentSummary != nil {
			dissent = "yes"
		}
		rows = append(rows, table.Row{fmt.Sprintf("%d/5", c.FinalScore), c.DimensionName, c.Rule, dissent})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows)+1, 12)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229"))
	t.SetStyles(s)

	return dashboardModel{table: t, report: rep}
}

func (m dashboardModel) Init() tea.Cmd { return nil }

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m dashboardModel) selected() (report.CriterionResult, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.report.Criteria) {
		return report.CriterionResult{}, false
	}
	return m.report.Criteria[i], true
}

func (m dashboardModel) View() string {
	header := headerStyle.Render(m.report.Subject)
	verdict := fmt.Sprintf("Verdict: %s  %.2f / 5",
		tierStyle(m.report.Verdict).Render(string(m.report.Verdict)), m.report.OverallScore)

	return baseStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			verdict,
			"",
			m.table.View(),
			m.detailView(),
			dimStyle.Render("[q] Quit  [Up/Down] Navigate"),
		),
	) + "\n"
}

func (m dashboardModel) detailView() string {
	c, ok := m.selected()
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n")
	for _, op := range c.JudgeOpinions {
		line := fmt.Sprintf("%-12s %d  %s", op.Judge, op.Score, report.Truncate(op.Argument, 70))
		b.WriteString(scoreStyle(op.Score).Render(line))
		b.WriteString("\n")
	}
	if c.DissentSummary != nil {
		b.WriteString(warnStyle.Render("Dissent: " + report.Truncate(*c.DissentSummary, 90)))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(report.Truncate(c.Remediation, 110)))
	b.WriteString("\n")
	return b.String()
}
