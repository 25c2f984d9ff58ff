package cli

import (
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/auditor/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect the last audit report",
}

var (
	reportJSON     bool
	reportMarkdown bool
)

var reportShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the last report",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		rep, err := wiring.NewWorkspace(root).Repo.LoadReport()
		if err != nil {
			return MapError(err)
		}

		out := cmd.OutOrStdout()
		switch {
		case reportJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		case reportMarkdown:
			_, err := fmt.Fprint(out, report.Markdown(rep))
			return err
		}

		printReport(out, rep)
		_, _ = fmt.Fprintf(out, "\n%s\n", rep.ExecutiveSummary)
		if rep.RemediationPlan != "" {
			_, _ = fmt.Fprintf(out, "\n%s\n", rep.RemediationPlan)
		}
		return nil
	},
}

var reportVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the hash chain of the last run's trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		trail := wiring.NewWorkspace(root).Trail
		events, err := trail.Timeline()
		if err != nil {
			return err
		}
		violations, err := trail.Verify()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(violations) > 0 {
			_, _ = fmt.Fprintln(out, failStyle.Render("Trail integrity check FAILED"))
			for _, v := range violations {
				_, _ = fmt.Fprintf(out, "  - %s\n", v)
			}
			return NewCLIError("trail verification failed", "The trail was edited after the run. Re-run the audit", nil)
		}
		_, _ = fmt.Fprintln(out, passStyle.Render(fmt.Sprintf("Trail intact: %d events verified.", len(events))))
		for _, e := range events {
			_, _ = fmt.Fprintf(out, "  %s  %-20s %s\n", e.Timestamp.Format("15:04:05"), e.Action, dimStyle.Render(e.Hash[:min(12, len(e.Hash))]))
		}
		return nil
	},
}

func init() {
	reportShowCmd.Flags().BoolVar(&reportJSON, "json", false, "Output in JSON format")
	reportShowCmd.Flags().BoolVar(&reportMarkdown, "markdown", false, "Output the markdown rendering")
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportVerifyCmd)
	RootCmd.AddCommand(reportCmd)
}
