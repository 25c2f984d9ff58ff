package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/felixgeelhaar/auditor/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/auditor/pkg/application"
	"github.com/felixgeelhaar/auditor/pkg/domain/pipeline"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
	"github.com/felixgeelhaar/auditor/pkg/storage"
	"github.com/spf13/cobra"
)

type runFlags struct {
	repo          string
	doc           string
	rubricPath    string
	github        bool
	diagramPlugin string
	jsonOutput    bool
	bundlePath    string
}

var runOpts runFlags

// runResult is the machine-readable form of an outcome.
type runResult struct {
	RunID   string              `json:"run_id"`
	Aborted bool                `json:"aborted"`
	Reason  string              `json:"reason,omitempty"`
	Phase   string              `json:"phase"`
	Report  *report.AuditReport `json:"report,omitempty"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Audit a repository and its report",
	Example: `  auditor run --repo https://github.com/acme/swarm --doc report.pdf
  auditor run --repo ./checkout --doc docs/report.md --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runOpts.repo == "" {
			return NewCLIError("--repo is required", "Pass a git URL or a local directory", nil)
		}
		services, err := loadServicesForCurrentDir(wiring.Options{
			GitHub:        runOpts.github,
			DiagramPlugin: runOpts.diagramPlugin,
		})
		if err != nil {
			return err
		}
		outcome, r, err := executeRun(cmd, services, runOpts)
		if err != nil {
			return MapError(err)
		}
		if runOpts.bundlePath != "" {
			if err := application.WriteBundle(runOpts.bundlePath, application.BundleFromOutcome(runOpts.repo, r, outcome)); err != nil {
				return err
			}
		}
		return printOutcome(cmd.OutOrStdout(), outcome, runOpts.jsonOutput)
	},
}

func executeRun(cmd *cobra.Command, services *wiring.AppServices, f runFlags) (*pipeline.Outcome, *rubric.Rubric, error) {
	override, err := loadRubricFile(f.rubricPath)
	if err != nil {
		return nil, nil, err
	}
	outcome, err := services.Audit.Run(cmd.Context(), application.AuditRequest{
		RepoURL:      f.repo,
		DocumentPath: f.doc,
		Rubric:       override,
	})
	if err != nil {
		return nil, nil, err
	}
	if override == nil {
		override = workspaceRubric(services.Workspace.Repo)
	}
	return outcome, override, nil
}

func loadRubricFile(path string) (*rubric.Rubric, error) {
	if path == "" {
		return nil, nil
	}
	// #nosec G304 -- Path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rubric: %w", err)
	}
	return rubric.Parse(data)
}

// workspaceRubric returns the stored rubric, or the built-in one when the
// workspace has none. A broken rubric file yields nil.
func workspaceRubric(repo *storage.FilesystemRepository) *rubric.Rubric {
	r, err := repo.LoadRubric()
	if errors.Is(err, rubric.ErrNotFound) {
		return rubric.Default()
	}
	if err != nil {
		return nil
	}
	return r
}

func printOutcome(w io.Writer, o *pipeline.Outcome, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runResult{
			RunID:   o.RunID,
			Aborted: o.Aborted,
			Reason:  o.Reason,
			Phase:   o.Phase,
			Report:  o.Report,
		})
	}

	if o.Aborted {
		_, _ = fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("No report produced: %s", o.Reason)))
		_, _ = fmt.Fprintf(w, "Run %s ended in phase %s.\n", o.RunID, o.Phase)
		return nil
	}
	printReport(w, o.Report)
	_, _ = fmt.Fprintf(w, "\nReport saved to %s/%s\n", storage.AuditorDir, storage.ReportMarkdownFile)
	return nil
}

func printReport(w io.Writer, r *report.AuditReport) {
	_, _ = fmt.Fprintln(w, headerStyle.Render("Audit: "+r.Subject))
	_, _ = fmt.Fprintf(w, "Verdict: %s (%.2f / 5)\n\n", tierStyle(r.Verdict).Render(string(r.Verdict)), r.OverallScore)
	for _, c := range r.Criteria {
		mark := "·"
		switch {
		case c.Passing():
			mark = "✓"
		case c.Failing():
			mark = "✗"
		}
		line := fmt.Sprintf("%s %d  %-34s", mark, c.FinalScore, c.DimensionName)
		_, _ = fmt.Fprintf(w, "  %s %s\n", scoreStyle(c.FinalScore).Render(line), dimStyle.Render(c.Rule))
	}
}

func init() {
	runCmd.Flags().StringVar(&runOpts.repo, "repo", "", "Repository URL or local directory")
	runCmd.Flags().StringVar(&runOpts.doc, "doc", "", "Report document (PDF, markdown or text)")
	runCmd.Flags().StringVar(&runOpts.rubricPath, "rubric", "", "Rubric file overriding the workspace rubric")
	runCmd.Flags().BoolVar(&runOpts.github, "github", false, "Inspect the repository through the GitHub API instead of cloning")
	runCmd.Flags().StringVar(&runOpts.diagramPlugin, "diagram-plugin", "", "Path to an external diagram analyzer plugin")
	runCmd.Flags().BoolVar(&runOpts.jsonOutput, "json", false, "Output in JSON format")
	runCmd.Flags().StringVar(&runOpts.bundlePath, "bundle", "", "Write the evidence and opinions to this file for offline synthesis")
	RootCmd.AddCommand(runCmd)
}
