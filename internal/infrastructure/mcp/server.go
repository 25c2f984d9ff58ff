package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/auditor/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/auditor/pkg/application"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
	"github.com/felixgeelhaar/auditor/pkg/storage"
)

// Tool names.
const (
	ToolRun        = "auditor_run"
	ToolSynthesize = "auditor_synthesize"
	ToolGetReport  = "auditor_get_report"
	ToolGetRubric  = "auditor_get_rubric"
)

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

type Server struct {
	mcpServer *mcp.Server
	services  *wiring.AppServices
	root      string
	logger    *slog.Logger

	// runs write into the same workspace, one at a time
	runMu sync.Mutex
}

// mcpErr returns a user-friendly error for MCP clients.
// Internal details are omitted; only the friendly message is returned.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

func NewServer(root string, opts wiring.Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	services, err := wiring.BuildAppServices(root, opts)
	if services == nil {
		return nil, fmt.Errorf("build services: %w", err)
	}
	if err != nil {
		opts.Logger.Warn("using fallback provider", "error", err)
	}

	info := mcp.ServerInfo{
		Name:    "auditor",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Auditor MCP Server"),
			mcp.WithDescription("Auditor grades agent swarm submissions against a rubric with three adversarial judges and a deterministic synthesis engine."),
			mcp.WithWebsiteURL("https://github.com/felixgeelhaar/auditor"),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Call auditor_run with a repository and report path, then read the verdict with auditor_get_report."),
		),
		services: services,
		root:     root,
		logger:   opts.Logger,
	}

	s.registerTools()
	s.registerSchemaResource()
	return s, nil
}

type RunArgs struct {
	Repo     string `json:"repo" jsonschema:"description=Git URL or local directory of the submission"`
	Document string `json:"document,omitempty" jsonschema:"description=Path to the PDF or markdown report"`
	Bundle   string `json:"bundle,omitempty" jsonschema:"description=Optional path to record evidence and opinions for offline synthesis"`
}

type SynthesizeArgs struct {
	Bundle string `json:"bundle" jsonschema:"description=Path to a recorded evidence and opinions bundle"`
	Save   bool   `json:"save,omitempty" jsonschema:"description=Store the result as the workspace report"`
}

type GetReportArgs struct {
	Format string `json:"format,omitempty" jsonschema:"description=json (default) or markdown"`
}

type GetRubricArgs struct{}

// RunResult is what auditor_run returns.
type RunResult struct {
	RunID   string              `json:"run_id"`
	Aborted bool                `json:"aborted"`
	Reason  string              `json:"reason,omitempty"`
	Phase   string              `json:"phase"`
	Report  *report.AuditReport `json:"report,omitempty"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool(ToolRun).
		Description("Audit a repository and its report. Returns the verdict, or the reason no report was produced").
		Handler(s.handleRun)

	s.mcpServer.Tool(ToolSynthesize).
		Description("Render a verdict from a recorded evidence and opinions bundle without calling a model").
		Handler(s.handleSynthesize)

	s.mcpServer.Tool(ToolGetReport).
		Description("Retrieve the last audit report").
		Handler(s.handleGetReport)

	s.mcpServer.Tool(ToolGetRubric).
		Description("Retrieve the rubric the next run will grade against").
		Handler(s.handleGetRubric)
}

// resolve makes relative paths relative to the workspace root.
func (s *Server) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.root, p)
}

func (s *Server) handleRun(ctx context.Context, args RunArgs) (any, error) {
	if args.Repo == "" {
		return nil, mcpErr("repo is required.")
	}
	repoArg := args.Repo
	if local := s.resolve(repoArg); isDir(local) {
		repoArg = local
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	outcome, err := s.services.Audit.Run(ctx, application.AuditRequest{
		RepoURL:      repoArg,
		DocumentPath: s.resolve(args.Document),
	})
	if err != nil {
		s.logger.Error("audit run failed", "error", err)
		return nil, mcpErr("Audit failed. Check the server logs for details.")
	}

	if args.Bundle != "" {
		b := application.BundleFromOutcome(repoArg, s.workspaceRubric(), outcome)
		if err := application.WriteBundle(s.resolve(args.Bundle), b); err != nil {
			return nil, mcpErr("Audit finished but the bundle could not be written.")
		}
	}

	return RunResult{
		RunID:   outcome.RunID,
		Aborted: outcome.Aborted,
		Reason:  outcome.Reason,
		Phase:   outcome.Phase,
		Report:  outcome.Report,
	}, nil
}

func (s *Server) handleSynthesize(ctx context.Context, args SynthesizeArgs) (any, error) {
	if args.Bundle == "" {
		return nil, mcpErr("bundle is required.")
	}
	rep, err := application.SynthesizeFromFile(s.resolve(args.Bundle), s.services.Engine, s.workspaceRubric())
	if errors.Is(err, report.ErrNoReport) {
		return nil, mcpErr("No report: no criterion in the bundle has all three opinions.")
	}
	if err != nil {
		return nil, mcpErr("Failed to synthesize. Ensure the bundle exists and is valid JSON.")
	}
	if args.Save {
		s.runMu.Lock()
		defer s.runMu.Unlock()
		if err := s.services.Workspace.Repo.Initialize(); err != nil {
			return nil, mcpErr("Failed to create the workspace directory.")
		}
		if err := s.services.Workspace.Repo.SaveReport(rep); err != nil {
			return nil, mcpErr("Failed to save the report.")
		}
	}
	return rep, nil
}

func (s *Server) handleGetReport(ctx context.Context, args GetReportArgs) (any, error) {
	rep, err := s.services.Workspace.Repo.LoadReport()
	if errors.Is(err, storage.ErrReportNotFound) {
		return nil, mcpErr("No report yet. Run auditor_run first.")
	}
	if err != nil {
		return nil, mcpErr("Failed to load the report.")
	}
	switch args.Format {
	case "", "json":
		return rep, nil
	case "markdown", "md":
		return report.Markdown(rep), nil
	default:
		return nil, mcpErr("format must be json or markdown.")
	}
}

func (s *Server) handleGetRubric(ctx context.Context, args GetRubricArgs) (any, error) {
	r := s.workspaceRubric()
	if r == nil {
		return nil, mcpErr("The workspace rubric could not be parsed.")
	}
	return r, nil
}

// workspaceRubric is the stored rubric, the default when none is stored, or nil
// when the stored one is broken.
func (s *Server) workspaceRubric() *rubric.Rubric {
	r, err := s.services.Workspace.Repo.LoadRubric()
	if errors.Is(err, rubric.ErrNotFound) {
		return rubric.Default()
	}
	if err != nil {
		return nil
	}
	return r
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}
