package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/felixgeelhaar/auditor/internal/infrastructure/config"
	"github.com/felixgeelhaar/auditor/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
	"github.com/felixgeelhaar/auditor/pkg/storage"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	t.Setenv("AUDITOR_AI_PROVIDER", "")
	t.Setenv("AUDITOR_AI_MODEL", "")
	t.Setenv("AUDITOR_OTEL_ENDPOINT", "")

	root := t.TempDir()
	if err := storage.NewFilesystemRepository(root).Initialize(); err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	if err := config.SaveAIConfig(root, &config.AIConfig{Provider: "mock", Model: "mcp-test", JudgeAttempts: 1}); err != nil {
		t.Fatalf("save ai config: %v", err)
	}
	writeFiles(t, root, map[string]string{
		"submission/src/state.py": "from pydantic import BaseModel\nfrom typing import Annotated\nimport operator\n\nclass AgentState(BaseModel):\n    evidences: Annotated[dict, operator.ior]\n",
		"submission/src/graph.py": "builder.add_edge(START, 'repo')\nbuilder.add_edge(START, 'doc')\nbuilder.add_edge('repo', 'agg')\nbuilder.add_edge('doc', 'agg')\n",
		"report.md":               "# Report\n\nWe use dialectical synthesis between judges.\n",
	})

	s, err := NewServer(root, wiring.Options{})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	return s, root
}

func TestServer_GetRubricDefaultsToBuiltIn(t *testing.T) {
	s, _ := newTestServer(t)
	got, err := s.handleGetRubric(context.Background(), GetRubricArgs{})
	if err != nil {
		t.Fatalf("get rubric: %v", err)
	}
	r, ok := got.(*rubric.Rubric)
	if !ok {
		t.Fatalf("expected *rubric.Rubric, got %T", got)
	}
	if len(r.Dimensions) != len(rubric.Default().Dimensions) {
		t.Errorf("expected default rubric, got %d dimensions", len(r.Dimensions))
	}
}

func TestServer_GetReportBeforeRun(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.handleGetReport(context.Background(), GetReportArgs{})
	if err == nil || !strings.Contains(err.Error(), "auditor_run") {
		t.Fatalf("expected hint to run first, got %v", err)
	}
}

func TestServer_RunThenReadAndResynthesize(t *testing.T) {
	s, root := newTestServer(t)
	ctx := context.Background()

	got, err := s.handleRun(ctx, RunArgs{Repo: "submission", Document: "report.md", Bundle: "bundle.json"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	res := got.(RunResult)
	if res.Aborted || res.Report == nil {
		t.Fatalf("expected a report, got aborted=%v reason=%q", res.Aborted, res.Reason)
	}
	if res.Report.Subject != filepath.Join(root, "submission") {
		t.Errorf("subject = %q", res.Report.Subject)
	}
	if _, err := os.Stat(filepath.Join(root, "bundle.json")); err != nil {
		t.Fatalf("bundle not written: %v", err)
	}

	md, err := s.handleGetReport(ctx, GetReportArgs{Format: "markdown"})
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if !strings.Contains(md.(string), "submission") {
		t.Error("markdown report should mention the subject")
	}
	if _, err := s.handleGetReport(ctx, GetReportArgs{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}

	again, err := s.handleSynthesize(ctx, SynthesizeArgs{Bundle: "bundle.json"})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	rep := again.(*report.AuditReport)
	if rep.OverallScore != res.Report.OverallScore {
		t.Errorf("offline synthesis score %.2f, live run %.2f", rep.OverallScore, res.Report.OverallScore)
	}
}

func TestServer_RunValidation(t *testing.T) {
	s, _ := newTestServer(t)
	if _, err := s.handleRun(context.Background(), RunArgs{}); err == nil {
		t.Error("expected error without repo")
	}
	if _, err := s.handleSynthesize(context.Background(), SynthesizeArgs{}); err == nil {
		t.Error("expected error without bundle")
	}
	if _, err := s.handleSynthesize(context.Background(), SynthesizeArgs{Bundle: "missing.json"}); err == nil {
		t.Error("expected error for missing bundle")
	}
}

func TestServer_SchemaListsTools(t *testing.T) {
	s, _ := newTestServer(t)
	if !regexp.MustCompile(`^\d+\.\d+\.\d+$`).MatchString(SchemaVersion) {
		t.Fatalf("SchemaVersion %q is not valid semver", SchemaVersion)
	}
	if got := s.schema().Tools; len(got) != 4 || got[0] != ToolRun {
		t.Errorf("unexpected tools %v", got)
	}
}

func TestServerServeHTTPReturnsCanceled(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.ServeHTTP(ctx, "127.0.0.1:0"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
