package application_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	infraAI "github.com/felixgeelhaar/auditor/pkg/ai"
	"github.com/felixgeelhaar/auditor/pkg/analysis/document"
	analysisrepo "github.com/felixgeelhaar/auditor/pkg/analysis/repo"
	"github.com/felixgeelhaar/auditor/pkg/application"
	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/judicial"
	"github.com/felixgeelhaar/auditor/pkg/domain/pipeline"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
	"github.com/felixgeelhaar/auditor/pkg/domain/synthesis"
)

func newAuditService(repo *MockRepo, judgment application.Judgment, detectives ...application.Detective) *application.AuditService {
	return application.NewAuditService(application.AuditDeps{
		Detectives: application.NewDetectiveService(nil, time.Second, detectives...),
		Judiciary:  application.NewJudicialService(judgment, fastRetry, nil),
		Engine:     synthesis.NewEngine(synthesis.DefaultConfig(), nil),
		Rubrics:    repo,
		Sink:       repo,
		Trail:      application.NewTrailService(repo),
		Usage:      application.NewUsageService(repo),
	})
}

func repoDetective() *MockDetective {
	return &MockDetective{
		name:     "repo",
		criteria: []string{rubric.GitForensicAnalysis, rubric.GraphOrchestration},
		findings: application.Findings{
			Evidence: evidence.Partial{
				rubric.GitForensicAnalysis: {found(rubric.GitForensicAnalysis, "12 commits")},
				rubric.GraphOrchestration:  {found(rubric.GraphOrchestration, ""), missing(rubric.GraphOrchestration)},
			},
			FileCatalog: []string{"src/graph.py"},
		},
	}
}

func TestAuditService_RunProducesReport(t *testing.T) {
	repo := &MockRepo{}
	judgment := application.NewLLMJudgment(&infraAI.MockProvider{Model: "offline"}, nil)
	svc := newAuditService(repo, judgment, repoDetective())

	out, err := svc.Run(context.Background(), application.AuditRequest{RepoURL: "https://github.com/acme/agent"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Aborted || out.Report == nil {
		t.Fatalf("expected a report, got %+v", out)
	}
	if out.Phase != pipeline.PhaseReported {
		t.Errorf("expected reported phase, got %s", out.Phase)
	}
	if len(out.Report.Criteria) != 2 || len(out.Opinions) != 6 {
		t.Errorf("expected 2 criteria and 6 opinions, got %d and %d", len(out.Report.Criteria), len(out.Opinions))
	}
	if repo.Report != out.Report {
		t.Error("report was not handed to the sink")
	}
	if len(repo.Events) != 4 || repo.Events[0].Action != "run.started" || repo.Events[3].Action != "report.assembled" {
		t.Errorf("unexpected trail %+v", repo.Events)
	}
	if repo.Usage == nil || repo.Usage.TotalRuns != 1 {
		t.Error("expected run to be counted")
	}
}

func TestAuditService_ZeroEvidenceAborts(t *testing.T) {
	repo := &MockRepo{}
	judgment := fixedScores(3, 3, 3)
	empty := &MockDetective{name: "repo", criteria: []string{rubric.GitForensicAnalysis}}
	svc := newAuditService(repo, judgment, empty)

	out, err := svc.Run(context.Background(), application.AuditRequest{RepoURL: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Aborted || out.Reason != pipeline.ReasonNoEvidence || out.Report != nil {
		t.Errorf("expected no-evidence abort, got %+v", out)
	}
	if out.Phase != pipeline.PhaseAborted {
		t.Errorf("expected aborted phase, got %s", out.Phase)
	}
	if judgment.calls.Load() != 0 {
		t.Error("judges must not run without evidence")
	}
	if repo.Report != nil {
		t.Error("no report should be persisted")
	}
}

func TestAuditService_NoCompletePanelAborts(t *testing.T) {
	repo := &MockRepo{}
	judgment := &judgmentFunc{fn: func(req application.JudgmentRequest, _ int32) (*judicial.Opinion, error) {
		if req.Persona.Judge == judicial.TechLead {
			return nil, application.ErrMalformedOpinion
		}
		return &judicial.Opinion{Score: 3, Argument: "x"}, nil
	}}
	svc := newAuditService(repo, judgment, repoDetective())

	out, err := svc.Run(context.Background(), application.AuditRequest{RepoURL: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Aborted || out.Reason != pipeline.ReasonNoCompletePanels || out.Report != nil {
		t.Errorf("expected no-report outcome, got %+v", out)
	}
}

type recordingListener struct {
	outcomes []*pipeline.Outcome
	ctxErr   error
}

func (l *recordingListener) AuditFinished(ctx context.Context, o *pipeline.Outcome) {
	l.outcomes = append(l.outcomes, o)
	l.ctxErr = ctx.Err()
}

func TestAuditService_ListenersSeeEveryOutcome(t *testing.T) {
	listener := &recordingListener{}
	deps := func(d application.Detective) application.AuditDeps {
		return application.AuditDeps{
			Detectives: application.NewDetectiveService(nil, time.Second, d),
			Judiciary:  application.NewJudicialService(fixedScores(3, 4, 4), fastRetry, nil),
			Engine:     synthesis.NewEngine(synthesis.DefaultConfig(), nil),
			Listeners:  []application.OutcomeListener{listener},
		}
	}

	done, err := application.NewAuditService(deps(repoDetective())).Run(context.Background(), application.AuditRequest{RepoURL: "x"})
	if err != nil {
		t.Fatal(err)
	}
	empty := &MockDetective{name: "repo", criteria: []string{rubric.GitForensicAnalysis}}
	aborted, err := application.NewAuditService(deps(empty)).Run(context.Background(), application.AuditRequest{RepoURL: "x"})
	if err != nil {
		t.Fatal(err)
	}

	if len(listener.outcomes) != 2 || listener.outcomes[0] != done || listener.outcomes[1] != aborted {
		t.Fatalf("listener saw %d outcomes", len(listener.outcomes))
	}
	if !aborted.Aborted || done.Aborted {
		t.Error("outcomes out of order")
	}
}

func TestAuditService_ListenerContextOutlivesCancellation(t *testing.T) {
	listener := &recordingListener{}
	svc := application.NewAuditService(application.AuditDeps{
		Detectives: application.NewDetectiveService(nil, time.Second, repoDetective()),
		Judiciary:  application.NewJudicialService(fixedScores(3, 4, 4), fastRetry, nil),
		Engine:     synthesis.NewEngine(synthesis.DefaultConfig(), nil),
		Listeners:  []application.OutcomeListener{listener},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := svc.Run(ctx, application.AuditRequest{RepoURL: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if len(listener.outcomes) != 1 || listener.outcomes[0] != out {
		t.Fatal("listener not called for cancelled run")
	}
	if listener.ctxErr != nil {
		t.Errorf("listener context should not be cancelled, got %v", listener.ctxErr)
	}
}

func TestAuditService_SinkFailure(t *testing.T) {
	repo := &MockRepo{SaveError: errors.New("disk full")}
	svc := newAuditService(repo, fixedScores(3, 4, 4), repoDetective())
	if _, err := svc.Run(context.Background(), application.AuditRequest{RepoURL: "x"}); err == nil {
		t.Error("expected sink failure to surface")
	}
}

func TestAuditService_MalformedRubricFallsBackToEmpty(t *testing.T) {
	repo := &MockRepo{LoadError: errors.New("yaml: bad indent")}
	d := &MockDetective{name: "repo", criteria: nil}
	svc := newAuditService(repo, fixedScores(3, 3, 3), d)

	out, err := svc.Run(context.Background(), application.AuditRequest{RepoURL: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Aborted {
		t.Error("an empty rubric yields no evidence and must abort")
	}
}

func TestBundle_RoundTripSynthesis(t *testing.T) {
	repo := &MockRepo{}
	svc := newAuditService(repo, fixedScores(2, 4, 4), repoDetective())
	out, err := svc.Run(context.Background(), application.AuditRequest{RepoURL: "x"})
	if err != nil || out.Report == nil {
		t.Fatalf("run failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "bundle.json")
	b := application.BundleFromOutcome("x", nil, out)
	b.Opinions = append(b.Opinions, judicial.Opinion{Judge: "Jester", CriterionID: rubric.GitForensicAnalysis, Score: 1})
	if err := application.WriteBundle(path, b); err != nil {
		t.Fatal(err)
	}

	engine := synthesis.NewEngine(synthesis.DefaultConfig(), nil)
	rep, err := application.SynthesizeFromFile(path, engine, rubric.Default())
	if err != nil {
		t.Fatalf("SynthesizeFromFile failed: %v", err)
	}
	if rep.OverallScore != out.Report.OverallScore || len(rep.Criteria) != len(out.Report.Criteria) {
		t.Errorf("offline synthesis diverged: %v vs %v", rep.OverallScore, out.Report.OverallScore)
	}

	if _, err := application.SynthesizeFromFile(filepath.Join(t.TempDir(), "missing.json"), engine, nil); err == nil {
		t.Error("expected error for missing bundle")
	}
}

func TestAuditService_UnreadableRubricStillReports(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"src/state.py": "class AgentState(BaseModel):\n    evidences: Annotated[dict, operator.ior]\n",
		"src/graph.py": "builder.add_edge(START, 'repo')\nbuilder.add_edge(START, 'doc')\n",
		"report.md":    "# Report\n\nThe judges reach a dialectical synthesis through fan-in.\n",
	}
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	repo := &MockRepo{LoadError: errors.New("yaml: malformed")}
	judgment := application.NewLLMJudgment(&infraAI.MockProvider{Model: "offline"}, nil)
	svc := newAuditService(repo, judgment,
		analysisrepo.NewInvestigator(time.Minute, nil),
		document.NewAnalyst(document.PlainExtractor{}, nil),
	)

	out, err := svc.Run(context.Background(), application.AuditRequest{
		RepoURL:      dir,
		DocumentPath: filepath.Join(dir, "report.md"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Aborted || out.Report == nil {
		t.Fatalf("expected a report despite the unreadable rubric, got aborted=%v reason=%q", out.Aborted, out.Reason)
	}
	if _, ok := out.Evidence[rubric.TheoreticalDepth]; !ok {
		t.Errorf("document criteria were not collected: %v", out.Evidence)
	}
	for _, c := range out.Report.Criteria {
		if c.DimensionName != rubric.TitleFromID(c.DimensionID) {
			t.Errorf("%s: expected identifier-derived name, got %q", c.DimensionID, c.DimensionName)
		}
	}
}
