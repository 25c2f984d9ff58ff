package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/auditor/pkg/domain/pipeline"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
	"github.com/felixgeelhaar/auditor/pkg/domain/synthesis"
)

const tracerName = "github.com/felixgeelhaar/auditor/pkg/application"

// RubricSource supplies the rubric for a run.
type RubricSource interface {
	LoadRubric() (*rubric.Rubric, error)
}

// ReportSink persists a finished report.
type ReportSink interface {
	SaveReport(r *report.AuditReport) error
}

// RunTrail records pipeline events for one run at a time.
type RunTrail interface {
	Begin(runID string) error
	Log(action string, actor string, metadata map[string]interface{}) error
}

// OutcomeListener is told about every finished run, including runs that
// ended without a report.
type OutcomeListener interface {
	AuditFinished(ctx context.Context, outcome *pipeline.Outcome)
}

// AuditRequest names the submission under audit. Rubric overrides the
// configured rubric source when set.
type AuditRequest struct {
	RepoURL      string
	DocumentPath string
	Rubric       *rubric.Rubric
}

// AuditDeps wires the collaborators of an AuditService. Only Detectives,
// Judiciary and Engine are required.
type AuditDeps struct {
	Detectives *DetectiveService
	Judiciary  *JudicialService
	Engine     *synthesis.Engine
	Rubrics    RubricSource
	Sink       ReportSink
	Trail      RunTrail
	Usage      *UsageService
	Listeners  []OutcomeListener
	Logger     *slog.Logger
}

// AuditService drives one submission through collection, deliberation and
// synthesis.
type AuditService struct {
	deps   AuditDeps
	logger *slog.Logger
	tracer trace.Tracer
}

func NewAuditService(deps AuditDeps) *AuditService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditService{deps: deps, logger: logger, tracer: otel.Tracer(tracerName)}
}

// Run executes the full pipeline. An aborted run is not an error: the
// outcome says why no report was produced.
func (s *AuditService) Run(ctx context.Context, req AuditRequest) (*pipeline.Outcome, error) {
	runID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "audit.run", trace.WithAttributes(
		attribute.String("audit.run_id", runID),
		attribute.String("audit.subject", req.RepoURL),
	))
	defer span.End()

	logger := s.logger.With("run_id", runID)
	state := pipeline.NewRunState(req.RepoURL, req.DocumentPath, s.resolveRubric(req.Rubric))

	fsm, err := pipeline.NewPhaseMachine(runID)
	if err != nil {
		return nil, err
	}
	s.begin(runID)
	s.record("run.started", map[string]interface{}{
		"subject":  req.RepoURL,
		"document": req.DocumentPath,
		"criteria": len(state.Rubric.Dimensions),
		"rubric":   state.Rubric.Version,
	})
	logger.Info("audit started", "subject", req.RepoURL, "document", req.DocumentPath)

	s.phase(ctx, "audit.collect", func(ctx context.Context) {
		s.deps.Detectives.Collect(ctx, state)
	})
	if err := fsm.Fire(pipeline.EventCollected); err != nil {
		return nil, err
	}
	counts := state.Evidence.Counts()
	s.record("evidence.collected", map[string]interface{}{
		"criteria": counts.Criteria,
		"items":    counts.Items,
		"found":    counts.Found,
	})

	var route pipeline.Route
	s.phase(ctx, "audit.aggregate", func(ctx context.Context) {
		route = s.deps.Detectives.Aggregate(ctx, state)
	})
	if route == pipeline.RouteAbort {
		reason := pipeline.ReasonNoEvidence
		if ctx.Err() != nil {
			reason = pipeline.ReasonCancelled
		}
		return s.abort(ctx, fsm, state, runID, reason, span)
	}
	if err := fsm.Fire(pipeline.EventRouteJudges); err != nil {
		return nil, err
	}

	s.phase(ctx, "audit.deliberate", func(ctx context.Context) {
		s.deps.Judiciary.Deliberate(ctx, state)
	})
	cov := s.deps.Judiciary.CheckCoverage(state)
	if err := fsm.Fire(pipeline.EventDeliberated); err != nil {
		return nil, err
	}
	s.record("opinions.rendered", map[string]interface{}{
		"opinions":      state.Opinions.Len(),
		"fully_covered": len(cov.FullyCovered),
		"incomplete":    len(cov.Missing),
	})

	var rep *report.AuditReport
	s.phase(ctx, "audit.synthesize", func(ctx context.Context) {
		rep, err = s.deps.Engine.Synthesize(synthesis.Input{
			Subject:  state.Subject,
			Rubric:   state.Rubric,
			Evidence: state.Evidence.Snapshot(),
			Opinions: state.Opinions.All(),
		})
	})
	if errors.Is(err, report.ErrNoReport) {
		return s.abort(ctx, fsm, state, runID, pipeline.ReasonNoCompletePanels, span)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}
	state.SetReport(rep)

	if s.deps.Sink != nil {
		if err := s.deps.Sink.SaveReport(rep); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to save report: %w", err)
		}
	}
	if err := fsm.Fire(pipeline.EventReported); err != nil {
		return nil, err
	}
	s.record("report.assembled", map[string]interface{}{
		"report_id":     rep.ID,
		"overall_score": rep.OverallScore,
		"verdict":       string(rep.Verdict),
		"criteria":      len(rep.Criteria),
	})
	span.SetAttributes(
		attribute.Float64("audit.overall_score", rep.OverallScore),
		attribute.String("audit.verdict", string(rep.Verdict)),
	)
	logger.Info("audit complete", "overall_score", rep.OverallScore, "verdict", string(rep.Verdict))

	outcome := &pipeline.Outcome{
		RunID:    runID,
		Report:   rep,
		Phase:    fsm.Current(),
		Evidence: state.Evidence.Snapshot(),
		Opinions: state.Opinions.All(),
	}
	s.notify(ctx, outcome)
	return outcome, nil
}

func (s *AuditService) abort(ctx context.Context, fsm *pipeline.PhaseMachine, state *pipeline.RunState, runID, reason string, span trace.Span) (*pipeline.Outcome, error) {
	if err := fsm.Fire(pipeline.EventAbort); err != nil {
		return nil, err
	}
	s.record("run.aborted", map[string]interface{}{"reason": reason})
	span.SetAttributes(attribute.String("audit.abort_reason", reason))
	s.logger.Warn("audit ended without a report", "run_id", runID, "reason", reason)
	outcome := &pipeline.Outcome{
		RunID:    runID,
		Aborted:  true,
		Reason:   reason,
		Phase:    fsm.Current(),
		Evidence: state.Evidence.Snapshot(),
		Opinions: state.Opinions.All(),
	}
	s.notify(ctx, outcome)
	return outcome, nil
}

// notify runs listeners detached from the run's cancellation.
func (s *AuditService) notify(ctx context.Context, outcome *pipeline.Outcome) {
	ctx = context.WithoutCancel(ctx)
	for _, l := range s.deps.Listeners {
		l.AuditFinished(ctx, outcome)
	}
}

func (s *AuditService) phase(ctx context.Context, name string, fn func(context.Context)) {
	ctx, span := s.tracer.Start(ctx, name)
	defer span.End()
	fn(ctx)
}

// resolveRubric falls back to the built-in rubric when the source has none,
// and to an empty rubric when the stored one cannot be read.
func (s *AuditService) resolveRubric(override *rubric.Rubric) *rubric.Rubric {
	if override != nil {
		return override
	}
	if s.deps.Rubrics == nil {
		return rubric.Default()
	}
	r, err := s.deps.Rubrics.LoadRubric()
	switch {
	case errors.Is(err, rubric.ErrNotFound):
		return rubric.Default()
	case err != nil:
		s.logger.Warn("rubric could not be loaded, continuing with an empty rubric", "error", err)
		return &rubric.Rubric{}
	case r == nil:
		return rubric.Default()
	}
	return r
}

func (s *AuditService) begin(runID string) {
	if s.deps.Usage != nil {
		if err := s.deps.Usage.RecordRun(); err != nil {
			s.logger.Warn("failed to record usage", "error", err)
		}
	}
	if s.deps.Trail != nil {
		if err := s.deps.Trail.Begin(runID); err != nil {
			s.logger.Warn("failed to reset trail", "error", err)
		}
	}
}

func (s *AuditService) record(action string, metadata map[string]interface{}) {
	if s.deps.Trail == nil {
		return
	}
	if err := s.deps.Trail.Log(action, "auditor", metadata); err != nil {
		s.logger.Warn("failed to record trail event", "action", action, "error", err)
	}
}
