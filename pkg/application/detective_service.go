package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/pipeline"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
	"github.com/felixgeelhaar/fortify/timeout"
)

const DefaultDetectiveTimeout = 5 * time.Minute

// DetectiveService fans out to every registered detective and folds their
// findings into the run's evidence store.
type DetectiveService struct {
	detectives []Detective
	timeout    time.Duration
	logger     *slog.Logger
}

func NewDetectiveService(logger *slog.Logger, timeout time.Duration, detectives ...Detective) *DetectiveService {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultDetectiveTimeout
	}
	return &DetectiveService{detectives: detectives, timeout: timeout, logger: logger}
}

// Detectives returns the registered detective names.
func (s *DetectiveService) Detectives() []string {
	names := make([]string, 0, len(s.detectives))
	for _, d := range s.detectives {
		names = append(names, d.Name())
	}
	return names
}

// Collect runs all detectives concurrently and merges their findings once
// every one of them has returned.
func (s *DetectiveService) Collect(ctx context.Context, state *pipeline.RunState) {
	in := DetectiveInput{
		RepoURL:      state.Subject,
		DocumentPath: state.DocumentPath,
		Rubric:       state.Rubric,
	}

	results := make([]Findings, len(s.detectives))
	var wg sync.WaitGroup
	for i, d := range s.detectives {
		wg.Add(1)
		go func(i int, d Detective) {
			defer wg.Done()
			results[i] = s.investigate(ctx, d, in)
		}(i, d)
	}
	wg.Wait()

	for _, f := range results {
		state.Evidence.Merge(f.Evidence)
		if f.FileCatalog != nil {
			state.SetFileCatalog(f.FileCatalog)
		}
	}
}

func (s *DetectiveService) investigate(ctx context.Context, d Detective, in DetectiveInput) Findings {
	owned := d.Criteria(in.Rubric)
	logger := s.logger.With("detective", d.Name())
	if len(owned) == 0 {
		logger.Info("detective owns no rubric criteria, skipping")
		return Findings{}
	}

	started := time.Now()
	t := timeout.New[Findings](timeout.Config{DefaultTimeout: s.timeout})
	f, err := t.Execute(ctx, s.timeout, func(ctx context.Context) (f Findings, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("detective panicked: %v", r)
			}
		}()
		return d.Investigate(ctx, in)
	})
	if err != nil {
		logger.Error("detective failed, emitting degraded evidence", "error", err, "criteria", len(owned))
		return DegradedFindings(d.Name(), owned, in.Rubric, err)
	}

	f.Evidence = s.ownedOnly(logger, f.Evidence, owned)
	logger.Info("detective finished",
		"criteria", len(f.Evidence),
		"duration_ms", time.Since(started).Milliseconds())
	return f
}

// ownedOnly drops keys the detective does not own and records that fail
// validation.
func (s *DetectiveService) ownedOnly(logger *slog.Logger, p evidence.Partial, owned []string) evidence.Partial {
	allowed := make(map[string]bool, len(owned))
	for _, id := range owned {
		allowed[id] = true
	}
	out := evidence.Partial{}
	for id, list := range p {
		if !allowed[id] {
			logger.Warn("discarding evidence for criterion owned by another detective", "criterion", id)
			continue
		}
		for _, e := range list {
			if err := e.Validate(); err != nil {
				logger.Warn("discarding invalid evidence", "criterion", id, "error", err)
				continue
			}
			out.Add(e)
		}
	}
	return out
}

// ExpectedCriteria is the union of criteria owned by the registered detectives.
func (s *DetectiveService) ExpectedCriteria(r *rubric.Rubric) []string {
	seen := map[string]bool{}
	var ids []string
	for _, d := range s.detectives {
		for _, id := range d.Criteria(r) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// Aggregate is the fan-in barrier: it checks completeness, logs a summary,
// cross-references report claims against the repository and decides whether
// the judges run at all.
func (s *DetectiveService) Aggregate(ctx context.Context, state *pipeline.RunState) pipeline.Route {
	var missing []string
	for _, id := range s.ExpectedCriteria(state.Rubric) {
		if !state.Evidence.Has(id) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		s.logger.Warn("criteria without evidence", "missing", missing)
	}

	counts := state.Evidence.Counts()
	s.logger.Info("evidence summary",
		"criteria", counts.Criteria,
		"items", counts.Items,
		"found", counts.Found,
		"not_found", counts.Missing)

	repoCriteria := state.Rubric.IDsFor(rubric.ArtifactRepo)
	if xref := CrossReference(state.Evidence, state.FileCatalog(), repoCriteria); xref != nil {
		s.logger.Info("report claims cross-referenced",
			"claimed", len(xref.Claimed),
			"verified", len(xref.Verified),
			"hallucinated", len(xref.Hallucinated),
			"hallucination_rate", xref.Rate)
	}

	if err := ctx.Err(); err != nil {
		s.logger.Warn("run cancelled during aggregation", "error", err)
		return pipeline.RouteAbort
	}
	if !state.Evidence.HasAny() {
		s.logger.Warn("no evidence collected, aborting before deliberation")
		return pipeline.RouteAbort
	}
	return pipeline.RouteJudges
}
