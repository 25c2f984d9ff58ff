package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/auditor/pkg/domain/judicial"
	"github.com/felixgeelhaar/auditor/pkg/domain/pipeline"
)

// JudicialService runs the three persona workers in parallel.
type JudicialService struct {
	judgment Judgment
	retry    RetryPolicy
	logger   *slog.Logger
}

func NewJudicialService(judgment Judgment, retry RetryPolicy, logger *slog.Logger) *JudicialService {
	if logger == nil {
		logger = slog.Default()
	}
	return &JudicialService{judgment: judgment, retry: retry, logger: logger}
}

// Deliberate fans out one worker per persona and concatenates their opinions
// into the run's opinion store after all of them finish.
func (s *JudicialService) Deliberate(ctx context.Context, state *pipeline.RunState) {
	snapshot := state.Evidence.Snapshot()
	personas := judicial.Personas()

	results := make([][]judicial.Opinion, len(personas))
	var wg sync.WaitGroup
	for i, p := range personas {
		wg.Add(1)
		go func(i int, p judicial.Persona) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("judge panicked, contributing no opinions",
						"judge", string(p.Judge), "panic", fmt.Sprint(r))
					results[i] = nil
				}
			}()
			w := &JudgeWorker{Persona: p, Judgment: s.judgment, Retry: s.retry, Logger: s.logger}
			results[i] = w.Deliberate(ctx, state.Rubric, snapshot)
		}(i, p)
	}
	wg.Wait()

	for i, ops := range results {
		state.Opinions.Append(ops...)
		s.logger.Info("judge finished", "judge", string(personas[i].Judge), "opinions", len(ops))
	}
}

// CheckCoverage reports criteria that did not receive all three opinions.
// It never modifies the state.
func (s *JudicialService) CheckCoverage(state *pipeline.RunState) judicial.Coverage {
	cov := judicial.CheckCoverage(state.Opinions.All())
	for id, judges := range cov.Missing {
		names := make([]string, 0, len(judges))
		for _, j := range judges {
			names = append(names, string(j))
		}
		s.logger.Warn("criterion missing judges", "criterion", id, "missing", names)
	}
	s.logger.Info("judicial coverage", "fully_covered", len(cov.FullyCovered), "incomplete", len(cov.Missing))
	return cov
}
