package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/judicial"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
)

// ErrMalformedOpinion marks judgment output that did not match the opinion
// shape. Workers retry on it.
var ErrMalformedOpinion = errors.New("malformed opinion")

// JudgmentRequest is everything a judgment function sees for one criterion.
type JudgmentRequest struct {
	Persona     judicial.Persona
	CriterionID string
	Dimension   rubric.Dimension
	Evidence    []evidence.Evidence
}

// Judgment scores one criterion from one persona's point of view.
type Judgment interface {
	Render(ctx context.Context, req JudgmentRequest) (*judicial.Opinion, error)
}

// RetryPolicy bounds how hard a worker tries before omitting an opinion.
type RetryPolicy struct {
	Attempts    int
	Delay       time.Duration
	CallTimeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:    3,
		Delay:       2 * time.Second,
		CallTimeout: 5 * time.Minute,
	}
}

// JudgeWorker renders one persona's opinions over every criterion. The three
// judges are the same worker with a different persona.
type JudgeWorker struct {
	Persona  judicial.Persona
	Judgment Judgment
	Retry    RetryPolicy
	Logger   *slog.Logger
}

// Deliberate returns one opinion per criterion with non-empty evidence, in
// sorted criterion order. Criteria whose judgment never succeeded are omitted.
func (w *JudgeWorker) Deliberate(ctx context.Context, r *rubric.Rubric, ev map[string][]evidence.Evidence) []judicial.Opinion {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("judge", string(w.Persona.Judge))

	ids := make([]string, 0, len(ev))
	for id, list := range ev {
		if len(list) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var opinions []judicial.Opinion
	for i, id := range ids {
		if ctx.Err() != nil {
			logger.Warn("deliberation cancelled", "remaining", len(ids)-i)
			break
		}
		dim, ok := r.Lookup(id)
		if !ok {
			dim = rubric.Dimension{ID: id, Name: rubric.TitleFromID(id)}
		}
		req := JudgmentRequest{Persona: w.Persona, CriterionID: id, Dimension: dim, Evidence: ev[id]}

		op, err := w.render(ctx, req)
		if err != nil {
			logger.Error("judgment failed, omitting opinion", "criterion", id, "error", err)
			continue
		}
		opinions = append(opinions, *op)
		logger.Debug("opinion rendered", "criterion", id, "score", op.Score)
	}
	return opinions
}

func (w *JudgeWorker) render(ctx context.Context, req JudgmentRequest) (*judicial.Opinion, error) {
	policy := w.Retry
	def := DefaultRetryPolicy()
	if policy.Attempts <= 0 {
		policy.Attempts = def.Attempts
	}
	if policy.Delay <= 0 {
		policy.Delay = def.Delay
	}
	if policy.CallTimeout <= 0 {
		policy.CallTimeout = def.CallTimeout
	}

	retryer := retry.New[*judicial.Opinion](retry.Config{
		MaxAttempts:   policy.Attempts,
		InitialDelay:  policy.Delay,
		BackoffPolicy: retry.BackoffConstant,
	})
	t := timeout.New[*judicial.Opinion](timeout.Config{DefaultTimeout: policy.CallTimeout})

	attempt := 0
	op, err := retryer.Do(ctx, func(ctx context.Context) (*judicial.Opinion, error) {
		attempt++
		return t.Execute(ctx, policy.CallTimeout, func(ctx context.Context) (op *judicial.Opinion, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("judgment panicked: %v", r)
				}
			}()
			op, err = w.Judgment.Render(ctx, req)
			if err != nil {
				return nil, err
			}
			if op == nil {
				return nil, fmt.Errorf("%w: empty response", ErrMalformedOpinion)
			}
			return op, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("after %d attempts: %w", attempt, err)
	}

	normalized := judicial.Normalize(*op, w.Persona.Judge, req.CriterionID)
	return &normalized, nil
}
