package application_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/auditor/pkg/application"
	"github.com/felixgeelhaar/auditor/pkg/domain"
	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/judicial"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
)

type MockDetective struct {
	name     string
	criteria []string
	findings application.Findings
	err      error
	panicMsg string
	delay    time.Duration
}

func (d *MockDetective) Name() string                       { return d.name }
func (d *MockDetective) Criteria(r *rubric.Rubric) []string { return d.criteria }

func (d *MockDetective) Investigate(ctx context.Context, in application.DetectiveInput) (application.Findings, error) {
	if d.panicMsg != "" {
		panic(d.panicMsg)
	}
	if d.delay > 0 {
		select {
		case <-ctx.Done():
			return application.Findings{}, ctx.Err()
		case <-time.After(d.delay):
		}
	}
	return d.findings, d.err
}

// judgmentFunc adapts a function to the Judgment interface.
type judgmentFunc struct {
	calls atomic.Int32
	fn    func(req application.JudgmentRequest, call int32) (*judicial.Opinion, error)
}

func (j *judgmentFunc) Render(ctx context.Context, req application.JudgmentRequest) (*judicial.Opinion, error) {
	n := j.calls.Add(1)
	return j.fn(req, n)
}

// fixedScores returns one score per judge for every criterion.
func fixedScores(p, d, t int) *judgmentFunc {
	scores := map[judicial.Judge]int{judicial.Prosecutor: p, judicial.Defense: d, judicial.TechLead: t}
	return &judgmentFunc{fn: func(req application.JudgmentRequest, _ int32) (*judicial.Opinion, error) {
		return &judicial.Opinion{
			Score:    scores[req.Persona.Judge],
			Argument: string(req.Persona.Judge) + " on " + req.CriterionID,
		}, nil
	}}
}

func found(id, content string) evidence.Evidence {
	e, err := evidence.New(id, "goal for "+id, true, content, "src/"+id+".py:1", "seen", 0.9)
	if err != nil {
		panic(err)
	}
	return e
}

func missing(id string) evidence.Evidence {
	return evidence.NotFound(id, "goal for "+id, "repo", "absent", 0.8)
}

type MockRepo struct {
	mu        sync.Mutex
	Rubric    *rubric.Rubric
	Report    *report.AuditReport
	Events    []domain.Event
	Usage     *domain.UsageStats
	LoadError error
	SaveError error
}

func (m *MockRepo) Initialize() error   { return nil }
func (m *MockRepo) IsInitialized() bool { return true }
func (m *MockRepo) SaveRubric(r *rubric.Rubric) error {
	m.Rubric = r
	return m.SaveError
}
func (m *MockRepo) LoadRubric() (*rubric.Rubric, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	if m.Rubric == nil {
		return nil, rubric.ErrNotFound
	}
	return m.Rubric, nil
}
func (m *MockRepo) SaveReport(r *report.AuditReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Report = r
	return m.SaveError
}
func (m *MockRepo) LoadReport() (*report.AuditReport, error) { return m.Report, m.LoadError }
func (m *MockRepo) RecordEvent(e domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
	return nil
}
func (m *MockRepo) LoadEvents() ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.Events...), nil
}
func (m *MockRepo) ResetEvents() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = nil
	return nil
}
func (m *MockRepo) UpdateUsage(s domain.UsageStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Usage = &s
	return nil
}
func (m *MockRepo) LoadUsage() (*domain.UsageStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Usage == nil {
		return nil, nil
	}
	cp := *m.Usage
	cp.ProviderStats = map[string]int{}
	for k, v := range m.Usage.ProviderStats {
		cp.ProviderStats[k] = v
	}
	return &cp, nil
}
