package pipeline

import (
	"sync"

	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/judicial"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
)

// RunState is the shared state of one audit run.
type RunState struct {
	Subject      string
	DocumentPath string
	Rubric       *rubric.Rubric
	Evidence     *evidence.Store
	Opinions     *judicial.Store

	mu          sync.RWMutex
	fileCatalog []string
	report      *report.AuditReport
}

func NewRunState(subject, documentPath string, r *rubric.Rubric) *RunState {
	if r == nil {
		r = &rubric.Rubric{}
	}
	return &RunState{
		Subject:      subject,
		DocumentPath: documentPath,
		Rubric:       r,
		Evidence:     evidence.NewStore(),
		Opinions:     judicial.NewStore(),
	}
}

// SetFileCatalog records the repository file listing. Only the repository
// detective writes it.
func (s *RunState) SetFileCatalog(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileCatalog = append([]string(nil), paths...)
}

func (s *RunState) FileCatalog() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.fileCatalog...)
}

func (s *RunState) SetReport(r *report.AuditReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = r
}

func (s *RunState) Report() *report.AuditReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// Route is the decision taken at the detective fan-in.
type Route string

const (
	RouteJudges Route = "judges"
	RouteAbort  Route = "abort"
)

// Abort reasons.
const (
	ReasonNoEvidence       = "no evidence"
	ReasonNoCompletePanels = "no complete criteria"
	ReasonCancelled        = "cancelled"
)

// Outcome is the terminal result of a run. Report is nil when Aborted.
type Outcome struct {
	RunID    string
	Report   *report.AuditReport
	Aborted  bool
	Reason   string
	Phase    string
	Evidence map[string][]evidence.Evidence
	Opinions []judicial.Opinion
}
