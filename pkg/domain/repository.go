package domain

import (
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
)

// WorkspaceRepository persists auditor artifacts in the .auditor/ directory.
// Each run overwrites the previous report and trail.
type WorkspaceRepository interface {
	Initialize() error
	IsInitialized() bool
	SaveRubric(r *rubric.Rubric) error
	LoadRubric() (*rubric.Rubric, error)
	SaveReport(r *report.AuditReport) error
	LoadReport() (*report.AuditReport, error)
	RecordEvent(event Event) error
	LoadEvents() ([]Event, error)
	ResetEvents() error
	UpdateUsage(stats UsageStats) error
	LoadUsage() (*UsageStats, error)
}
