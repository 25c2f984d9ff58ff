package wiring

import (
	"github.com/felixgeelhaar/auditor/pkg/application"
	"github.com/felixgeelhaar/auditor/pkg/storage"
)

// Workspace bundles core infrastructure dependencies.
type Workspace struct {
	Repo  *storage.FilesystemRepository
	Trail *application.TrailService
	Usage *application.UsageService
}

func NewWorkspace(root string) *Workspace {
	repo := storage.NewFilesystemRepository(root)
	return &Workspace{
		Repo:  repo,
		Trail: application.NewTrailService(repo),
		Usage: application.NewUsageService(repo),
	}
}
