package repo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/auditor/pkg/application"
	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
)

const (
	DefaultCloneTimeout = 180 * time.Second
	DefaultCloneDepth   = 100
)

// Investigator clones the submission into a throwaway directory and runs the
// repository protocols against it. A local directory is inspected in place.
type Investigator struct {
	CloneTimeout time.Duration
	Depth        int
	MaxFiles     int
	Run          CommandRunner
	Logger       *slog.Logger
}

var _ application.Detective = (*Investigator)(nil)

func NewInvestigator(cloneTimeout time.Duration, logger *slog.Logger) *Investigator {
	if cloneTimeout <= 0 {
		cloneTimeout = DefaultCloneTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Investigator{
		CloneTimeout: cloneTimeout,
		Depth:        DefaultCloneDepth,
		MaxFiles:     DefaultMaxFiles,
		Run:          ExecRunner,
		Logger:       logger,
	}
}

func (i *Investigator) Name() string { return "repo_investigator" }

func (i *Investigator) Criteria(r *rubric.Rubric) []string {
	return r.IDsFor(rubric.ArtifactRepo)
}

func (i *Investigator) Investigate(ctx context.Context, in application.DetectiveInput) (application.Findings, error) {
	criteria := i.Criteria(in.Rubric)
	target := strings.TrimSpace(in.RepoURL)

	root := target
	if !isLocalDir(target) {
		if err := ValidateURL(target); err != nil {
			return FailureFindings(criteria, target, err), nil
		}
		tmp, err := os.MkdirTemp("", "auditor-repo-*")
		if err != nil {
			return application.Findings{}, fmt.Errorf("failed to create sandbox: %w", err)
		}
		defer func() { _ = os.RemoveAll(tmp) }()

		root = filepath.Join(tmp, "repo")
		i.Logger.Info("cloning repository", "url", target, "depth", i.Depth)
		if err := clone(ctx, i.Run, target, root, i.Depth, i.CloneTimeout); err != nil {
			i.Logger.Warn("clone failed", "url", target, "error", err)
			return FailureFindings(criteria, target, err), nil
		}
	}

	commits, err := gitLog(ctx, i.Run, root)
	if err != nil {
		i.Logger.Warn("git history unavailable", "error", err)
	}
	files, err := Catalog(root, i.MaxFiles)
	if err != nil {
		return application.Findings{}, err
	}

	return application.Findings{
		Evidence:    Analyze(criteria, NewDirSource(root, files), AnalyzeHistory(commits), target),
		FileCatalog: files,
	}, nil
}

// FailureFindings records why the repository could not be inspected against
// every repository criterion. The failure is certain, so confidence is 1.
func FailureFindings(criteria []string, target string, cause error) application.Findings {
	partial := evidence.Partial{}
	for _, id := range criteria {
		content := cause.Error()
		partial.Add(evidence.Evidence{
			Goal:        "Clone repository and inspect all artifacts",
			Found:       false,
			Content:     &content,
			Location:    target,
			Rationale:   "Repository could not be inspected. All downstream forensic protocols are impossible.",
			Confidence:  1.0,
			CriterionID: id,
		})
	}
	return application.Findings{Evidence: partial}
}

func isLocalDir(p string) bool {
	if p == "" || strings.Contains(p, "://") {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
