package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/auditor/pkg/domain"
	"github.com/felixgeelhaar/auditor/pkg/domain/notify"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"
)

const AuditorDir = ".auditor"
const RubricFile = "rubric.yaml"
const RubricJSONFile = "rubric.json"
const ReportFile = "report.json"
const ReportMarkdownFile = "report.md"
const TrailFile = "trail.jsonl"
const UsageFile = "usage.json"
const WebhookFile = "webhooks.yaml"
const DeadLetterFile = "webhook_deadletter.jsonl"

// ErrRubricNotFound is returned when the workspace has no rubric file.
var ErrRubricNotFound = rubric.ErrNotFound

// ErrReportNotFound is returned when no audit has completed yet.
var ErrReportNotFound = errors.New("no report in workspace")

type FilesystemRepository struct {
	root        string
	retryConfig retry.Config
}

var _ domain.WorkspaceRepository = (*FilesystemRepository)(nil)

func NewFilesystemRepository(root string) *FilesystemRepository {
	return &FilesystemRepository{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Root returns the workspace root directory.
func (r *FilesystemRepository) Root() string {
	return r.root
}

// ResolvePath ensures the path is within the .auditor directory and prevents traversal.
func (r *FilesystemRepository) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := filepath.Join(r.root, AuditorDir)
	cleanPath := filepath.Clean(filepath.Join(baseDir, filename))

	// Only direct children of .auditor are allowed.
	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}

	return cleanPath, nil
}

func (r *FilesystemRepository) Initialize() error {
	path := filepath.Join(r.root, AuditorDir)
	// G301: Use 0700 for directories
	if err := os.MkdirAll(path, 0700); err != nil {
		return fmt.Errorf("failed to create .auditor directory: %w", err)
	}
	return nil
}

// writablePath resolves filename and creates the .auditor directory on demand.
func (r *FilesystemRepository) writablePath(filename string) (string, error) {
	path, err := r.ResolvePath(filename)
	if err != nil {
		return "", err
	}
	if err := r.Initialize(); err != nil {
		return "", err
	}
	return path, nil
}

func (r *FilesystemRepository) IsInitialized() bool {
	_, err := os.Stat(filepath.Join(r.root, AuditorDir))
	return err == nil
}

func (r *FilesystemRepository) SaveRubric(rb *rubric.Rubric) error {
	path, err := r.writablePath(RubricFile)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(rb)
	if err != nil {
		return fmt.Errorf("failed to marshal rubric: %w", err)
	}

	// G306: Use 0600 for files
	return os.WriteFile(path, data, 0600)
}

// LoadRubric reads rubric.yaml, falling back to rubric.json.
func (r *FilesystemRepository) LoadRubric() (*rubric.Rubric, error) {
	for _, name := range []string{RubricFile, RubricJSONFile} {
		path, err := r.ResolvePath(name)
		if err != nil {
			return nil, err
		}

		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read rubric file: %w", err)
		}
		return rubric.Parse(data)
	}
	return nil, ErrRubricNotFound
}

// SaveReport writes the report as JSON and markdown, replacing any previous run.
func (r *FilesystemRepository) SaveReport(rep *report.AuditReport) error {
	if rep == nil {
		return fmt.Errorf("report is nil")
	}
	jsonPath, err := r.writablePath(ReportFile)
	if err != nil {
		return err
	}
	mdPath, err := r.ResolvePath(ReportMarkdownFile)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.WriteFile(mdPath, []byte(report.Markdown(rep)), 0600); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}
	return nil
}

func (r *FilesystemRepository) LoadReport() (*report.AuditReport, error) {
	path, err := r.ResolvePath(ReportFile)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrReportNotFound
	}

	retryer := retry.New[*report.AuditReport](r.retryConfig)
	return retryer.Do(context.Background(), func(ctx context.Context) (*report.AuditReport, error) {
		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read report file: %w", err)
		}

		var rep report.AuditReport
		if err := json.Unmarshal(data, &rep); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		return &rep, nil
	})
}

func (r *FilesystemRepository) UpdateUsage(stats domain.UsageStats) error {
	path, err := r.writablePath(UsageFile)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal usage stats: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

func (r *FilesystemRepository) LoadUsage() (*domain.UsageStats, error) {
	path, err := r.ResolvePath(UsageFile)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &domain.UsageStats{ProviderStats: map[string]int{}}, nil
		}
		return nil, fmt.Errorf("failed to read usage stats: %w", err)
	}

	var stats domain.UsageStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal usage stats: %w", err)
	}
	if stats.ProviderStats == nil {
		stats.ProviderStats = map[string]int{}
	}

	return &stats, nil
}

// LoadWebhookConfig reads webhooks.yaml. A workspace without the file has no
// webhooks.
func (r *FilesystemRepository) LoadWebhookConfig() (*notify.Config, error) {
	path, err := r.ResolvePath(WebhookFile)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &notify.Config{}, nil
		}
		return nil, fmt.Errorf("failed to read webhook config: %w", err)
	}

	var config notify.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal webhook config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid webhook config: %w", err)
	}
	return &config, nil
}

func (r *FilesystemRepository) SaveWebhookConfig(config *notify.Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	path, err := r.writablePath(WebhookFile)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// DeadLetterPath is where undeliverable webhook payloads are appended.
func (r *FilesystemRepository) DeadLetterPath() (string, error) {
	return r.writablePath(DeadLetterFile)
}
