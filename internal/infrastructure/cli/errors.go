package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/felixgeelhaar/auditor/pkg/analysis/document"
	"github.com/felixgeelhaar/auditor/pkg/analysis/repo"
	"github.com/felixgeelhaar/auditor/pkg/application"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
	"github.com/felixgeelhaar/auditor/pkg/storage"
)

// Exit codes beyond the generic failure.
const (
	ExitNoReport = 2
	ExitBadInput = 3
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var cloneErr *repo.CloneError
	if errors.As(err, &cloneErr) {
		return NewCLIError("repository could not be cloned", "Check the URL and your git credentials, or pass a local checkout", err)
	}

	switch {
	case errors.Is(err, report.ErrNoReport):
		e := NewCLIError("no report produced", "No criterion received all three opinions. Check the provider with --log-level debug", err)
		e.ExitCode = ExitNoReport
		return e
	case errors.Is(err, storage.ErrReportNotFound):
		return NewCLIError("no report found", "Run 'auditor run --repo <url> --doc <report>' first", err)
	case errors.Is(err, rubric.ErrNotFound):
		return NewCLIError("no rubric found", "Run 'auditor init' to write the default rubric", err)
	case errors.Is(err, repo.ErrInvalidRepoURL):
		e := NewCLIError("invalid repository", "Pass an https or ssh git URL, or a local directory", err)
		e.ExitCode = ExitBadInput
		return e
	case errors.Is(err, document.ErrDocumentMissing):
		e := NewCLIError("report document not found", "Pass the path of the PDF or markdown report with --doc", err)
		e.ExitCode = ExitBadInput
		return e
	case errors.Is(err, application.ErrMalformedOpinion):
		return NewCLIError("judge returned a malformed opinion", "Try a model with JSON mode, or raise judge_attempts in .auditor/ai.yaml", err)
	}

	return err
}

func printError(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.Hint != "" {
		_, _ = fmt.Fprintf(w, "Hint: %s\n", cliErr.Hint)
	}
}
