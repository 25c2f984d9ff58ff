package repo

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/felixgeelhaar/auditor/pkg/application"
)

// ErrInvalidRepoURL is returned for repository addresses that are not safe
// git remotes.
var ErrInvalidRepoURL = fmt.Errorf("%w: invalid repository url", application.ErrInvalidInput)

// ValidateURL accepts https, http, git and ssh remotes with a host.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidRepoURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRepoURL, err)
	}
	switch u.Scheme {
	case "https", "http", "git", "ssh":
	default:
		return fmt.Errorf("%w: unsupported scheme %q, use https://github.com/...", ErrInvalidRepoURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: no hostname in %q", ErrInvalidRepoURL, raw)
	}
	return nil
}

// CloneError wraps a failed or timed out git clone.
type CloneError struct {
	URL    string
	Stderr string
	Err    error
}

func (e *CloneError) Error() string {
	msg := fmt.Sprintf("git clone failed for %q: %v", e.URL, e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	return msg
}

func (e *CloneError) Unwrap() error { return e.Err }

// IsCloneError reports whether err came from cloning.
func IsCloneError(err error) bool {
	var ce *CloneError
	return errors.As(err, &ce)
}

// ParseGitHubURL extracts owner and repository from a GitHub remote.
func ParseGitHubURL(raw string) (owner, name string, err error) {
	if err := ValidateURL(raw); err != nil {
		return "", "", err
	}
	u, _ := url.Parse(strings.TrimSpace(raw))
	if !strings.EqualFold(u.Hostname(), "github.com") {
		return "", "", fmt.Errorf("%w: %s is not a github.com repository", ErrInvalidRepoURL, raw)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: expected github.com/<owner>/<repo>", ErrInvalidRepoURL)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
