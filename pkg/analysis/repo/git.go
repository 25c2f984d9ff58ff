package repo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Commit is one entry of the repository history.
type Commit struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// CommandRunner executes a command in dir and returns its stdout.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// ExecRunner runs commands through os/exec, folding stderr into the error.
func ExecRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- arguments are fixed git subcommands plus a validated URL
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s timed out: %w", name, ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

func clone(ctx context.Context, run CommandRunner, url, dest string, depth int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := run(ctx, "", "git", "clone", "--depth", strconv.Itoa(depth), "--", url, dest); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s", timeout)
		}
		return &CloneError{URL: url, Err: err}
	}
	return nil
}

func gitLog(ctx context.Context, run CommandRunner, dir string) ([]Commit, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out, err := run(ctx, dir, "git", "log", "--format=%H|%aI|%s", "--reverse")
	if err != nil {
		return nil, fmt.Errorf("failed to read git log: %w", err)
	}
	return ParseLog(string(out)), nil
}

// ParseLog decodes "hash|iso-date|subject" lines, skipping malformed ones.
func ParseLog(out string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "|", 3)
		if len(parts) != 3 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		commits = append(commits, Commit{
			Hash:      strings.TrimSpace(parts[0]),
			Message:   strings.TrimSpace(parts[2]),
			Timestamp: ts,
		})
	}
	return commits
}
