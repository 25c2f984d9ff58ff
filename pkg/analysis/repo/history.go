package repo

import (
	"fmt"
	"strings"
	"time"
)

const bulkWindow = 10 * time.Minute

var (
	setupKeywords = []string{"init", "setup", "install", "env", "config", "pyproject", "go.mod", "dependencies"}
	toolKeywords  = []string{"tool", "ast", "repo", "clone", "git", "parse", "detect"}
	graphKeywords = []string{"graph", "node", "edge", "langgraph", "judge", "detective", "orchestrat"}
)

// HistoryReport summarises how a repository grew.
type HistoryReport struct {
	CommitCount int      `json:"commit_count"`
	BulkUpload  bool     `json:"is_bulk_upload"`
	Progression bool     `json:"has_progression"`
	Notes       string   `json:"progression_notes"`
	Commits     []Commit `json:"commits"`
}

// AnalyzeHistory inspects commits ordered oldest first. A history is a bulk
// upload when every commit lands within ten minutes.
func AnalyzeHistory(commits []Commit) HistoryReport {
	n := len(commits)
	if n == 0 {
		return HistoryReport{BulkUpload: true, Notes: "No commits found in repository.", Commits: []Commit{}}
	}

	bulk := n == 1 || commits[n-1].Timestamp.Sub(commits[0].Timestamp) < bulkWindow

	third := max(1, n/3)
	early := messages(commits[:third])
	late := messages(commits[n-third:])

	hasSetup := containsAny(early, setupKeywords)
	hasTools := containsAny(append(early, late...), toolKeywords)
	hasGraph := containsAny(late, graphKeywords)
	progression := hasSetup && hasGraph && n > 3 && !bulk

	var notes strings.Builder
	fmt.Fprintf(&notes, "%d commits. ", n)
	if bulk {
		notes.WriteString("Bulk upload suspected (all within 10 min). ")
	} else {
		notes.WriteString("Iterative history. ")
	}
	if progression {
		notes.WriteString("Progression detected (setup -> tools -> graph). ")
	} else {
		fmt.Fprintf(&notes, "Partial progression (setup=%s tools=%s graph=%s). ", mark(hasSetup), mark(hasTools), mark(hasGraph))
	}

	return HistoryReport{
		CommitCount: n,
		BulkUpload:  bulk,
		Progression: progression,
		Notes:       strings.TrimSpace(notes.String()),
		Commits:     commits,
	}
}

// Passes is the git forensic verdict: more than three commits and not a
// single upload.
func (h HistoryReport) Passes() bool {
	return h.CommitCount > 3 && !h.BulkUpload
}

func messages(cs []Commit) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = strings.ToLower(c.Message)
	}
	return out
}

func containsAny(msgs []string, keywords []string) bool {
	for _, m := range msgs {
		for _, kw := range keywords {
			if strings.Contains(m, kw) {
				return true
			}
		}
	}
	return false
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
