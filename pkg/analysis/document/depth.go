package document

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// RequiredTerms are the architecture concepts a report must explain.
var RequiredTerms = []string{
	"Dialectical Synthesis",
	"Fan-In",
	"Fan-Out",
	"Metacognition",
	"State Synchronization",
}

// substantiveMarkers signal that a paragraph explains rather than name-drops.
var substantiveMarkers = []string{
	"implemented", "implement", "achieved", "achieve", "executes", "execute",
	"using", "through", "via", "by", "which", "because", "whereby", "enables",
	"allows", "ensures", "represents", "in our", "in this", "the three",
	"the judges", "the detectives", "fan-out", "fan-in", "parallel", "graph", "node",
}

// TermResult is the search outcome for one term.
type TermResult struct {
	Term        string `json:"term"`
	Total       int    `json:"total_count"`
	Substantive int    `json:"substantive_count"`
}

func (t TermResult) Found() bool         { return t.Total > 0 }
func (t TermResult) IsSubstantive() bool { return t.Substantive > 0 }

// SearchTerm counts paragraphs mentioning term, case-insensitively.
func (d *Document) SearchTerm(term string) TermResult {
	res := TermResult{Term: term}
	needle := strings.ToLower(term)
	for _, p := range d.Paragraphs {
		lower := strings.ToLower(p)
		if !strings.Contains(lower, needle) {
			continue
		}
		res.Total++
		if isSubstantive(lower) {
			res.Substantive++
		}
	}
	return res
}

func isSubstantive(lower string) bool {
	for _, m := range substantiveMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Depth summarises the required term search.
type Depth struct {
	Terms       []TermResult
	Substantive int
	Missing     []string
}

// AnyFound reports whether at least one term appears.
func (d Depth) AnyFound() bool { return len(d.Missing) < len(d.Terms) }

// Passes requires at least one term and three substantive explanations.
func (d Depth) Passes() bool { return d.AnyFound() && d.Substantive >= 3 }

// Summary renders one line per term.
func (d Depth) Summary() string {
	lines := make([]string, 0, len(d.Terms))
	for _, t := range d.Terms {
		tag := "✗ absent"
		switch {
		case t.IsSubstantive():
			tag = "✓ substantive"
		case t.Found():
			tag = "~ keyword-drop"
		}
		lines = append(lines, fmt.Sprintf("  %s  %s  (x%d)", tag, t.Term, t.Total))
	}
	return strings.Join(lines, "\n")
}

// AnalyzeDepth searches every required term.
func (d *Document) AnalyzeDepth() Depth {
	var out Depth
	for _, term := range RequiredTerms {
		r := d.SearchTerm(term)
		out.Terms = append(out.Terms, r)
		if r.IsSubstantive() {
			out.Substantive++
		}
		if !r.Found() {
			out.Missing = append(out.Missing, term)
		}
	}
	return out
}

var pathPattern = regexp.MustCompile("[`\"']?((?:src|tests?|docs?|scripts?|cmd|pkg|internal)/[\\w./\\-]+\\.(?:py|go|json|toml|md|txt|yaml|yml))[`\"']?")

// ClaimedPaths returns the sorted distinct repository paths the report cites.
func (d *Document) ClaimedPaths() []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range pathPattern.FindAllStringSubmatch(d.Text, -1) {
		p := m[1]
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
