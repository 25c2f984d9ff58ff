package application

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
)

const (
	crossRefConfidence = 0.88
	crossRefLocation   = "evidence_aggregator (cross-reference)"
	claimPrefix        = "claimed:"
)

// CrossReferenceResult splits the paths a report claims into those present
// in the repository and those that are not.
type CrossReferenceResult struct {
	Claimed      []string
	Verified     []string
	Hallucinated []string
	Rate         float64
}

// CrossReference checks paths claimed in report_accuracy evidence against the
// repository file catalog and appends one verdict record. When catalog is
// empty, known paths are recovered from repository evidence locations. It
// returns nil and changes nothing when there is nothing to compare.
func CrossReference(store *evidence.Store, catalog []string, repoCriteria []string) *CrossReferenceResult {
	known := catalog
	if len(known) == 0 {
		known = pathsFromLocations(store, repoCriteria)
		if len(known) == 0 {
			return nil
		}
	}

	claimed := ClaimedPaths(store.Get(rubric.ReportAccuracy))
	if len(claimed) == 0 {
		return nil
	}

	index := make(map[string]bool, len(known))
	for _, p := range known {
		index[NormalizePath(p)] = true
	}

	res := &CrossReferenceResult{Claimed: claimed}
	for _, p := range claimed {
		if index[NormalizePath(p)] {
			res.Verified = append(res.Verified, p)
		} else {
			res.Hallucinated = append(res.Hallucinated, p)
		}
	}
	res.Rate = float64(len(res.Hallucinated)) / float64(len(claimed))

	store.Append(rubric.ReportAccuracy, res.evidence())
	return res
}

func (r *CrossReferenceResult) evidence() evidence.Evidence {
	var b strings.Builder
	b.WriteString("Verified paths:\n")
	for _, p := range r.Verified {
		fmt.Fprintf(&b, "  ✓ %s\n", p)
	}
	b.WriteString("Hallucinated paths:\n")
	for _, p := range r.Hallucinated {
		fmt.Fprintf(&b, "  ✗ %s\n", p)
	}
	content := strings.TrimRight(b.String(), "\n")

	return evidence.Evidence{
		Goal:     "Cross-reference file paths claimed in the report against the repository structure",
		Found:    r.Rate == 0 && len(r.Verified) > 0,
		Content:  &content,
		Location: crossRefLocation,
		Rationale: fmt.Sprintf("Claimed: %d, Verified: %d, Hallucinated: %d (hallucination_rate=%.1f%%).",
			len(r.Claimed), len(r.Verified), len(r.Hallucinated), r.Rate*100),
		Confidence:  crossRefConfidence,
		CriterionID: rubric.ReportAccuracy,
	}
}

// ClaimedPaths extracts "claimed: <path>" lines from evidence contents.
func ClaimedPaths(list []evidence.Evidence) []string {
	var out []string
	for _, e := range list {
		for _, line := range strings.Split(e.Text(), "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, claimPrefix) {
				continue
			}
			if p := strings.TrimSpace(strings.TrimPrefix(line, claimPrefix)); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// NormalizePath converts separators to "/" and strips any leading "./".
func NormalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

func pathsFromLocations(store *evidence.Store, criteria []string) []string {
	var out []string
	for _, id := range criteria {
		for _, e := range store.Get(id) {
			loc := strings.ReplaceAll(e.Location, `\`, "/")
			loc, _, _ = strings.Cut(loc, ":")
			loc = strings.TrimSpace(loc)
			if loc == "" || strings.HasPrefix(loc, "http") || !strings.Contains(loc, "/") {
				continue
			}
			base := loc[strings.LastIndex(loc, "/")+1:]
			if !strings.Contains(base, ".") {
				continue
			}
			out = append(out, loc)
		}
	}
	return out
}
