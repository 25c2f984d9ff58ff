package application_test

import (
	"strings"
	"testing"

	"github.com/felixgeelhaar/auditor/pkg/application"
	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
)

func claims(paths ...string) evidence.Evidence {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("  claimed: " + p + "\n")
	}
	e, _ := evidence.New(rubric.ReportAccuracy, "paths claimed in report", true, b.String(), "report.pdf", "extracted", 0.85)
	return e
}

func TestCrossReference_AllVerified(t *testing.T) {
	store := evidence.NewStore()
	store.Append(rubric.ReportAccuracy, claims("./src/graph.py", `src\state.py`))

	res := application.CrossReference(store, []string{"src/graph.py", "src/state.py", "README.md"}, nil)
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.Rate != 0 || len(res.Verified) != 2 {
		t.Errorf("unexpected result %+v", res)
	}
	list := store.Get(rubric.ReportAccuracy)
	if len(list) != 2 {
		t.Fatalf("expected exactly one appended record, got %d", len(list))
	}
	last := list[1]
	if !last.Found || last.Confidence != 0.88 {
		t.Errorf("unexpected verdict %+v", last)
	}
}

func TestCrossReference_Hallucinated(t *testing.T) {
	store := evidence.NewStore()
	store.Append(rubric.ReportAccuracy, claims("src/graph.py", "src/imaginary.py"))

	res := application.CrossReference(store, []string{"src/graph.py"}, nil)
	if res == nil || res.Rate != 0.5 || len(res.Hallucinated) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	last := store.Get(rubric.ReportAccuracy)[1]
	if last.Found {
		t.Error("hallucinated paths must not pass")
	}
	if !strings.Contains(last.Text(), "src/imaginary.py") || !strings.Contains(last.Rationale, "50.0%") {
		t.Errorf("unexpected verdict %q / %q", last.Text(), last.Rationale)
	}
}

func TestCrossReference_NoOp(t *testing.T) {
	store := evidence.NewStore()
	store.Append(rubric.ReportAccuracy, found(rubric.ReportAccuracy, "no claims here"))
	if res := application.CrossReference(store, []string{"a.go"}, nil); res != nil {
		t.Error("expected no-op without claims")
	}

	store = evidence.NewStore()
	store.Append(rubric.ReportAccuracy, claims("src/a.py"))
	if res := application.CrossReference(store, nil, nil); res != nil {
		t.Error("expected no-op without a catalog")
	}
	if n := len(store.Get(rubric.ReportAccuracy)); n != 1 {
		t.Errorf("store should be unchanged, got %d records", n)
	}
}

func TestCrossReference_CatalogFromLocations(t *testing.T) {
	store := evidence.NewStore()
	store.Append(rubric.ReportAccuracy, claims("src/graph.py"))
	e, _ := evidence.New(rubric.GraphOrchestration, "graph", true, "", `src\graph.py:42`, "seen", 0.9)
	store.Append(rubric.GraphOrchestration, e)
	url := evidence.NotFound(rubric.GitForensicAnalysis, "git", "https://github.com/acme/agent", "clone failed", 1)
	store.Append(rubric.GitForensicAnalysis, url)

	res := application.CrossReference(store, nil, []string{rubric.GraphOrchestration, rubric.GitForensicAnalysis})
	if res == nil || len(res.Verified) != 1 {
		t.Fatalf("expected claim verified from locations, got %+v", res)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"./src/a.go":   "src/a.go",
		"././src/a.go": "src/a.go",
		`.\src\a.go`:   "src/a.go",
		"src/a.go":     "src/a.go",
	}
	for in, want := range tests {
		if got := application.NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}
