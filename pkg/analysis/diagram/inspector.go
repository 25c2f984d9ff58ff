package diagram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/auditor/pkg/analysis/document"
	"github.com/felixgeelhaar/auditor/pkg/application"
	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
)

const goal = "Verify the architecture diagram shows the parallel fan-out/fan-in swarm"

// Assessment is the verdict over all diagrams of one report.
type Assessment struct {
	Diagrams []Diagram `json:"diagrams"`
}

// Parallel counts diagrams showing both a split and a join.
func (a Assessment) Parallel() int {
	n := 0
	for _, d := range a.Diagrams {
		if d.Parallel() {
			n++
		}
	}
	return n
}

// Patterns counts fan-out and fan-in pairs across all diagrams.
func (a Assessment) Patterns() int {
	n := 0
	for _, d := range a.Diagrams {
		n += min(len(d.FanOut), len(d.FanIn))
	}
	return n
}

// Analyzer classifies report text. Implementations may run out of process.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Assessment, error)
}

// LocalAnalyzer runs Extract in process.
type LocalAnalyzer struct{}

func (LocalAnalyzer) Analyze(ctx context.Context, text string) (Assessment, error) {
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}
	return Assessment{Diagrams: Extract(text)}, nil
}

// AnalyzerFactory opens an Analyzer for one investigation. The returned
// release func is called when the investigation ends.
type AnalyzerFactory func() (Analyzer, func(), error)

// Local is the in-process factory.
func Local() (Analyzer, func(), error) {
	return LocalAnalyzer{}, func() {}, nil
}

// Inspector is the detective for diagram criteria.
type Inspector struct {
	Extractor document.Extractor
	Open      AnalyzerFactory
	Logger    *slog.Logger
}

var _ application.Detective = (*Inspector)(nil)

func NewInspector(ex document.Extractor, open AnalyzerFactory, logger *slog.Logger) *Inspector {
	if ex == nil {
		ex = document.AutoExtractor{}
	}
	if open == nil {
		open = Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inspector{Extractor: ex, Open: open, Logger: logger}
}

func (i *Inspector) Name() string { return "diagram_inspector" }

func (i *Inspector) Criteria(r *rubric.Rubric) []string {
	return r.IDsFor(rubric.ArtifactImages)
}

func (i *Inspector) Investigate(ctx context.Context, in application.DetectiveInput) (application.Findings, error) {
	criteria := i.Criteria(in.Rubric)
	doc, err := document.Ingest(ctx, i.Extractor, in.DocumentPath)
	if err != nil {
		return application.Findings{Evidence: document.UnavailableFindings(criteria, in.DocumentPath, err)}, nil
	}

	analyzer, release, err := i.Open()
	if err != nil {
		return application.Findings{}, fmt.Errorf("failed to start diagram analyzer: %w", err)
	}
	defer release()

	a, err := analyzer.Analyze(ctx, doc.Text)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return application.Findings{}, err
		}
		return application.Findings{}, fmt.Errorf("diagram analysis failed: %w", err)
	}
	i.Logger.Info("diagrams analyzed", "path", doc.Path, "diagrams", len(a.Diagrams), "parallel", a.Parallel())

	out := evidence.Partial{}
	for _, id := range criteria {
		out.Add(Evidence(id, doc.Path, a))
	}
	return application.Findings{Evidence: out}, nil
}

// Evidence turns an assessment into the record for criterion id.
func Evidence(id, location string, a Assessment) evidence.Evidence {
	if len(a.Diagrams) == 0 {
		return evidence.NotFound(id, goal, location,
			"No mermaid or graphviz diagram could be recovered from the report.", 0.40)
	}

	var b strings.Builder
	linear := 0
	for n, d := range a.Diagrams {
		shape := "branching"
		switch {
		case d.Parallel():
			shape = "parallel"
		case d.Linear():
			shape = "linear"
			linear++
		}
		fmt.Fprintf(&b, "Diagram %d (%s): %d nodes, %d edges, %s, fan-out=%v fan-in=%v\n",
			n+1, d.Kind, len(d.Nodes), len(d.Edges), shape, d.FanOut, d.FanIn)
	}
	content := strings.TrimRight(b.String(), "\n")

	rationale := fmt.Sprintf("Diagrams analyzed: %d. Fan-out/fan-in shown: %s. Fan patterns: %d.",
		len(a.Diagrams), yesNo(a.Parallel() > 0), a.Patterns())
	if linear == len(a.Diagrams) {
		rationale += " Every diagram is a linear pipeline."
	}
	return evidence.Evidence{
		Goal:        goal,
		Found:       a.Parallel() > 0,
		Content:     &content,
		Location:    location,
		Rationale:   rationale,
		Confidence:  0.88,
		CriterionID: id,
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
