package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/auditor/pkg/application"
	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
)

const claimedPathConfidence = 0.85

// Analyst reads the architectural report and collects document evidence.
type Analyst struct {
	Extractor Extractor
	Logger    *slog.Logger
}

var _ application.Detective = (*Analyst)(nil)

func NewAnalyst(ex Extractor, logger *slog.Logger) *Analyst {
	if ex == nil {
		ex = AutoExtractor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyst{Extractor: ex, Logger: logger}
}

func (a *Analyst) Name() string { return "doc_analyst" }

func (a *Analyst) Criteria(r *rubric.Rubric) []string {
	return r.IDsFor(rubric.ArtifactDocument)
}

func (a *Analyst) Investigate(ctx context.Context, in application.DetectiveInput) (application.Findings, error) {
	criteria := a.Criteria(in.Rubric)
	doc, err := Ingest(ctx, a.Extractor, in.DocumentPath)
	if err != nil {
		a.Logger.Warn("document unavailable", "path", in.DocumentPath, "error", err)
		return application.Findings{Evidence: UnavailableFindings(criteria, in.DocumentPath, err)}, nil
	}
	a.Logger.Info("document ingested", "path", doc.Path, "paragraphs", len(doc.Paragraphs))

	out := evidence.Partial{}
	for _, id := range criteria {
		switch id {
		case rubric.TheoreticalDepth:
			out.Add(depthEvidence(doc))
		case rubric.ReportAccuracy:
			out.Add(claimedPathsEvidence(doc))
		default:
			out.Add(evidence.NotFound(id, "Investigate "+rubric.TitleFromID(id), doc.Path,
				"No document protocol exists for this criterion.", 0.5))
		}
	}
	return application.Findings{Evidence: out}, nil
}

func depthEvidence(doc *Document) evidence.Evidence {
	d := doc.AnalyzeDepth()
	missing := "none"
	if len(d.Missing) > 0 {
		missing = strings.Join(d.Missing, ", ")
	}
	verdict := "Some terms only dropped as buzzwords."
	if d.Substantive == len(d.Terms) {
		verdict = "All key terms explained with context."
	}
	confidence := 0.95
	if d.AnyFound() {
		confidence = 0.90
	}
	summary := d.Summary()
	return evidence.Evidence{
		Goal:        "Verify the required architecture terms appear in substantive explanations",
		Found:       d.Passes(),
		Content:     &summary,
		Location:    doc.Path,
		Rationale:   fmt.Sprintf("Substantive hits: %d/%d. Missing terms: %s. %s", d.Substantive, len(d.Terms), missing, verdict),
		Confidence:  confidence,
		CriterionID: rubric.TheoreticalDepth,
	}
}

// claimedPathsEvidence lists cited paths as "claimed: <path>" lines. The
// check against the repository happens after all detectives finish.
func claimedPathsEvidence(doc *Document) evidence.Evidence {
	paths := doc.ClaimedPaths()
	e := evidence.Evidence{
		Goal:     "Extract file paths cited in the report for cross-reference against the repository",
		Found:    len(paths) > 0,
		Location: doc.Path,
		Rationale: fmt.Sprintf("Extracted %d file path(s) from the report. "+
			"Cross-reference with the repository runs after the detectives merge.", len(paths)),
		Confidence:  claimedPathConfidence,
		CriterionID: rubric.ReportAccuracy,
	}
	if len(paths) > 0 {
		lines := make([]string, len(paths))
		for i, p := range paths {
			lines[i] = "  claimed: " + p
		}
		content := strings.Join(lines, "\n")
		e.Content = &content
	}
	return e
}

// UnavailableFindings records why the report could not be read. A missing
// file is certain; an extraction failure is reported at 0.9.
func UnavailableFindings(criteria []string, path string, cause error) evidence.Partial {
	location := path
	if strings.TrimSpace(location) == "" {
		location = "(not specified)"
	}
	confidence := 0.90
	rationale := "Report could not be ingested for analysis."
	var content *string
	if errors.Is(cause, ErrDocumentMissing) {
		confidence = 1.0
		rationale = "Report was not provided or does not exist at the given path."
	} else {
		msg := cause.Error()
		content = &msg
	}
	out := evidence.Partial{}
	for _, id := range criteria {
		out.Add(evidence.Evidence{
			Goal:        "Parse the report and run document forensic protocols",
			Found:       false,
			Content:     content,
			Location:    location,
			Rationale:   rationale,
			Confidence:  confidence,
			CriterionID: id,
		})
	}
	return out
}
