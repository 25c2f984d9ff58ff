package synthesis

import (
	"log/slog"
	"sort"

	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/judicial"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
)

// Input is everything the engine reads from a finished deliberation.
type Input struct {
	Subject  string
	Rubric   *rubric.Rubric
	Evidence map[string][]evidence.Evidence
	Opinions []judicial.Opinion
}

// Engine resolves judicial conflict into binding verdicts. It never calls
// out to a model; every decision comes from the cascade.
type Engine struct {
	cfg       Config
	cascade   Cascade
	assembler *report.Assembler
	logger    *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:       cfg,
		cascade:   NewCascade(cfg),
		assembler: report.NewAssembler(cfg.VarianceThreshold),
		logger:    logger,
	}
}

// Assembler exposes the report assembler so callers can pin its clock.
func (e *Engine) Assembler() *report.Assembler { return e.assembler }

// Resolve decides a single criterion.
func (e *Engine) Resolve(c Case, name string) report.CriterionResult {
	d := e.cascade.Decide(c)
	e.logger.Info("criterion resolved",
		"criterion", c.CriterionID,
		"rule", string(d.Rule),
		"final_score", d.FinalScore,
		"variance", d.Variance)
	return report.CriterionResult{
		DimensionID:    c.CriterionID,
		DimensionName:  name,
		FinalScore:     d.FinalScore,
		JudgeOpinions:  c.Opinions(),
		DissentSummary: Dissent(c, d, e.cfg),
		Remediation:    Remediation(c, d.FinalScore, e.cfg),
		Rule:           string(d.Rule),
		AppliedRules:   d.Applied,
	}
}

// Results resolves every criterion with a complete panel, in sorted order.
// Incomplete panels are skipped.
func (e *Engine) Results(in Input) []report.CriterionResult {
	grouped := judicial.Group(in.Opinions)
	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var results []report.CriterionResult
	for _, id := range ids {
		panel := grouped[id]
		p, okP := panel[judicial.Prosecutor]
		d, okD := panel[judicial.Defense]
		t, okT := panel[judicial.TechLead]
		if !okP || !okD || !okT {
			e.logger.Warn("skipping criterion with incomplete panel", "criterion", id, "judges", len(panel))
			continue
		}
		c := Case{CriterionID: id, Prosecutor: p, Defense: d, TechLead: t, Evidence: in.Evidence[id]}
		results = append(results, e.Resolve(c, in.Rubric.NameFor(id)))
	}
	return results
}

// Synthesize produces the final report, or report.ErrNoReport when no
// criterion had a complete panel.
func (e *Engine) Synthesize(in Input) (*report.AuditReport, error) {
	results := e.Results(in)
	if len(results) == 0 {
		e.logger.Warn("no complete judicial panels, no report produced", "opinions", len(in.Opinions))
		return nil, report.ErrNoReport
	}
	r, err := e.assembler.Assemble(in.Subject, results)
	if err != nil {
		return nil, err
	}
	e.logger.Info("report assembled",
		"criteria", len(results),
		"overall_score", r.OverallScore,
		"verdict", string(r.Verdict))
	return r, nil
}
