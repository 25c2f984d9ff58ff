package synthesis

import (
	"fmt"
	"math"
	"strings"

	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/judicial"
)

// RuleID names a conflict-resolution rule.
type RuleID string

const (
	RuleSecurityOverride       RuleID = "security_override"
	RuleFactSupremacy          RuleID = "fact_supremacy"
	RuleFunctionalityWeight    RuleID = "functionality_weight"
	RuleVarianceReEvaluation   RuleID = "variance_re_evaluation"
	RuleDefaultWeightedAverage RuleID = "default_weighted_average"
)

// Case is the input to the cascade for a single criterion.
type Case struct {
	CriterionID string
	Prosecutor  judicial.Opinion
	Defense     judicial.Opinion
	TechLead    judicial.Opinion
	Evidence    []evidence.Evidence
}

// Variance is the spread between the highest and lowest score.
func (c Case) Variance() int {
	scores := []int{c.Prosecutor.Score, c.Defense.Score, c.TechLead.Score}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		lo = min(lo, s)
		hi = max(hi, s)
	}
	return hi - lo
}

// Opinions returns the trio in canonical order.
func (c Case) Opinions() []judicial.Opinion {
	return []judicial.Opinion{c.Prosecutor, c.Defense, c.TechLead}
}

// Rule is one (predicate, resolver) pair of the cascade.
type Rule struct {
	ID      RuleID
	Applies func(Case) bool
	Resolve func(Case) (score int, description string)
}

// Cascade evaluates rules in order; the first applicable rule decides.
type Cascade []Rule

// Decision is the outcome of the cascade for one criterion.
type Decision struct {
	FinalScore int
	Rule       RuleID
	Applied    []string
	Variance   int
}

// Decide is pure: the same case always yields the same decision.
func (c Cascade) Decide(in Case) Decision {
	for _, r := range c {
		if !r.Applies(in) {
			continue
		}
		score, desc := r.Resolve(in)
		return Decision{
			FinalScore: judicial.ClampScore(score),
			Rule:       r.ID,
			Applied:    []string{desc},
			Variance:   in.Variance(),
		}
	}
	// Unreachable with NewCascade, which ends in an unconditional rule.
	return Decision{FinalScore: judicial.ClampScore(in.TechLead.Score), Rule: RuleDefaultWeightedAverage, Variance: in.Variance()}
}

// NewCascade returns the five rules in priority order.
func NewCascade(cfg Config) Cascade {
	return Cascade{
		securityOverride(cfg),
		factSupremacy(),
		functionalityWeight(cfg),
		varianceReEvaluation(cfg),
		defaultWeightedAverage(),
	}
}

// roundScore rounds half to even and clamps to the score range.
func roundScore(x float64) int {
	return judicial.ClampScore(int(math.RoundToEven(x)))
}

func containsSecurityKeyword(keywords []string, argument string) bool {
	text := strings.ToLower(argument)
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func securityOverride(cfg Config) Rule {
	return Rule{
		ID: RuleSecurityOverride,
		Applies: func(c Case) bool {
			return c.Prosecutor.Score <= 2 &&
				containsSecurityKeyword(cfg.SecurityKeywords, c.Prosecutor.Argument) &&
				c.TechLead.Score <= 3
		},
		Resolve: func(c Case) (int, string) {
			capped := min(3, c.TechLead.Score)
			return capped, fmt.Sprintf(
				"%s: Prosecutor flagged a security violation (Prosecutor=%d) confirmed by Tech Lead (TechLead=%d). Score capped at 3 -> %d.",
				RuleSecurityOverride, c.Prosecutor.Score, c.TechLead.Score, capped)
		},
	}
}

func factSupremacy() Rule {
	return Rule{
		ID: RuleFactSupremacy,
		Applies: func(c Case) bool {
			if len(c.Evidence) == 0 {
				return false
			}
			for _, e := range c.Evidence {
				if e.Found {
					return false
				}
			}
			return c.Defense.Score > c.Prosecutor.Score+1 && c.Defense.Score > c.TechLead.Score+1
		},
		Resolve: func(c Case) (int, string) {
			raw := float64(c.Prosecutor.Score+c.TechLead.Score) / 2
			final := roundScore(raw)
			return final, fmt.Sprintf(
				"%s: all %d evidence items have found=false. Defense=%d overruled. avg(Prosecutor=%d, TechLead=%d) = %.1f -> %d.",
				RuleFactSupremacy, len(c.Evidence), c.Defense.Score, c.Prosecutor.Score, c.TechLead.Score, raw, final)
		},
	}
}

func functionalityWeight(cfg Config) Rule {
	return Rule{
		ID: RuleFunctionalityWeight,
		Applies: func(c Case) bool {
			return cfg.functionalityWeighted(c.CriterionID) && c.TechLead.Score >= 4
		},
		Resolve: func(c Case) (int, string) {
			weighted := float64(c.TechLead.Score)*0.50 + float64(c.Prosecutor.Score)*0.25 + float64(c.Defense.Score)*0.25
			final := roundScore(weighted)
			return final, fmt.Sprintf(
				"%s: Tech Lead confirmed sound architecture (TechLead=%d), weight raised to 50%%. Weighted=%.2f -> %d.",
				RuleFunctionalityWeight, c.TechLead.Score, weighted, final)
		},
	}
}

func varianceReEvaluation(cfg Config) Rule {
	return Rule{
		ID: RuleVarianceReEvaluation,
		Applies: func(c Case) bool {
			return c.Variance() > cfg.VarianceThreshold
		},
		Resolve: func(c Case) (int, string) {
			return c.TechLead.Score, fmt.Sprintf(
				"%s: variance=%d exceeds threshold=%d (Prosecutor=%d, Defense=%d, TechLead=%d). Tech Lead arbiter score used -> %d.",
				RuleVarianceReEvaluation, c.Variance(), cfg.VarianceThreshold,
				c.Prosecutor.Score, c.Defense.Score, c.TechLead.Score, c.TechLead.Score)
		},
	}
}

func defaultWeightedAverage() Rule {
	return Rule{
		ID:      RuleDefaultWeightedAverage,
		Applies: func(Case) bool { return true },
		Resolve: func(c Case) (int, string) {
			weighted := float64(c.TechLead.Score)*0.40 + float64(c.Prosecutor.Score)*0.30 + float64(c.Defense.Score)*0.30
			final := roundScore(weighted)
			return final, fmt.Sprintf(
				"%s: TechLead(40%%)=%d + Prosecutor(30%%)=%d + Defense(30%%)=%d = %.2f -> %d.",
				RuleDefaultWeightedAverage, c.TechLead.Score, c.Prosecutor.Score, c.Defense.Score, weighted, final)
		},
	}
}
