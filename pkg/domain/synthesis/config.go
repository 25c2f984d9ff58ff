package synthesis

import "github.com/felixgeelhaar/auditor/pkg/domain/rubric"

// Config holds the tunable constants of the conflict-resolution engine.
type Config struct {
	VarianceThreshold     int
	SecurityKeywords      []string
	FunctionalityCriteria []string
	DissentExcerpt        int
	MinorExcerpt          int
	ChargeExcerpt         int
}

func DefaultConfig() Config {
	return Config{
		VarianceThreshold: 2,
		SecurityKeywords: []string{
			"os.system",
			"shell=true",
			"shell injection",
			"command injection",
			"security violation",
			"unsanitized",
			"unsafe",
			"vulnerability",
		},
		FunctionalityCriteria: []string{rubric.GraphOrchestration},
		DissentExcerpt:        280,
		MinorExcerpt:          180,
		ChargeExcerpt:         350,
	}
}

func (c Config) functionalityWeighted(criterionID string) bool {
	for _, id := range c.FunctionalityCriteria {
		if id == criterionID {
			return true
		}
	}
	return false
}
