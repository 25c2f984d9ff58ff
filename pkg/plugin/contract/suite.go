package contract

import (
	"fmt"

	"github.com/felixgeelhaar/auditor/pkg/analysis/diagram"
	infraPlugin "github.com/felixgeelhaar/auditor/pkg/plugin"
)

// ContractSuite runs all contract assertions against a plugin binary.
type ContractSuite struct {
	loader *infraPlugin.Loader
}

// NewContractSuite creates a new contract suite.
func NewContractSuite() *ContractSuite {
	return &ContractSuite{
		loader: infraPlugin.NewLoader(),
	}
}

// SuiteResult aggregates results from running the full contract suite.
type SuiteResult struct {
	Results []Result
	Passed  int
	Failed  int
}

// RunWithAnalyzer runs the contract suite against an already-loaded analyzer.
func (s *ContractSuite) RunWithAnalyzer(a diagram.Analyzer) *SuiteResult {
	assertions := []func(diagram.Analyzer) Result{
		AssertEmptyText,
		AssertParallelDiagram,
		AssertLinearDiagram,
	}

	sr := &SuiteResult{}
	for _, assert := range assertions {
		result := assert(a)
		sr.Results = append(sr.Results, result)
		if result.Passed {
			sr.Passed++
		} else {
			sr.Failed++
		}
	}
	return sr
}

// RunBinary loads a plugin binary and runs the full contract suite.
func (s *ContractSuite) RunBinary(path string) (*SuiteResult, error) {
	defer s.loader.Cleanup()

	a, err := s.loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load plugin: %w", err)
	}

	return s.RunWithAnalyzer(a), nil
}
