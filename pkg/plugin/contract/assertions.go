// Package contract provides contract test assertions for diagram analyzer plugins.
package contract

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/auditor/pkg/analysis/diagram"
)

// Result captures the outcome of a single contract assertion.
type Result struct {
	Name    string
	Passed  bool
	Message string
}

const parallelFixture = "```mermaid\nflowchart TD\n  start --> repo\n  start --> doc\n  repo --> agg\n  doc --> agg\n```\n"

const linearFixture = "digraph g {\n  clone -> read -> judge;\n}\n"

// AssertEmptyText verifies prose without diagrams yields an empty assessment.
func AssertEmptyText(a diagram.Analyzer) Result {
	res, err := a.Analyze(context.Background(), "A report with no diagrams.")
	if err != nil {
		return Result{Name: "EmptyText", Passed: false, Message: fmt.Sprintf("Analyze failed: %v", err)}
	}
	if len(res.Diagrams) != 0 {
		return Result{Name: "EmptyText", Passed: false, Message: fmt.Sprintf("expected no diagrams, got %d", len(res.Diagrams))}
	}
	return Result{Name: "EmptyText", Passed: true, Message: "no diagrams reported"}
}

// AssertParallelDiagram verifies a split and join is recognised.
func AssertParallelDiagram(a diagram.Analyzer) Result {
	res, err := a.Analyze(context.Background(), parallelFixture)
	if err != nil {
		return Result{Name: "ParallelDiagram", Passed: false, Message: fmt.Sprintf("Analyze failed: %v", err)}
	}
	if res.Parallel() != 1 {
		return Result{Name: "ParallelDiagram", Passed: false, Message: fmt.Sprintf("expected 1 parallel diagram, got %d", res.Parallel())}
	}
	return Result{Name: "ParallelDiagram", Passed: true, Message: "fan-out and fan-in detected"}
}

// AssertLinearDiagram verifies a pipeline is not mistaken for a swarm.
func AssertLinearDiagram(a diagram.Analyzer) Result {
	res, err := a.Analyze(context.Background(), linearFixture)
	if err != nil {
		return Result{Name: "LinearDiagram", Passed: false, Message: fmt.Sprintf("Analyze failed: %v", err)}
	}
	if len(res.Diagrams) != 1 || !res.Diagrams[0].Linear() {
		return Result{Name: "LinearDiagram", Passed: false, Message: "expected exactly one linear diagram"}
	}
	return Result{Name: "LinearDiagram", Passed: true, Message: "linear pipeline detected"}
}
