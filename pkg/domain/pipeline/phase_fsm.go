package pipeline

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Phases of an audit run.
const (
	PhaseCollecting   = "collecting"
	PhaseAggregating  = "aggregating"
	PhaseDeliberating = "deliberating"
	PhaseSynthesizing = "synthesizing"
	PhaseReported     = "reported"
	PhaseAborted      = "aborted"
)

// Events that advance the run.
const (
	EventCollected   = "collected"
	EventRouteJudges = "route_judges"
	EventDeliberated = "deliberated"
	EventReported    = "reported"
	EventAbort       = "abort"
)

// PhaseContext carries the run id for logging and guards.
type PhaseContext struct {
	RunID string
}

// PhaseMachine tracks which stage of the pipeline a run is in.
type PhaseMachine struct {
	interpreter *statekit.Interpreter[PhaseContext]
}

func NewPhaseMachine(runID string) (*PhaseMachine, error) {
	builder := statekit.NewMachine[PhaseContext]("audit-run").
		WithInitial(statekit.StateID(PhaseCollecting)).
		WithContext(PhaseContext{RunID: runID})

	builder.State(PhaseCollecting).
		On(EventCollected).Target(PhaseAggregating).
		Done()

	builder.State(PhaseAggregating).
		On(EventRouteJudges).Target(PhaseDeliberating).
		On(EventAbort).Target(PhaseAborted).
		Done()

	builder.State(PhaseDeliberating).
		On(EventDeliberated).Target(PhaseSynthesizing).
		Done()

	builder.State(PhaseSynthesizing).
		On(EventReported).Target(PhaseReported).
		On(EventAbort).Target(PhaseAborted).
		Done()

	builder.State(PhaseReported).Done()
	builder.State(PhaseAborted).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build phase machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &PhaseMachine{interpreter: interpreter}, nil
}

// Fire sends an event and reports an error if the phase did not change.
func (m *PhaseMachine) Fire(event string) error {
	before := m.Current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if m.Current() != before {
		return nil
	}
	return fmt.Errorf("event %q is not allowed in phase %q", event, before)
}

func (m *PhaseMachine) Current() string {
	return string(m.interpreter.State().Value)
}

// Terminal is true once the run has reported or aborted.
func (m *PhaseMachine) Terminal() bool {
	c := m.Current()
	return c == PhaseReported || c == PhaseAborted
}
