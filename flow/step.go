package flow

import "context"

// StepFunc is the body of a step. It receives the party context for the
// state it runs against and declares its successor through [Context.Next];
// a step that declares no successor ends the flow.
type StepFunc func(ctx context.Context, fc *Context) error

// Step is one unit of work within a flow, tagged with the party roles it
// runs on. Steps are immutable once constructed and referenced by name for
// transition bookkeeping.
type Step struct {
	name         string
	fn           StepFunc
	aggregator   bool
	collaborator bool
}

// NewStep builds a step with explicit role markers. At least one role must
// be set.
func NewStep(name string, fn StepFunc, aggregator, collaborator bool) (*Step, error) {
	if !aggregator && !collaborator {
		return nil, ErrNoRoles
	}
	return &Step{name: name, fn: fn, aggregator: aggregator, collaborator: collaborator}, nil
}

// AggregatorStep builds a step that runs only on the aggregator.
func AggregatorStep(name string, fn StepFunc) *Step {
	return &Step{name: name, fn: fn, aggregator: true}
}

// CollaboratorStep builds a step that runs only on collaborators.
func CollaboratorStep(name string, fn StepFunc) *Step {
	return &Step{name: name, fn: fn, collaborator: true}
}

// SharedStep builds a step that may run on either party.
func SharedStep(name string, fn StepFunc) *Step {
	return &Step{name: name, fn: fn, aggregator: true, collaborator: true}
}

// Name returns the step name.
func (s *Step) Name() string { return s.name }

// RunsOnAggregator reports the aggregator role marker.
func (s *Step) RunsOnAggregator() bool { return s.aggregator }

// RunsOnCollaborator reports the collaborator role marker.
func (s *Step) RunsOnCollaborator() bool { return s.collaborator }
