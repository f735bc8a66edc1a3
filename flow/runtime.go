package flow

import (
	"context"
	"time"
)

// RuntimeKind identifies one of the two supported runtime variants. The set
// is closed: any other value is a fatal configuration error.
type RuntimeKind string

const (
	// KindLocal executes the flow in-process, optionally across a worker
	// pool.
	KindLocal RuntimeKind = "local"
	// KindFederated prepares fan-out regions for a remote dispatch
	// transport.
	KindFederated RuntimeKind = "federated"
)

// Valid reports whether k belongs to the closed runtime-kind set.
func (k RuntimeKind) Valid() bool {
	return k == KindLocal || k == KindFederated
}

// Runtime executes the declared step graph across aggregator and
// collaborator contexts and returns the final attributes. The engine fully
// resolves every transition before handing off; the runtime only ever
// receives non-aliased deep clones, so it may execute collaborator tasks
// concurrently without locking.
type Runtime interface {
	// Kind returns the runtime variant.
	Kind() RuntimeKind

	// Collaborators returns the collaborator identities this runtime
	// manages.
	Collaborators() []string

	// InitializeAggregator prepares aggregator-side private state. Called
	// once per run, before the first task executes.
	InitializeAggregator(ctx context.Context) error

	// InitializeCollaborators prepares collaborator-side private state.
	// Called once per run, after InitializeAggregator.
	InitializeCollaborators(ctx context.Context) error

	// ExecuteTask runs the step graph rooted at start against fc and
	// returns the final (attribute-name, value) pairs.
	ExecuteTask(ctx context.Context, fc *Context, start *Step) ([]Attribute, error)
}

// Checkpoint is the durable record the controller hands to a Checkpointer
// just before a transition mutates state.
type Checkpoint struct {
	RunID      string
	Flow       string
	Step       string
	Attributes map[string]any
	CreatedAt  time.Time
}

// Checkpointer persists checkpoints. Invoked only when checkpointing is
// enabled; failures propagate to the step that called Next.
type Checkpointer interface {
	Save(ctx context.Context, cp Checkpoint) error
}

// Observer receives engine telemetry. All methods must be cheap and must
// not panic; the engine calls them inline.
type Observer interface {
	Transition(flowName string, kind TransitionKind)
	ClonesCreated(flowName string, n int)
	CheckpointSaved(flowName string, err error)
	StepExecuted(flowName, step string, d time.Duration, err error)
	RunFinished(flowName string, err error)
}
