package runtime

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/refai06/openfl/flow"
)

// Dispatcher sends a fully-resolved fan-out region to remote collaborators
// and returns their final states. The wire transport behind a Dispatcher is
// outside this module.
type Dispatcher interface {
	// ExecuteRegion executes the region rooted at tr.Step on every clone in
	// tr.Clones, returning each collaborator's final state keyed by
	// identity and the name of the step the region merges on. A transport
	// that cannot encode the region's state must return a
	// *flow.SerializationError.
	ExecuteRegion(ctx context.Context, tr *flow.Transition) (map[string]*flow.State, string, error)
}

// Federated runs aggregator steps in-process and delegates every foreach
// region to a Dispatcher.
type Federated struct {
	collaborators []string
	dispatcher    Dispatcher
	logger        *zap.Logger

	aggInit  Initializer
	aggAttrs map[string]any
}

// FederatedOption configures a Federated runtime.
type FederatedOption func(*Federated)

// WithDispatcher sets the remote dispatch backend.
func WithDispatcher(d Dispatcher) FederatedOption {
	return func(r *Federated) { r.dispatcher = d }
}

// WithFederatedLogger sets the runtime logger.
func WithFederatedLogger(logger *zap.Logger) FederatedOption {
	return func(r *Federated) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFederatedAggregatorInit registers the aggregator private-attribute
// initializer.
func WithFederatedAggregatorInit(fn Initializer) FederatedOption {
	return func(r *Federated) { r.aggInit = fn }
}

// NewFederated builds a federated runtime over the named collaborators.
func NewFederated(collaborators []string, opts ...FederatedOption) *Federated {
	r := &Federated{
		collaborators: append([]string(nil), collaborators...),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "federated_runtime"))
	return r
}

// Kind implements flow.Runtime.
func (r *Federated) Kind() flow.RuntimeKind { return flow.KindFederated }

// Collaborators implements flow.Runtime.
func (r *Federated) Collaborators() []string {
	out := make([]string, len(r.collaborators))
	copy(out, r.collaborators)
	return out
}

// InitializeAggregator materializes the aggregator's private attributes.
func (r *Federated) InitializeAggregator(ctx context.Context) error {
	if r.aggInit == nil {
		return nil
	}
	attrs, err := r.aggInit(ctx)
	if err != nil {
		return fmt.Errorf("initialize aggregator: %w", err)
	}
	r.aggAttrs = attrs
	return nil
}

// InitializeCollaborators is a no-op for the federated runtime: remote
// collaborators own their private state and initialize it on their side of
// the transport.
func (r *Federated) InitializeCollaborators(ctx context.Context) error {
	return nil
}

// ExecuteTask walks the step graph from start, dispatching every foreach
// region through the configured Dispatcher. A federated runtime without a
// dispatcher is a configuration error, not a silent no-op.
func (r *Federated) ExecuteTask(ctx context.Context, fc *flow.Context, start *flow.Step) ([]flow.Attribute, error) {
	if r.dispatcher == nil {
		return nil, flow.ErrNoDispatcher
	}

	for name, v := range r.aggAttrs {
		fc.State().Set(name, v)
	}

	cur := start
	for cur != nil {
		if err := fc.Invoke(ctx, cur); err != nil {
			return nil, err
		}
		tr := fc.TakeTransition()
		if tr == nil {
			break
		}
		if tr.Foreach != "" {
			join, states, err := r.dispatchRegion(ctx, fc, tr)
			if err != nil {
				return nil, err
			}
			fc.Merge(tr, states)
			cur = join
			continue
		}
		cur = tr.Step
	}

	for name := range r.aggAttrs {
		fc.State().Delete(name)
	}
	return fc.FinalAttributes(), nil
}

func (r *Federated) dispatchRegion(ctx context.Context, fc *flow.Context, tr *flow.Transition) (*flow.Step, []*flow.State, error) {
	r.logger.Info("dispatching foreach region",
		zap.String("step", tr.Step.Name()),
		zap.Int("collaborators", len(tr.CloneIDs)),
	)

	byID, join, err := r.dispatcher.ExecuteRegion(ctx, tr)
	if err != nil {
		return nil, nil, fmt.Errorf("dispatch region %s: %w", tr.Step.Name(), err)
	}

	states := make([]*flow.State, 0, len(tr.CloneIDs))
	for _, id := range tr.CloneIDs {
		st, ok := byID[id]
		if !ok {
			return nil, nil, fmt.Errorf("dispatcher returned no state for collaborator %s", id)
		}
		states = append(states, st)
	}

	joinStep, ok := fc.Step(join)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", join, flow.ErrUnknownStep)
	}
	return joinStep, states, nil
}
