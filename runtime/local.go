package runtime

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/refai06/openfl/flow"
	"github.com/refai06/openfl/internal/pool"
)

// Backend selects how the local runtime executes collaborator tasks.
type Backend string

const (
	// BackendSingle runs collaborator tasks sequentially in the calling
	// goroutine.
	BackendSingle Backend = "single"
	// BackendPool runs collaborator tasks on a bounded goroutine pool.
	BackendPool Backend = "pool"
)

const tracerName = "github.com/refai06/openfl/runtime"

// Initializer produces a party's private attributes: state the party holds
// locally that never crosses the aggregator/collaborator boundary.
type Initializer func(ctx context.Context) (map[string]any, error)

// CollaboratorInitializer produces one collaborator's private attributes.
type CollaboratorInitializer func(ctx context.Context, name string) (map[string]any, error)

// Local executes a flow in-process. Clone isolation is established by the
// engine before tasks reach the runtime, so the pool backend needs no
// locking around state.
type Local struct {
	collaborators []string
	backend       Backend
	workers       int
	logger        *zap.Logger
	tracer        trace.Tracer

	aggInit  Initializer
	colInit  CollaboratorInitializer
	aggAttrs map[string]any
	colAttrs map[string]map[string]any

	workerPool *pool.GoroutinePool
}

// LocalOption configures a Local runtime.
type LocalOption func(*Local)

// WithBackend selects the execution backend. Defaults to BackendSingle.
func WithBackend(b Backend) LocalOption {
	return func(r *Local) { r.backend = b }
}

// WithWorkers bounds pool-backend parallelism. Defaults to the number of
// collaborators.
func WithWorkers(n int) LocalOption {
	return func(r *Local) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the runtime logger.
func WithLogger(logger *zap.Logger) LocalOption {
	return func(r *Local) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithAggregatorInit registers the aggregator private-attribute initializer.
func WithAggregatorInit(fn Initializer) LocalOption {
	return func(r *Local) { r.aggInit = fn }
}

// WithCollaboratorInit registers the per-collaborator private-attribute
// initializer.
func WithCollaboratorInit(fn CollaboratorInitializer) LocalOption {
	return func(r *Local) { r.colInit = fn }
}

// NewLocal builds a local runtime over the named collaborators.
func NewLocal(collaborators []string, opts ...LocalOption) *Local {
	r := &Local{
		collaborators: append([]string(nil), collaborators...),
		backend:       BackendSingle,
		workers:       len(collaborators),
		logger:        zap.NewNop(),
		colAttrs:      make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers <= 0 {
		r.workers = 1
	}
	r.logger = r.logger.With(zap.String("component", "local_runtime"))
	r.tracer = otel.Tracer(tracerName)
	if r.backend == BackendPool {
		r.workerPool = pool.NewGoroutinePool(pool.GoroutinePoolConfig{
			MaxWorkers: r.workers,
			QueueSize:  len(collaborators) + 1,
		})
	}
	return r
}

// Kind implements flow.Runtime.
func (r *Local) Kind() flow.RuntimeKind { return flow.KindLocal }

// Collaborators implements flow.Runtime.
func (r *Local) Collaborators() []string {
	out := make([]string, len(r.collaborators))
	copy(out, r.collaborators)
	return out
}

// InitializeAggregator materializes the aggregator's private attributes.
func (r *Local) InitializeAggregator(ctx context.Context) error {
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

// InitializeCollaborators materializes each collaborator's private
// attributes, in parallel.
func (r *Local) InitializeCollaborators(ctx context.Context) error {
	if r.colInit == nil {
		return nil
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, name := range r.collaborators {
		name := name
		g.Go(func() error {
			attrs, err := r.colInit(gctx, name)
			if err != nil {
				return fmt.Errorf("initialize collaborator %s: %w", name, err)
			}
			mu.Lock()
			r.colAttrs[name] = attrs
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// Close releases the worker pool, if any.
func (r *Local) Close() {
	if r.workerPool != nil {
		r.workerPool.Close()
	}
}

// ExecuteTask walks the step graph from start: aggregator steps run inline,
// foreach regions fan out across the prepared clones and merge back at the
// transition point. Returns the final attributes of the primary context,
// with aggregator private attributes stripped.
func (r *Local) ExecuteTask(ctx context.Context, fc *flow.Context, start *flow.Step) ([]flow.Attribute, error) {
	for name, v := range r.aggAttrs {
		fc.State().Set(name, v)
	}

	cur := start
	for cur != nil {
		if err := r.invokeStep(ctx, fc, cur); err != nil {
			return nil, err
		}
		tr := fc.TakeTransition()
		if tr == nil {
			break
		}
		if tr.Foreach != "" {
			join, states, err := r.executeForeach(ctx, fc, tr)
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

// executeForeach runs one fan-out region: every clone executes the region's
// steps until its transition point, then the clones' final states are
// collected in creation order for the merge.
func (r *Local) executeForeach(ctx context.Context, fc *flow.Context, tr *flow.Transition) (*flow.Step, []*flow.State, error) {
	ids := tr.CloneIDs
	joins := make([]string, len(ids))
	errs := make([]error, len(ids))

	runOne := func(ctx context.Context, i int, id string) error {
		clone, ok := tr.Clones[id]
		if !ok {
			return fmt.Errorf("collaborator %s has no clone", id)
		}
		for name, v := range r.colAttrs[id] {
			clone.State().Set(name, v)
		}
		cur := tr.Step
		for cur != nil {
			if err := r.invokeStep(ctx, clone, cur); err != nil {
				return err
			}
			ctr := clone.TakeTransition()
			if ctr == nil {
				return nil
			}
			if ctr.TransitionPoint {
				joins[i] = ctr.Step.Name()
				return nil
			}
			cur = ctr.Step
		}
		return nil
	}

	switch r.backend {
	case BackendPool:
		results := make([]<-chan error, len(ids))
		for i, id := range ids {
			i, id := i, id
			ch, err := r.workerPool.Submit(ctx, func(ctx context.Context) error {
				return runOne(ctx, i, id)
			})
			if err != nil {
				return nil, nil, fmt.Errorf("submit collaborator %s: %w", id, err)
			}
			results[i] = ch
		}
		for i, ch := range results {
			select {
			case errs[i] = <-ch:
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}
	default:
		for i, id := range ids {
			errs[i] = runOne(ctx, i, id)
		}
	}

	for i, err := range errs {
		if err != nil {
			return nil, nil, fmt.Errorf("collaborator %s: %w", ids[i], err)
		}
	}

	join := ""
	states := make([]*flow.State, 0, len(ids))
	for i, id := range ids {
		clone := tr.Clones[id]
		for name := range r.colAttrs[id] {
			clone.State().Delete(name)
		}
		states = append(states, clone.State())
		switch {
		case joins[i] == "":
			return nil, nil, fmt.Errorf("collaborator %s: foreach region ended without a transition point", id)
		case join == "":
			join = joins[i]
		case join != joins[i]:
			return nil, nil, fmt.Errorf("collaborators disagree on transition point: %s vs %s", join, joins[i])
		}
	}

	joinStep, ok := fc.Step(join)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", join, flow.ErrUnknownStep)
	}
	r.logger.Info("foreach region complete",
		zap.String("join", join),
		zap.Int("collaborators", len(ids)),
	)
	return joinStep, states, nil
}

func (r *Local) invokeStep(ctx context.Context, c *flow.Context, s *flow.Step) error {
	ctx, span := r.tracer.Start(ctx, "flow.step "+s.Name(),
		trace.WithAttributes(
			attribute.String("flow.name", c.FlowName()),
			attribute.String("flow.step", s.Name()),
			attribute.String("flow.collaborator", c.Collaborator()),
		),
	)
	defer span.End()
	if err := c.Invoke(ctx, s); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
