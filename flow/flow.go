package flow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Flow is a user-authored workflow definition: a set of named steps, the
// primary state they mutate, and the runtime that executes them. One primary
// state instance exists per flow; a bounded set of clones exists per active
// fan-out.
//
// A Flow supports one active run at a time. Run concurrent flows on separate
// Flow instances.
type Flow struct {
	name         string
	steps        map[string]*Step
	order        []string
	start        *Step
	state        *State
	runtime      Runtime
	checkpointer Checkpointer
	observer     Observer
	registry     *CloneRegistry
	initial      *State
	logger       *zap.Logger
	runID        string
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the flow logger. Defaults to a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithCheckpointer enables checkpointing: current attributes are persisted
// through cp before every transition mutates state.
func WithCheckpointer(cp Checkpointer) Option {
	return func(f *Flow) {
		f.checkpointer = cp
	}
}

// WithObserver attaches engine telemetry.
func WithObserver(o Observer) Option {
	return func(f *Flow) {
		f.observer = o
	}
}

// WithAttributes seeds the primary state.
func WithAttributes(attrs map[string]any) Option {
	return func(f *Flow) {
		for name, v := range attrs {
			f.state.Set(name, v)
		}
	}
}

// New builds an empty flow. Register steps with Add; the first step added
// becomes the start step.
func New(name string, opts ...Option) *Flow {
	f := &Flow{
		name:     name,
		steps:    make(map[string]*Step),
		state:    NewState(),
		registry: NewCloneRegistry(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With(zap.String("flow", name))
	return f
}

// Add registers steps with the flow. The first step ever added is the run's
// start step.
func (f *Flow) Add(steps ...*Step) error {
	for _, s := range steps {
		if _, exists := f.steps[s.name]; exists {
			return fmt.Errorf("%s: %w", s.name, ErrDuplicateStep)
		}
		f.steps[s.name] = s
		f.order = append(f.order, s.name)
		if f.start == nil {
			f.start = s
		}
	}
	return nil
}

// Step returns the registered step with the given name.
func (f *Flow) Step(name string) (*Step, bool) {
	s, ok := f.steps[name]
	return s, ok
}

// Name returns the flow name.
func (f *Flow) Name() string { return f.name }

// State returns the primary flow state.
func (f *Flow) State() *State { return f.state }

// InitialState returns the deep copy of the primary state taken at the
// start of the last run, for reset and debugging. Not part of the hot path.
func (f *Flow) InitialState() *State { return f.initial }

// Registry returns the flow's clone registry.
func (f *Flow) Registry() *CloneRegistry { return f.registry }

// RunID returns the identifier of the current (or last) run.
func (f *Flow) RunID() string { return f.runID }

// Runtime returns the assigned runtime.
func (f *Flow) Runtime() Runtime { return f.runtime }

// SetRuntime assigns the runtime that will execute the flow. Runtimes
// outside the closed {local, federated} kind set are rejected.
func (f *Flow) SetRuntime(rt Runtime) error {
	if rt == nil {
		return ErrNoRuntime
	}
	if !rt.Kind().Valid() {
		return fmt.Errorf("%q: %w", rt.Kind(), ErrUnsupportedRuntime)
	}
	f.runtime = rt
	return nil
}

// Run starts the flow and blocks until the final attributes have been
// applied to the primary state or an error aborts the run. Serialization
// failures raised at an execution boundary propagate as
// *SerializationError; all other executor failures propagate unchanged.
func (f *Flow) Run(ctx context.Context) error {
	if f.runtime == nil {
		return ErrNoRuntime
	}
	if !f.runtime.Kind().Valid() {
		return fmt.Errorf("%q: %w", f.runtime.Kind(), ErrUnsupportedRuntime)
	}
	if f.start == nil {
		return ErrNoStart
	}

	f.runID = uuid.NewString()
	initial, err := f.state.Clone()
	if err != nil {
		return err
	}
	f.initial = initial
	f.registry.Reset()

	f.logger.Info("starting flow run",
		zap.String("run_id", f.runID),
		zap.String("runtime", string(f.runtime.Kind())),
		zap.String("start", f.start.name),
	)

	if err := f.runtime.InitializeAggregator(ctx); err != nil {
		return fmt.Errorf("initialize aggregator: %w", err)
	}
	if err := f.runtime.InitializeCollaborators(ctx); err != nil {
		return fmt.Errorf("initialize collaborators: %w", err)
	}

	fc := &Context{flow: f, state: f.state, runID: f.runID}
	attrs, err := f.runtime.ExecuteTask(ctx, fc, f.start)
	f.observe(func(o Observer) { o.RunFinished(f.name, err) })
	if err != nil {
		f.logger.Error("flow run failed", zap.String("run_id", f.runID), zap.Error(err))
		return err
	}

	for _, a := range attrs {
		f.state.Set(a.Name, a.Value)
	}
	f.logger.Info("flow run complete",
		zap.String("run_id", f.runID),
		zap.Int("final_attributes", len(attrs)),
	)
	return nil
}

func (f *Flow) observe(fn func(Observer)) {
	if f.observer != nil {
		fn(f.observer)
	}
}

func (f *Flow) logTransition(tr *Transition) {
	switch tr.Kind {
	case AggregatorToCollaborator:
		f.logger.Info("sending state from aggregator to collaborators",
			zap.String("from", stepName(tr.Parent)),
			zap.String("to", tr.Step.name),
		)
	case CollaboratorToAggregator:
		f.logger.Info("sending state from collaborator to aggregator",
			zap.String("from", stepName(tr.Parent)),
			zap.String("to", tr.Step.name),
		)
	}
	f.observe(func(o Observer) { o.Transition(f.name, tr.Kind) })
}

func stepName(s *Step) string {
	if s == nil {
		return ""
	}
	return s.name
}
