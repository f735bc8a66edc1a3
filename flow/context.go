package flow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// InputAttribute is the conventional attribute a fan-out assigns each
// collaborator's identity to on its clone.
const InputAttribute = "input"

// Context is one party's view of an executing flow: the primary context for
// the aggregator, or a registered clone for a collaborator. Step functions
// receive a Context, mutate its state, and declare their successor through
// Next.
type Context struct {
	flow         *Flow
	state        *State
	runID        string
	collaborator string

	// foreach is the ordered step-name sequence of the active fan-out
	// region; it grows as steps execute inside the region and is reset
	// only at fan-out start and at the merge.
	foreach []string

	current     *Step
	pending     *Transition
	executeNext string
	inputs      []*State
}

// State returns this party's flow state.
func (c *Context) State() *State { return c.state }

// RunID returns the run correlation token.
func (c *Context) RunID() string { return c.runID }

// FlowName returns the owning flow's name.
func (c *Context) FlowName() string { return c.flow.name }

// Collaborator returns the collaborator identity this context is a clone
// for, or "" for the primary/aggregator context.
func (c *Context) Collaborator() string { return c.collaborator }

// Input returns the value of the conventional input attribute, the
// collaborator identity assigned at fan-out.
func (c *Context) Input() string {
	v, ok := c.state.Get(InputAttribute)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Inputs returns the collaborators' final states at a transition point, for
// consumption by the merge step. Nil outside a merge.
func (c *Context) Inputs() []*State { return c.inputs }

// Step looks up a registered step by name.
func (c *Context) Step(name string) (*Step, bool) {
	return c.flow.Step(name)
}

// ForeachMethods returns a copy of the active foreach method set.
func (c *Context) ForeachMethods() []string {
	out := make([]string, len(c.foreach))
	copy(out, c.foreach)
	return out
}

// ExecuteNext returns the name of the step the collaborator's sequence
// concluded on, set when a transition point is detected.
func (c *Context) ExecuteNext() string { return c.executeNext }

// Invoke runs one step function against this context. Used by runtime
// implementations; step authors never call it.
func (c *Context) Invoke(ctx context.Context, step *Step) error {
	c.current = step
	c.pending = nil
	start := time.Now()
	err := step.fn(ctx, c)
	c.flow.observe(func(o Observer) {
		o.StepExecuted(c.flow.name, step.name, time.Since(start), err)
	})
	if err != nil {
		return fmt.Errorf("step %s: %w", step.name, err)
	}
	return nil
}

// TakeTransition returns the transition recorded by the last executed step
// and clears it. Nil means the step declared no successor and the flow (or
// the clone's sequence) has ended.
func (c *Context) TakeTransition() *Transition {
	tr := c.pending
	c.pending = nil
	return tr
}

// Next declares the next step in the flow, possibly fanned out over a
// collection, possibly with attribute filtering. It resolves the transition
// completely — checkpointing, classification, snapshot capture, filtering,
// clone preparation — and records it for the runtime to execute.
func (c *Context) Next(ctx context.Context, step *Step, opts ...TransitionOption) error {
	if c.pending != nil {
		return ErrNextDeclared
	}
	if step == nil {
		return ErrUnknownStep
	}
	if _, ok := c.flow.steps[step.name]; !ok {
		return fmt.Errorf("%s: %w", step.name, ErrUnknownStep)
	}

	tr := &Transition{Step: step, Parent: c.current}
	for _, opt := range opts {
		opt(tr)
	}
	// Declaring both include and exclude must fail before any mutation.
	if err := validateFilter(tr); err != nil {
		return err
	}

	if c.flow.checkpointer != nil && c.current != nil {
		err := c.flow.checkpointer.Save(ctx, Checkpoint{
			RunID:      c.runID,
			Flow:       c.flow.name,
			Step:       c.current.name,
			Attributes: c.state.Map(),
			CreatedAt:  time.Now(),
		})
		c.flow.observe(func(o Observer) { o.CheckpointSaved(c.flow.name, err) })
		if err != nil {
			return fmt.Errorf("checkpoint after %s: %w", c.current.name, err)
		}
	}

	tr.Kind = Classify(step, c.current)
	c.flow.logTransition(tr)

	if tr.Kind == AggregatorToCollaborator {
		snap, err := captureIfNeeded(c.state, tr)
		if err != nil {
			return err
		}
		tr.Snapshot = snap
	}

	filterState(c.state, tr.Include, tr.Exclude)

	// A step belongs to the foreach method set once its parent was already
	// in it; the region's private sequence ends exactly when the next step
	// transfers collaborator→aggregator.
	if c.current != nil && c.inForeach(c.current.name) {
		c.foreach = append(c.foreach, step.name)
		if shouldTransfer(step, c.current) {
			tr.TransitionPoint = true
			c.executeNext = step.name
			c.flow.logger.Info("collaborator sequence complete",
				zap.String("collaborator", c.collaborator),
				zap.String("from", c.current.name),
				zap.String("to", step.name),
			)
		}
	}

	if tr.Foreach != "" {
		if err := c.fanOut(tr); err != nil {
			return err
		}
	}

	c.pending = tr
	return nil
}

// fanOut prepares the clone set for a foreach transition: resets the
// registry, deep-copies the primary state per collaborator identity, assigns
// each identity to the clone's input attribute, re-applies the declared
// filtering per clone, copies forward the surviving primary attributes, and
// propagates the foreach method set.
func (c *Context) fanOut(tr *Transition) error {
	ids, ok := c.state.Strings(tr.Foreach)
	if !ok {
		return fmt.Errorf("attribute %q: %w", tr.Foreach, ErrForeachCollection)
	}

	// Fan-out starts a new region: the method set restarts at the target
	// step and the registry is emptied.
	c.foreach = []string{tr.Step.name}
	reg := c.flow.registry
	reg.Reset()
	if err := reg.CreateClones(c, ids); err != nil {
		return err
	}

	for _, id := range ids {
		clone, ok := reg.Get(id)
		if !ok {
			continue
		}
		filterState(clone.state, tr.Include, tr.Exclude)
		for name, v := range c.state.attrs {
			if name == InputAttribute {
				continue
			}
			cv, err := cloneValue(v)
			if err != nil {
				return NewSerializationError("copy attribute "+name, err)
			}
			clone.state.Set(name, cv)
		}
		clone.state.Set(InputAttribute, id)
		clone.foreach = append([]string(nil), c.foreach...)
	}

	tr.Clones = make(map[string]*Context, reg.Len())
	for _, id := range reg.IDs() {
		clone, _ := reg.Get(id)
		tr.Clones[id] = clone
	}
	tr.CloneIDs = reg.IDs()

	c.flow.logger.Info("created collaborator clones",
		zap.String("foreach", tr.Foreach),
		zap.Int("clones", len(ids)),
	)
	c.flow.observe(func(o Observer) { o.ClonesCreated(c.flow.name, len(ids)) })
	return nil
}

// Merge completes a fan-out region on the primary context: snapshot
// attributes are restored (an attribute already present always wins), the
// collaborators' final states become available through Inputs, the foreach
// method set is cleared, and the registry is emptied. Used by runtime
// implementations at the transition point.
func (c *Context) Merge(tr *Transition, cloneStates []*State) {
	Restore(c.state, tr.Snapshot)
	tr.Snapshot = nil
	c.inputs = cloneStates
	c.foreach = nil
	c.flow.registry.Reset()
}

// FinalAttributes returns the context's state as an attribute sequence.
func (c *Context) FinalAttributes() []Attribute {
	return c.state.Attributes()
}

func (c *Context) inForeach(name string) bool {
	for _, n := range c.foreach {
		if n == name {
			return true
		}
	}
	return false
}

// clone builds the collaborator execution context for id, deep-copying this
// context's state and inheriting its foreach method set and run token.
func (c *Context) clone(id string) (*Context, error) {
	st, err := c.state.Clone()
	if err != nil {
		return nil, err
	}
	return &Context{
		flow:         c.flow,
		state:        st,
		runID:        c.runID,
		collaborator: id,
		foreach:      append([]string(nil), c.foreach...),
	}, nil
}
