package flow

// Transition is the fully-resolved execution request recorded by one Next
// call: the target step, the step that declared it, the filtering options,
// the instance snapshot taken across an aggregator→collaborator boundary,
// and, for fan-out, the whole clone set. Runtimes consume transitions via
// [Context.TakeTransition].
type Transition struct {
	// Step is the declared next step.
	Step *Step
	// Parent is the step that called Next.
	Parent *Step
	// Kind is the boundary classification of Parent → Step.
	Kind TransitionKind

	// Include and Exclude are the declared attribute filters. At most one
	// of the two may be non-empty.
	Include []string
	Exclude []string

	// Foreach names the collection attribute to fan out over, or "".
	Foreach string

	// Snapshot holds the unfiltered instance snapshot captured at an
	// aggregator→collaborator transition that declared filtering; empty
	// otherwise. Consumed by the merge, then discarded.
	Snapshot []*State

	// Clones is the fan-out clone set keyed by collaborator identity, and
	// CloneIDs the identities in creation order. Populated only when
	// Foreach is set.
	Clones   map[string]*Context
	CloneIDs []string

	// TransitionPoint is set when Step ends the collaborator's private
	// sequence and results must merge back to the aggregator.
	TransitionPoint bool
}

// TransitionOption configures one Next call.
type TransitionOption func(*Transition)

// WithExclude strips the named attributes from state before the transition;
// they become unavailable to the next step.
func WithExclude(names ...string) TransitionOption {
	return func(tr *Transition) {
		tr.Exclude = append(tr.Exclude, names...)
	}
}

// WithInclude keeps only the named attributes across the transition; all
// others are removed.
func WithInclude(names ...string) TransitionOption {
	return func(tr *Transition) {
		tr.Include = append(tr.Include, names...)
	}
}

// WithForeach fans the transition out over the named collection attribute,
// one clone per element.
func WithForeach(attr string) TransitionOption {
	return func(tr *Transition) {
		tr.Foreach = attr
	}
}
