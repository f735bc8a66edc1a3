package flow

// TransitionKind classifies the party boundary a step transition crosses.
type TransitionKind int

const (
	// SameParty means the transition stays on one side of the boundary.
	SameParty TransitionKind = iota
	// AggregatorToCollaborator means state is about to fan out from the
	// aggregator to the collaborators.
	AggregatorToCollaborator
	// CollaboratorToAggregator means collaborator results are about to
	// merge back to the aggregator.
	CollaboratorToAggregator
)

func (k TransitionKind) String() string {
	switch k {
	case AggregatorToCollaborator:
		return "aggregator_to_collaborator"
	case CollaboratorToAggregator:
		return "collaborator_to_aggregator"
	default:
		return "same_party"
	}
}

// Classify inspects the role markers of the about-to-execute step and the
// step that just finished. It has no side effects; acting on the
// classification is the controller's responsibility.
func Classify(next, prev *Step) TransitionKind {
	if prev == nil || next == nil {
		return SameParty
	}
	switch {
	case prev.aggregator && !prev.collaborator && next.collaborator:
		return AggregatorToCollaborator
	case prev.collaborator && !prev.aggregator && next.aggregator:
		return CollaboratorToAggregator
	default:
		return SameParty
	}
}

// shouldTransfer reports whether next marks the end of a collaborator's
// private sequence relative to its parent.
func shouldTransfer(next, prev *Step) bool {
	return Classify(next, prev) == CollaboratorToAggregator
}
