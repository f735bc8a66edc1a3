package flow

// captureIfNeeded takes a full deep copy of state when the transition
// declares include or exclude filtering, returned wrapped in a slice (empty
// otherwise). Filtering is destructive on the live object, so a pristine
// copy must survive for later restoration of attributes the collaborator
// path is not meant to see but the aggregator still needs.
func captureIfNeeded(state *State, tr *Transition) ([]*State, error) {
	if len(tr.Include) == 0 && len(tr.Exclude) == 0 {
		return nil, nil
	}
	snap, err := state.Clone()
	if err != nil {
		return nil, err
	}
	return []*State{snap}, nil
}

// Restore copies onto target every attribute present on a snapshot but
// absent on target. An attribute already defined on target always wins;
// last-writer-wins is never allowed. Missing attributes are skipped, never
// an error.
func Restore(target *State, snapshots []*State) {
	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		for name, v := range snap.attrs {
			if !target.Has(name) {
				target.Set(name, v)
			}
		}
	}
}
