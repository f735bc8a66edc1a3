package flow

// validateFilter rejects a transition that declares both include and
// exclude. Called before any state is mutated.
func validateFilter(tr *Transition) error {
	if len(tr.Include) > 0 && len(tr.Exclude) > 0 {
		return ErrIncludeExclude
	}
	return nil
}

// filterState applies include/exclude semantics to state in place. Exclude
// detaches the named attributes; include keeps only the named attributes.
// Values are never altered, only key presence.
func filterState(state *State, include, exclude []string) {
	if len(exclude) > 0 {
		for _, name := range exclude {
			state.Delete(name)
		}
		return
	}
	if len(include) > 0 {
		keep := make(map[string]bool, len(include))
		for _, name := range include {
			keep[name] = true
		}
		for _, name := range state.Names() {
			if !keep[name] {
				state.Delete(name)
			}
		}
	}
}
