package flow

// CloneRegistry maps collaborator identity to that collaborator's private
// execution context. Each Flow owns one registry; entries exist only between
// a fan-out transition and its corresponding fan-in. The registry is reset
// at the start of every fan-out and cleared again at the merge.
//
// Sharing one registry between concurrent flow runs is unsafe; run
// concurrent flows on separate Flow instances.
type CloneRegistry struct {
	clones map[string]*Context
	ids    []string
}

// NewCloneRegistry returns an empty registry.
func NewCloneRegistry() *CloneRegistry {
	return &CloneRegistry{clones: make(map[string]*Context)}
}

// Reset empties the registry.
func (r *CloneRegistry) Reset() {
	r.clones = make(map[string]*Context)
	r.ids = nil
}

// Len returns the number of registered clones.
func (r *CloneRegistry) Len() int {
	return len(r.clones)
}

// Get returns the clone for the given collaborator identity.
func (r *CloneRegistry) Get(id string) (*Context, bool) {
	c, ok := r.clones[id]
	return c, ok
}

// IDs returns the collaborator identities in creation order.
func (r *CloneRegistry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// CreateClones deep-copies the primary context's state once per collaborator
// identity and replaces the registry contents. The swap is atomic from the
// caller's point of view: on any copy failure the previous contents remain.
// Clones inherit the primary's foreach method set and run identifier at
// creation time, then evolve independently until merge.
func (r *CloneRegistry) CreateClones(primary *Context, ids []string) error {
	next := make(map[string]*Context, len(ids))
	order := make([]string, 0, len(ids))
	for _, id := range ids {
		clone, err := primary.clone(id)
		if err != nil {
			return err
		}
		next[id] = clone
		order = append(order, id)
	}
	r.clones = next
	r.ids = order
	return nil
}
