package flow

import (
	"sort"

	"github.com/barkimedes/go-deepcopy"
)

// Attribute is a single named state value. Runtimes return the final flow
// state as a sequence of attributes which Run applies back onto the primary
// state.
type Attribute struct {
	Name  string
	Value any
}

// Cloner lets an attribute value provide its own deep-copy implementation.
// Values that do not implement Cloner are copied reflectively.
type Cloner interface {
	CloneValue() any
}

// State is the mutable workflow-level data of one party: a sparse record of
// named attributes. Attribute filtering is a presence operation on keys,
// never on values, so State exposes explicit key-set operations instead of
// struct fields.
//
// State is not safe for concurrent use. The engine never shares a State
// between goroutines: every clone handed to a runtime is an independent deep
// copy.
type State struct {
	attrs map[string]any
}

// NewState returns an empty state.
func NewState() *State {
	return &State{attrs: make(map[string]any)}
}

// StateOf returns a state seeded with the given attributes. The map is
// copied; the values are not.
func StateOf(attrs map[string]any) *State {
	s := NewState()
	for name, v := range attrs {
		s.attrs[name] = v
	}
	return s
}

// Set stores an attribute, replacing any previous value.
func (s *State) Set(name string, value any) {
	s.attrs[name] = value
}

// Get returns the named attribute and whether it is present.
func (s *State) Get(name string) (any, bool) {
	v, ok := s.attrs[name]
	return v, ok
}

// Has reports whether the named attribute is present.
func (s *State) Has(name string) bool {
	_, ok := s.attrs[name]
	return ok
}

// Delete detaches the named attribute. Deleting an absent attribute is a
// no-op.
func (s *State) Delete(name string) {
	delete(s.attrs, name)
}

// Len returns the number of attributes present.
func (s *State) Len() int {
	return len(s.attrs)
}

// Names returns the attribute names in sorted order.
func (s *State) Names() []string {
	names := make([]string, 0, len(s.attrs))
	for name := range s.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attributes returns the state as a sorted attribute sequence.
func (s *State) Attributes() []Attribute {
	attrs := make([]Attribute, 0, len(s.attrs))
	for _, name := range s.Names() {
		attrs = append(attrs, Attribute{Name: name, Value: s.attrs[name]})
	}
	return attrs
}

// Map returns a shallow copy of the underlying attribute map.
func (s *State) Map() map[string]any {
	m := make(map[string]any, len(s.attrs))
	for name, v := range s.attrs {
		m[name] = v
	}
	return m
}

// Strings resolves the named attribute as a collection of strings. Both
// []string and []any holding strings are accepted; foreach collections
// commonly arrive as either after config or checkpoint round trips.
func (s *State) Strings(name string) ([]string, bool) {
	v, ok := s.attrs[name]
	if !ok {
		return nil, false
	}
	switch vv := v.(type) {
	case []string:
		out := make([]string, len(vv))
		copy(out, vv)
		return out, true
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}

// Clone returns a deep copy of the state. No mutable object identity is
// shared between the clone and the original; this is the engine's sole
// concurrency-safety mechanism. Values that cannot be copied (functions,
// channels) surface as a *SerializationError.
func (s *State) Clone() (*State, error) {
	out := NewState()
	for name, v := range s.attrs {
		cv, err := cloneValue(v)
		if err != nil {
			return nil, NewSerializationError("clone attribute "+name, err)
		}
		out.attrs[name] = cv
	}
	return out, nil
}

func cloneValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if c, ok := v.(Cloner); ok {
		return c.CloneValue(), nil
	}
	return deepcopy.Anything(v)
}
