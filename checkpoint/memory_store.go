package checkpoint

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps checkpoint records in process memory. Suited to tests
// and single-process experiments; everything is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	byRun   map[string][]string
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		byRun:   make(map[string][]string),
	}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; !exists {
		s.byRun[rec.RunID] = append(s.byRun[rec.RunID], rec.ID)
	}
	s.records[rec.ID] = rec
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// ListRun implements Store. Records come back in creation order.
func (s *MemoryStore) ListRun(ctx context.Context, runID string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byRun[runID]
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Delete implements Store. Deleting a missing record is not an error.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	delete(s.records, id)
	ids := s.byRun[rec.RunID]
	for i, rid := range ids {
		if rid == id {
			s.byRun[rec.RunID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
