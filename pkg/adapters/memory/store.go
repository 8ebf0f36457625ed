package memory

import (
	"context"
	"sync"

	"github.com/openlh/aliquot/pkg/domain"
)

// Store implements ports.RunStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.RunRecord
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.RunRecord),
	}
}

// Save persists the record in memory. The stored copy is detached from the
// caller's, as a serializing store would detach it.
func (s *Store) Save(ctx context.Context, rec *domain.RunRecord) error {
	cp := rec.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[cp.ID] = cp
	return nil
}

// Load retrieves the record from memory. The caller gets a copy and cannot
// mutate store state through it.
func (s *Store) Load(ctx context.Context, runID string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return rec.Clone(), nil
}

// Delete removes the record. Deleting a missing run is not an error.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns the stored run IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
