package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/epochlik/pkg/domain"
)

// Store implements ports.CheckpointStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Checkpoint
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Checkpoint),
	}
}

// Save keeps a deep copy of the checkpoint.
func (s *Store) Save(ctx context.Context, cp *domain.Checkpoint) error {
	copied := clone(cp)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[cp.ID] = copied
	return nil
}

// Load returns a copy so the caller cannot mutate the stored checkpoint.
func (s *Store) Load(ctx context.Context, id string) (*domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.data[id]
	if !ok {
		return nil, domain.ErrCheckpointNotFound
	}
	return clone(cp), nil
}

// Delete removes the checkpoint.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored checkpoint IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func clone(cp *domain.Checkpoint) *domain.Checkpoint {
	c := *cp
	c.Boundaries = slices.Clone(cp.Boundaries)
	c.Partials = slices.Clone(cp.Partials)
	c.Matrices = slices.Clone(cp.Matrices)
	c.Eigen = slices.Clone(cp.Eigen)
	c.Scales = slices.Clone(cp.Scales)
	c.Branches = slices.Clone(cp.Branches)
	return &c
}
