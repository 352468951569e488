package statestore

import (
	"context"
	"sort"
	"sync"

	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

// MemoryStore provides an in-memory implementation of the Store interface.
// It is thread-safe and suitable for development, testing, and single-instance deployments.
// For distributed systems, use RedisStore.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]*workflow.Snapshot
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snaps: make(map[string]*workflow.Snapshot),
	}
}

// Load retrieves a run snapshot. Returns a deep copy to prevent external mutations.
func (s *MemoryStore) Load(_ context.Context, runID string) (*workflow.Snapshot, error) {
	if runID == "" {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snaps[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return snap.Clone(), nil
}

// Save persists a deep copy of the snapshot.
func (s *MemoryStore) Save(_ context.Context, snap *workflow.Snapshot) error {
	c, err := prepare(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[c.RunID] = c
	return nil
}

// Delete removes a run.
func (s *MemoryStore) Delete(_ context.Context, runID string) error {
	if runID == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snaps[runID]; !ok {
		return ErrNotFound
	}
	delete(s.snaps, runID)
	return nil
}

// List returns run ids, most recently updated first.
func (s *MemoryStore) List(_ context.Context, opts ListOptions) ([]string, error) {
	s.mu.RLock()
	matched := make([]*workflow.Snapshot, 0, len(s.snaps))
	for _, snap := range s.snaps {
		if opts.Workflow == "" || snap.Workflow == opts.Workflow {
			matched = append(matched, snap)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].RunID < matched[j].RunID
	})

	ids := make([]string, len(matched))
	for i, snap := range matched {
		ids[i] = snap.RunID
	}
	return paginate(ids, opts.Offset, opts.Limit), nil
}

// Len returns the number of stored runs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snaps)
}

var _ Store = (*MemoryStore)(nil)
