package validators

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync"
)

// DataStore holds the values a presentation layer collected for each step.
// Values are normalized to their JSON shape so rules see the same types
// whether data came from Go code, YAML or a WebSocket frame.
type DataStore struct {
	mu   sync.RWMutex
	data map[string]map[string]any
}

// NewDataStore creates an empty store.
func NewDataStore() *DataStore {
	return &DataStore{data: make(map[string]map[string]any)}
}

// Set stores a single value for a step.
func (s *DataStore) Set(stepID, key string, value any) error {
	return s.Merge(stepID, map[string]any{key: value})
}

// Merge stores values for a step, overwriting existing keys.
func (s *DataStore) Merge(stepID string, values map[string]any) error {
	normalized, err := normalize(values)
	if err != nil {
		return fmt.Errorf("step %q: %w", stepID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.data[stepID]
	if !ok {
		current = make(map[string]any, len(normalized))
		s.data[stepID] = current
	}
	maps.Copy(current, normalized)
	return nil
}

// Get returns a copy of a step's values. Missing steps yield an empty map.
func (s *DataStore) Get(stepID string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.data[stepID]))
	maps.Copy(out, s.data[stepID])
	return out
}

// Clear removes a step's values.
func (s *DataStore) Clear(stepID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, stepID)
}

// All returns a copy of every step's values.
func (s *DataStore) All() map[string]map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]any, len(s.data))
	for id, values := range s.data {
		c := make(map[string]any, len(values))
		maps.Copy(c, values)
		out[id] = c
	}
	return out
}

func normalize(values map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode step data: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode step data: %w", err)
	}
	return out, nil
}
