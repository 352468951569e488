package events

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/AltairaLabs/stepflow/runtime/logger"
)

// File system constants.
const (
	dirPermissions  = 0750
	filePermissions = 0600
	scannerBufSize  = 1024 * 1024
)

// ErrMissingRunID is returned when an event without a run id is appended.
var ErrMissingRunID = errors.New("event has no run ID")

// EventStore persists events for later inspection.
type EventStore interface {
	// Append adds an event to the store.
	Append(ctx context.Context, event *Event) error

	// Query returns events matching the filter.
	Query(ctx context.Context, filter *EventFilter) ([]*StoredEvent, error)

	// Close releases any resources held by the store.
	Close() error
}

// EventFilter specifies criteria for querying events.
type EventFilter struct {
	RunID string
	Types []EventType
	Since time.Time
	Until time.Time
	Limit int
}

// StoredEvent is the JSON form of an Event as written to the journal.
// Data keeps the payload as raw JSON since the concrete type is not recoverable.
// Sequence increases by one per event within a run's journal, across restarts.
type StoredEvent struct {
	Sequence  int64           `json:"seq"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	RunID     string          `json:"run_id"`
	Workflow  string          `json:"workflow,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// FileEventStore implements EventStore using one JSON Lines file per run.
type FileEventStore struct {
	dir      string
	mu       sync.Mutex
	journals map[string]*journal
}

// journal is an open run file and the last sequence written to it.
type journal struct {
	f   *os.File
	seq int64
}

// NewFileEventStore creates a file-based event store rooted at dir.
func NewFileEventStore(dir string) (*FileEventStore, error) {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("create event store directory: %w", err)
	}
	return &FileEventStore{
		dir:      dir,
		journals: make(map[string]*journal),
	}, nil
}

// Listener returns a bus listener that journals every event it receives.
// Append failures are logged and do not reach the publisher.
func (s *FileEventStore) Listener() Listener {
	return func(event *Event) {
		if err := s.Append(context.Background(), event); err != nil {
			logger.Warn("event journal append failed",
				"run_id", event.RunID,
				"workflow", event.Workflow,
				"event", event.Type,
				"error", err,
			)
		}
	}
}

// Append adds an event to the store.
func (s *FileEventStore) Append(_ context.Context, event *Event) error {
	if event.RunID == "" {
		return ErrMissingRunID
	}

	stored := StoredEvent{
		Type:      event.Type,
		Timestamp: event.Timestamp,
		RunID:     event.RunID,
		Workflow:  event.Workflow,
	}
	if event.Data != nil {
		data, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("serialize event: %w", err)
		}
		stored.Data = data
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.getOrOpenJournal(event.RunID)
	if err != nil {
		return err
	}
	stored.Sequence = j.seq + 1

	line, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := j.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	j.seq = stored.Sequence
	return nil
}

// Query returns events matching the filter. RunID is required.
func (s *FileEventStore) Query(ctx context.Context, filter *EventFilter) ([]*StoredEvent, error) {
	if filter == nil || filter.RunID == "" {
		return nil, ErrMissingRunID
	}

	f, err := os.Open(s.runPath(filter.RunID)) //nolint:gosec // path is built from the run id
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open run journal: %w", err)
	}
	defer f.Close()

	var out []*StoredEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, scannerBufSize), scannerBufSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		var stored StoredEvent
		if err := json.Unmarshal(scanner.Bytes(), &stored); err != nil {
			continue // skip malformed lines
		}
		if !matchesFilter(&stored, filter) {
			continue
		}
		out = append(out, &stored)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}

	return out, scanner.Err()
}

// Close syncs and releases all open journal files.
func (s *FileEventStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, j := range s.journals {
		if err := j.f.Sync(); err != nil {
			errs = append(errs, err)
		}
		if err := j.f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.journals = make(map[string]*journal)
	return errors.Join(errs...)
}

func (s *FileEventStore) runPath(runID string) string {
	return filepath.Join(s.dir, filepath.Base(runID)+".jsonl")
}

// getOrOpenJournal returns the journal for a run, picking up the sequence
// where an existing file left off. Caller must hold s.mu.
func (s *FileEventStore) getOrOpenJournal(runID string) (*journal, error) {
	if j, ok := s.journals[runID]; ok {
		return j, nil
	}

	path := s.runPath(runID)
	seq, err := lastSequence(path)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // path is built from the run id
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("create run journal: %w", err)
	}
	j := &journal{f: f, seq: seq}
	s.journals[runID] = j
	return j, nil
}

// lastSequence returns the highest sequence in an existing journal, 0 when
// the file does not exist yet.
func lastSequence(path string) (int64, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the run id
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open run journal: %w", err)
	}
	defer f.Close()

	var last int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, scannerBufSize), scannerBufSize)
	for scanner.Scan() {
		var stored StoredEvent
		if err := json.Unmarshal(scanner.Bytes(), &stored); err != nil {
			continue
		}
		last = max(last, stored.Sequence)
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read run journal: %w", err)
	}
	return last, nil
}

func matchesFilter(event *StoredEvent, filter *EventFilter) bool {
	if !filter.Since.IsZero() && event.Timestamp.Before(filter.Since) {
		return false
	}
	if !filter.Until.IsZero() && event.Timestamp.After(filter.Until) {
		return false
	}
	return len(filter.Types) == 0 || slices.Contains(filter.Types, event.Type)
}

var _ EventStore = (*FileEventStore)(nil)
