// Package statestore persists workflow run snapshots.
package statestore

import (
	"context"
	"errors"

	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

// Store defines the interface for persistent run storage.
type Store interface {
	// Load retrieves a run snapshot by run id.
	Load(ctx context.Context, runID string) (*workflow.Snapshot, error)

	// Save persists a run snapshot, replacing any previous one for the run.
	Save(ctx context.Context, snap *workflow.Snapshot) error

	// Delete removes a run. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, runID string) error

	// List returns run ids, most recently updated first.
	List(ctx context.Context, opts ListOptions) ([]string, error)
}

// ListOptions provides filtering and pagination options for listing runs.
type ListOptions struct {
	// Workflow filters runs by workflow name. Empty means all runs.
	Workflow string

	// Limit is the maximum number of run ids to return. 0 applies DefaultListLimit.
	Limit int

	// Offset is the number of runs to skip.
	Offset int
}

// ErrNotFound is returned when a run doesn't exist in the store.
var ErrNotFound = errors.New("run not found")

// ErrInvalidID is returned when an empty run id is provided.
var ErrInvalidID = errors.New("invalid run ID")

// ErrInvalidSnapshot is returned when a nil snapshot is saved.
var ErrInvalidSnapshot = errors.New("invalid run snapshot")
