package statestore

import (
	"time"

	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

// DefaultListLimit is applied when ListOptions.Limit is 0.
const DefaultListLimit = 100

// defaultTTLHours is the default TTL for run snapshots (24 hours).
const defaultTTLHours = 24

// prepare returns the copy of snap to persist, stamping UpdatedAt when unset.
func prepare(snap *workflow.Snapshot) (*workflow.Snapshot, error) {
	if snap == nil {
		return nil, ErrInvalidSnapshot
	}
	if snap.RunID == "" {
		return nil, ErrInvalidID
	}
	c := snap.Clone()
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	return c, nil
}

func paginate(ids []string, offset, limit int) []string {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return []string{}
	}
	return ids[offset:min(offset+limit, len(ids))]
}
