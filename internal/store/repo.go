package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Keys of the independently stored records. Each concern owns one record.
const (
	KeyProgress = "progress"
	KeyDevice   = "device"
	KeyVotes    = "course_votes"
)

// ErrVersionConflict is returned by RecordRepo.Put when the stored version
// no longer matches the version the caller read.
var ErrVersionConflict = errors.New("record version conflict")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// Record is a single keyed JSON document.
type Record struct {
	Key       string
	Data      json.RawMessage
	Version   int64
	UpdatedAt time.Time
}

// RecordRepo stores one JSON document per key with optimistic versioning.
type RecordRepo interface {
	// Get returns the record for key, or nil if none exists.
	Get(ctx context.Context, key string) (*Record, error)

	// Put writes data if the stored version equals expected (0 = absent)
	// and returns the new version. A mismatch yields ErrVersionConflict.
	Put(ctx context.Context, key string, data []byte, expected int64) (int64, error)

	// Delete removes the record. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// PlacementEventData captures one scored placement attempt.
type PlacementEventData struct {
	RecordID  string
	Level     string
	Scores    map[string]float64
	Timestamp time.Time
}

// PlacementEventRecord is a persisted placement event.
type PlacementEventRecord struct {
	PlacementEventData
	Sequence int64
}

// PlacementRepo provides append and query access to placement events.
type PlacementRepo interface {
	// AppendPlacement records a placement event and returns its sequence.
	AppendPlacement(ctx context.Context, data PlacementEventData) (int64, error)

	// QueryPlacements returns placement events, newest first.
	QueryPlacements(ctx context.Context, opts QueryOpts) ([]PlacementEventRecord, error)
}

// Snapshot represents a point-in-time capture of synced learner state.
type Snapshot struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	Data      json.RawMessage
}

// SnapshotRepo manages sync snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot. A zero Sequence is assigned from the
	// global counter.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot, or nil if none exist.
	Latest(ctx context.Context) (*Snapshot, error)

	// Prune deletes all but the N most recent snapshots.
	Prune(ctx context.Context, keep int) error
}
