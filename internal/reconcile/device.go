package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/tradequest/internal/store"
)

// DeviceStats is the per-device sync bookkeeping record.
type DeviceStats struct {
	DeviceID    string    `json:"deviceId"`
	CreatedAt   time.Time `json:"createdAt"`
	LastSyncAt  time.Time `json:"lastSyncAt,omitzero"`
	LastPushAt  time.Time `json:"lastPushAt,omitzero"`
	LastError   string    `json:"lastError,omitempty"`
	SyncCount   int       `json:"syncCount"`
	PendingPush bool      `json:"pendingPush"`
}

// Devices persists DeviceStats under its own record key.
type Devices struct {
	repo store.RecordRepo
	now  func() time.Time
	mu   sync.Mutex
}

// NewDevices creates a device stats store on repo.
func NewDevices(repo store.RecordRepo) *Devices {
	return &Devices{repo: repo, now: time.Now}
}

// Get returns the device record, creating and persisting one with a fresh
// device id on first use. A malformed record is replaced.
func (d *Devices) Get(ctx context.Context) (DeviceStats, error) {
	return d.Update(ctx, func(*DeviceStats) {})
}

// Update applies fn to the stored record and writes it back.
func (d *Devices) Update(ctx context.Context, fn func(*DeviceStats)) (DeviceStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for range 3 {
		rec, err := d.repo.Get(ctx, store.KeyDevice)
		if err != nil {
			return DeviceStats{}, fmt.Errorf("load device stats: %w", err)
		}
		var (
			ds      DeviceStats
			version int64
		)
		if rec != nil {
			version = rec.Version
			if err := json.Unmarshal(rec.Data, &ds); err != nil {
				ds = DeviceStats{}
			}
		}
		before, _ := json.Marshal(ds)
		if ds.DeviceID == "" {
			ds.DeviceID = uuid.NewString()
			ds.CreatedAt = d.now()
		}
		fn(&ds)

		data, err := json.Marshal(ds)
		if err != nil {
			return DeviceStats{}, fmt.Errorf("marshal device stats: %w", err)
		}
		if rec != nil && string(before) == string(data) {
			return ds, nil
		}
		if _, err := d.repo.Put(ctx, store.KeyDevice, data, version); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				continue
			}
			return DeviceStats{}, fmt.Errorf("save device stats: %w", err)
		}
		return ds, nil
	}
	return DeviceStats{}, fmt.Errorf("save device stats: %w", store.ErrVersionConflict)
}
