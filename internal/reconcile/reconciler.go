package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abhisek/tradequest/internal/progress"
	"github.com/abhisek/tradequest/internal/remote"
	"github.com/abhisek/tradequest/internal/store"
)

// DefaultSnapshotKeep is how many sync snapshots are retained.
const DefaultSnapshotKeep = 5

// Remote is the part of the sync service the reconciler needs.
type Remote interface {
	// FetchProgress returns remote.ErrNotFound when nothing is stored.
	FetchProgress(ctx context.Context, userID string) (*progress.State, error)
	PushProgress(ctx context.Context, userID string, st progress.State) error
}

// Report describes one Sync call.
type Report struct {
	RemoteFound bool
	Changed     bool  // the remote snapshot changed the local ledger
	PushQueued  bool  // a push was started in the background
	FetchErr    error // non-fatal; the next sync retries
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// WithDevices records sync bookkeeping in d.
func WithDevices(d *Devices) Option {
	return func(r *Reconciler) { r.devices = d }
}

// WithSnapshots keeps a copy of each successfully pushed ledger.
func WithSnapshots(repo store.SnapshotRepo, keep int) Option {
	return func(r *Reconciler) {
		r.snapshots = repo
		r.snapshotKeep = keep
	}
}

// WithPushTimeout bounds each background push.
func WithPushTimeout(d time.Duration) Option {
	return func(r *Reconciler) { r.pushTimeout = d }
}

// Reconciler syncs the local ledger with the remote service.
type Reconciler struct {
	store        *progress.Store
	remote       Remote
	userID       string
	logger       *slog.Logger
	devices      *Devices
	snapshots    store.SnapshotRepo
	snapshotKeep int
	pushTimeout  time.Duration

	wg sync.WaitGroup
}

// New creates a Reconciler for userID.
func New(ps *progress.Store, rm Remote, userID string, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:        ps,
		remote:       rm,
		userID:       userID,
		snapshotKeep: DefaultSnapshotKeep,
		pushTimeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Sync fetches the remote ledger, merges it into the local store and
// starts a background push of the result. Remote failures are logged and
// reported in Report.FetchErr, never returned; only local failures are.
// Nothing is pushed unless the remote ledger was read or is absent.
func (r *Reconciler) Sync(ctx context.Context) (Report, error) {
	var rep Report

	snap, err := r.remote.FetchProgress(ctx, r.userID)
	var invalid *remote.ErrInvalidPayload
	switch {
	case err == nil:
		rep.RemoteFound = true
		_, changed, merr := r.store.MergeIn(ctx, *snap, Merge)
		if merr != nil {
			return rep, fmt.Errorf("merge remote progress: %w", merr)
		}
		rep.Changed = changed
	case errors.Is(err, remote.ErrNotFound):
		r.logger.Info("no remote progress yet", "user", r.userID)
	default:
		rep.FetchErr = err
		if errors.As(err, &invalid) {
			// The remote copy may hold progress we cannot read; never
			// overwrite it.
			r.logger.Warn("remote progress unreadable, not pushing", "user", r.userID, "error", err)
		} else {
			r.logger.Warn("fetch remote progress", "user", r.userID, "error", err)
		}
		r.recordDevice(ctx, func(ds *DeviceStats) {
			ds.LastError = err.Error()
			ds.PendingPush = true
		})
		return rep, nil
	}

	r.recordDevice(ctx, func(ds *DeviceStats) {
		ds.LastSyncAt = time.Now()
		ds.SyncCount++
		ds.LastError = ""
		ds.PendingPush = true
	})
	r.push(ctx, r.store.State())
	rep.PushQueued = true
	return rep, nil
}

// Wait blocks until background pushes finish.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// Status returns the device bookkeeping record.
func (r *Reconciler) Status(ctx context.Context) (DeviceStats, error) {
	if r.devices == nil {
		return DeviceStats{}, nil
	}
	return r.devices.Get(ctx)
}

func (r *Reconciler) push(ctx context.Context, st progress.State) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.pushTimeout)
		defer cancel()

		if err := r.remote.PushProgress(pctx, r.userID, st); err != nil {
			r.logger.Warn("push progress", "user", r.userID, "error", err)
			r.recordDevice(pctx, func(ds *DeviceStats) {
				ds.LastError = err.Error()
				ds.PendingPush = true
			})
			return
		}
		r.recordDevice(pctx, func(ds *DeviceStats) {
			ds.LastPushAt = time.Now()
			ds.PendingPush = false
		})
		r.saveSnapshot(pctx, st)
	}()
}

func (r *Reconciler) saveSnapshot(ctx context.Context, st progress.State) {
	if r.snapshots == nil {
		return
	}
	data, err := progress.Encode(st)
	if err != nil {
		r.logger.Warn("encode sync snapshot", "error", err)
		return
	}
	if err := r.snapshots.Save(ctx, &store.Snapshot{Data: data}); err != nil {
		r.logger.Warn("save sync snapshot", "error", err)
		return
	}
	if err := r.snapshots.Prune(ctx, r.snapshotKeep); err != nil {
		r.logger.Warn("prune sync snapshots", "error", err)
	}
}

func (r *Reconciler) recordDevice(ctx context.Context, fn func(*DeviceStats)) {
	if r.devices == nil {
		return
	}
	if _, err := r.devices.Update(ctx, fn); err != nil {
		r.logger.Warn("update device stats", "error", err)
	}
}
