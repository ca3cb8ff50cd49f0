package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/abhisek/tradequest/internal/achievements"
	"github.com/abhisek/tradequest/internal/config"
	"github.com/abhisek/tradequest/internal/curriculum"
	"github.com/abhisek/tradequest/internal/dashboard"
	"github.com/abhisek/tradequest/internal/leaderboard"
	"github.com/abhisek/tradequest/internal/logging"
	"github.com/abhisek/tradequest/internal/placement"
	"github.com/abhisek/tradequest/internal/progress"
	"github.com/abhisek/tradequest/internal/reconcile"
	"github.com/abhisek/tradequest/internal/remote"
	"github.com/abhisek/tradequest/internal/store"
	"github.com/abhisek/tradequest/internal/votes"
	"github.com/abhisek/tradequest/internal/xp"
)

// snapshotsKept is how many pre-sync ledger snapshots are retained.
const snapshotsKept = 5

// env is everything a command needs, built from config.
type env struct {
	cfg         config.Config
	logger      *slog.Logger
	store       *store.Store
	progress    *progress.Store
	remote      remote.Service
	reconciler  *reconcile.Reconciler
	leaderboard *leaderboard.Service
	placement   *placement.Service
	votes       *votes.Store
	dash        *dashboard.Service

	out    io.Writer
	width  int
	closer []func()
}

// openEnv loads config, opens the local store and wires the services. The
// caller must call close.
func openEnv(cmd *cobra.Command) (*env, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		cfg.Sync.Backend = config.SyncNone
		cfg.Sync.AutoSync = false
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cmd.ErrOrStderr(), level)

	e := &env{
		cfg:    cfg,
		logger: logger,
		out:    colorprofile.NewWriter(cmd.OutOrStdout(), os.Environ()),
		width:  terminalWidth(),
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	e.store, err = store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	e.closer = append(e.closer, func() { e.store.Close() })

	e.progress = progress.NewStore(e.store.RecordRepo(),
		progress.WithLogger(logger),
		progress.WithConflictResolver(reconcile.Merge))
	if err := e.progress.Load(ctx); err != nil {
		e.close()
		return nil, fmt.Errorf("load progress: %w", err)
	}

	e.placement = placement.NewService(e.progress, e.store.PlacementRepo(), nil, logger)
	e.votes = votes.NewStore(e.store.RecordRepo())

	deps := dashboard.Deps{
		Store:      e.progress,
		Curriculum: curriculum.Default(),
		Engine:     achievements.Default(),
		Placement:  e.placement,
		Logger:     logger,
	}
	if cfg.SyncEnabled() {
		if err := e.wireSync(ctx, &deps); err != nil {
			e.close()
			return nil, err
		}
	}

	var opts []dashboard.Option
	if cfg.Sync.AutoSync && deps.Reconciler != nil {
		opts = append(opts, dashboard.WithAutoSync(cfg.Sync.Timeout))
	}
	e.dash, err = dashboard.New(deps, opts...)
	if err != nil {
		e.close()
		return nil, err
	}
	e.closer = append(e.closer, e.dash.Close)
	return e, nil
}

// wireSync connects the configured backend, reconciler and leaderboard.
func (e *env) wireSync(ctx context.Context, deps *dashboard.Deps) error {
	cfg := e.cfg.Sync

	userID := cfg.UserID
	if userID == "" {
		sub, err := remote.SubjectFromToken(cfg.Token)
		if err != nil {
			return fmt.Errorf("derive user id from sync token: %w", err)
		}
		userID = sub
	}
	logger := logging.WithUser(e.logger, userID)

	switch cfg.Backend {
	case config.SyncHTTP:
		retry := remote.DefaultRetryConfig()
		retry.MaxAttempts = cfg.MaxAttempts
		c, err := remote.NewClient(cfg.URL,
			remote.WithRetry(retry),
			remote.WithToken(cfg.Token),
			remote.WithClientLogger(logger))
		if err != nil {
			return err
		}
		e.remote = c
	case config.SyncFirestore:
		fs, err := remote.DialFirestore(ctx, cfg.FirestoreProject)
		if err != nil {
			return err
		}
		e.closer = append(e.closer, func() { fs.Close() })
		e.remote = fs
	default:
		e.remote = remote.Disabled{}
	}

	e.reconciler = reconcile.New(e.progress, e.remote, userID,
		reconcile.WithLogger(logger),
		reconcile.WithDevices(reconcile.NewDevices(e.store.RecordRepo())),
		reconcile.WithSnapshots(e.store.SnapshotRepo(), snapshotsKept),
		reconcile.WithPushTimeout(cfg.Timeout))
	calc := xp.New(deps.Curriculum, deps.Engine.Catalog())
	e.leaderboard = leaderboard.New(e.remote, e.progress, calc, cfg.Token,
		leaderboard.WithUsername(e.cfg.Leaderboard.Username),
		leaderboard.WithLogger(logger))

	deps.Reconciler = e.reconciler
	deps.Leaderboard = e.leaderboard
	deps.Logger = logger
	return nil
}

// close waits for in-flight pushes and releases resources in reverse order.
func (e *env) close() {
	if e.dash != nil {
		e.dash.Wait()
	}
	for i := len(e.closer) - 1; i >= 0; i-- {
		e.closer[i]()
	}
}

func (e *env) println(s string) {
	fmt.Fprintln(e.out, s)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then config, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

func terminalWidth() int {
	w, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
