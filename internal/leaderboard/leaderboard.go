// Package leaderboard publishes the locally derived XP total and reads the
// ranked board back from the sync service.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhisek/tradequest/internal/levels"
	"github.com/abhisek/tradequest/internal/progress"
	"github.com/abhisek/tradequest/internal/remote"
	"github.com/abhisek/tradequest/internal/xp"
)

// DefaultLimit is the page size used when callers pass zero.
const DefaultLimit = 10

// ErrRefresh is returned when the board cannot be fetched. It is always
// transient.
var ErrRefresh = errors.New("could not refresh leaderboard")

// ErrNoToken is returned when no leaderboard token is configured.
var ErrNoToken = errors.New("leaderboard token not configured")

// Remote is the part of the sync service the leaderboard needs.
type Remote interface {
	FetchLeaderboard(ctx context.Context, token string, limit int) (*remote.Leaderboard, error)
	PushXPSnapshot(ctx context.Context, token string, snap remote.XPSnapshot) error
}

// Option configures a Service.
type Option func(*Service)

// WithUsername sets the display name published with XP snapshots.
func WithUsername(name string) Option {
	return func(s *Service) { s.username = name }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service reads and publishes leaderboard data.
type Service struct {
	remote   Remote
	progress *progress.Store
	calc     *xp.Calculator
	token    string
	username string
	logger   *slog.Logger
}

// New creates a leaderboard Service.
func New(rm Remote, ps *progress.Store, calc *xp.Calculator, token string, opts ...Option) *Service {
	s := &Service{
		remote:   rm,
		progress: ps,
		calc:     calc,
		token:    token,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Refresh fetches the top limit entries and the caller's rank.
func (s *Service) Refresh(ctx context.Context, limit int) (*remote.Leaderboard, error) {
	if s.token == "" {
		return nil, fmt.Errorf("%w: %w", ErrRefresh, ErrNoToken)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	lb, err := s.remote.FetchLeaderboard(ctx, s.token, limit)
	if err != nil {
		s.logger.Warn("refresh leaderboard", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRefresh, err)
	}
	return lb, nil
}

// Snapshot derives the XP snapshot for the current ledger.
func (s *Service) Snapshot() remote.XPSnapshot {
	st := s.progress.State()
	total := s.calc.CalculateTotalXP(st)
	return remote.XPSnapshot{
		Username: s.username,
		TotalXP:  total,
		Level:    levels.GetLevelInfo(total).Level,
		Streak:   st.Streak.Current,
	}
}

// PublishXP pushes the locally recomputed XP total to the board.
func (s *Service) PublishXP(ctx context.Context) (remote.XPSnapshot, error) {
	snap := s.Snapshot()
	if s.token == "" {
		return snap, ErrNoToken
	}
	if err := s.remote.PushXPSnapshot(ctx, s.token, snap); err != nil {
		s.logger.Warn("publish xp", "total_xp", snap.TotalXP, "error", err)
		return snap, fmt.Errorf("publish xp: %w", err)
	}
	s.logger.Info("published xp", "total_xp", snap.TotalXP, "level", snap.Level)
	return snap, nil
}
