// Package remote talks to the progress sync and leaderboard service.
package remote

import (
	"context"
	"time"

	"github.com/abhisek/tradequest/internal/progress"
)

// Entry is one leaderboard row.
type Entry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	TotalXP  int    `json:"totalXp"`
	Level    int    `json:"level"`
	Streak   int    `json:"streak"`
}

// Rank is the requesting user's position on the board.
type Rank struct {
	Rank       int     `json:"rank"`
	Percentile float64 `json:"percentile"`
	TotalXP    int     `json:"totalXp"`
}

// Leaderboard is a page of the board plus the caller's rank, if ranked.
type Leaderboard struct {
	Entries  []Entry `json:"entries"`
	UserRank *Rank   `json:"userRank"`
}

// XPSnapshot is the locally derived total published for ranking. The
// service never becomes the source of truth for XP.
type XPSnapshot struct {
	Username string `json:"username,omitempty"`
	TotalXP  int    `json:"totalXp"`
	Level    int    `json:"level"`
	Streak   int    `json:"streak"`
}

// Service is the full remote contract.
type Service interface {
	// FetchProgress returns ErrNotFound when the user has no remote record.
	FetchProgress(ctx context.Context, userID string) (*progress.State, error)
	// PushProgress is idempotent.
	PushProgress(ctx context.Context, userID string, st progress.State) error
	FetchLeaderboard(ctx context.Context, token string, limit int) (*Leaderboard, error)
	PushXPSnapshot(ctx context.Context, token string, snap XPSnapshot) error
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns the retry policy used when none is given.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 250 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Multiplier:  2.0,
	}
}

var (
	_ Service = (*Client)(nil)
	_ Service = (*FirestoreRemote)(nil)
	_ Service = Disabled{}
)
