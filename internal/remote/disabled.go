package remote

import (
	"context"

	"github.com/abhisek/tradequest/internal/progress"
)

// Disabled is the Service used when sync is not configured. Every call
// fails with ErrUnavailable so callers fall back to local state.
type Disabled struct{}

func (Disabled) FetchProgress(context.Context, string) (*progress.State, error) {
	return nil, &ErrUnavailable{}
}

func (Disabled) PushProgress(context.Context, string, progress.State) error {
	return &ErrUnavailable{}
}

func (Disabled) FetchLeaderboard(context.Context, string, int) (*Leaderboard, error) {
	return nil, &ErrUnavailable{}
}

func (Disabled) PushXPSnapshot(context.Context, string, XPSnapshot) error {
	return &ErrUnavailable{}
}
