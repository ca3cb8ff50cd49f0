package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsRepeatedly(t *testing.T) {
	var calls atomic.Int32
	s := New(20*time.Millisecond, time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	runs, err := s.Runs()
	assert.GreaterOrEqual(t, runs, 2)
	assert.NoError(t, err)
}

func TestScheduler_FailuresKeepSchedule(t *testing.T) {
	boom := errors.New("remote down")
	var calls atomic.Int32
	s := New(20*time.Millisecond, 0, func(context.Context) error {
		calls.Add(1)
		return boom
	}, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := s.Runs()
		return errors.Is(err, boom)
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_StopCancelsRun(t *testing.T) {
	started := make(chan struct{})
	done := make(chan error, 1)
	s := New(time.Hour, 0, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	}, nil)
	require.NoError(t, s.Start(context.Background()))

	<-started
	s.Stop()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run was not cancelled")
	}
}

func TestScheduler_RejectsZeroInterval(t *testing.T) {
	s := New(0, 0, func(context.Context) error { return nil }, nil)
	assert.Error(t, s.Start(context.Background()))
}
