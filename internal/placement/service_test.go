package placement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tradequest/internal/progress"
	"github.com/abhisek/tradequest/internal/store"
)

func newTestService(t *testing.T) (*Service, *progress.Store) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ps := progress.NewStore(db.RecordRepo())
	require.NoError(t, ps.Load(context.Background()))
	return NewService(ps, db.PlacementRepo(), nil, nil), ps
}

func TestSubmit_AppliesAndRecords(t *testing.T) {
	svc, ps := newTestService(t)
	svc.now = func() time.Time { return time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC) }
	b := svc.Bank()

	answers := answersFor(b, map[progress.Level]int{
		progress.LevelNewcomer:   5,
		progress.LevelApprentice: 0,
		progress.LevelTrader:     5,
		progress.LevelSpecialist: 2,
		progress.LevelMaster:     0,
	})
	res, err := svc.Submit(context.Background(), answers)
	require.NoError(t, err)

	assert.Equal(t, progress.LevelSpecialist, res.Level)
	assert.Equal(t, progress.LevelTrader, res.Passed)
	assert.Equal(t, []progress.Level{progress.LevelNewcomer, progress.LevelTrader}, res.TestedOut)
	assert.Equal(t, []progress.Level{progress.LevelSpecialist}, res.Review,
		"zero scores are not attempted gaps")
	assert.NotEmpty(t, res.ID)
	assert.Positive(t, res.Sequence)

	st := ps.State()
	assert.Equal(t, progress.LevelSpecialist, st.PlacementLevel)
	assert.Equal(t, 0.4, st.ModuleLatestScores["specialist"])

	hist, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, res.ID, hist[0].ID)
	assert.Equal(t, res.Level, hist[0].Level)
	assert.Equal(t, 1.0, hist[0].Scores[progress.LevelTrader])
	assert.True(t, hist[0].Timestamp.Equal(res.Timestamp))
}

func TestSubmit_RetakeKeepsTestedOut(t *testing.T) {
	svc, ps := newTestService(t)
	ctx := context.Background()
	b := svc.Bank()

	_, err := svc.Submit(ctx, answersFor(b, map[progress.Level]int{progress.LevelNewcomer: 5}))
	require.NoError(t, err)
	second, err := svc.Submit(ctx, answersFor(b, map[progress.Level]int{progress.LevelNewcomer: 1}))
	require.NoError(t, err)

	assert.Equal(t, progress.LevelNewcomer, second.Level)
	st := ps.State()
	assert.Equal(t, 1.0, st.ModuleBestScores["newcomer"])
	assert.InDelta(t, 0.2, st.ModuleLatestScores["newcomer"], 1e-9)
	assert.True(t, st.TestedOutModules.Has("newcomer"))
	assert.True(t, st.UnlockedForReview.Has("newcomer"))

	hist, err := svc.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, second.ID, hist[0].ID, "newest first")
}

func TestSubmit_EmptyAnswers(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.Submit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, progress.LevelNewcomer, res.Level)
	for _, s := range progress.Sections() {
		assert.Zero(t, res.Scores[s])
	}
}

type failingEvents struct{}

func (failingEvents) AppendPlacement(context.Context, store.PlacementEventData) (int64, error) {
	return 0, errors.New("disk full")
}

func (failingEvents) QueryPlacements(context.Context, store.QueryOpts) ([]store.PlacementEventRecord, error) {
	return nil, errors.New("disk full")
}

func TestSubmit_HistoryFailureIsNotFatal(t *testing.T) {
	_, ps := newTestService(t)
	svc := NewService(ps, failingEvents{}, nil, nil)

	res, err := svc.Submit(context.Background(), answersFor(svc.Bank(), map[progress.Level]int{progress.LevelMaster: 5}))
	require.NoError(t, err)
	assert.Equal(t, progress.LevelCompleted, res.Level)
	assert.Zero(t, res.Sequence)
	assert.Equal(t, progress.LevelCompleted, ps.State().PlacementLevel)

	_, err = svc.History(context.Background(), 5)
	assert.Error(t, err)
}
