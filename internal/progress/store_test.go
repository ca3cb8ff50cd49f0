package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tradequest/internal/store"
)

// memRepo implements store.RecordRepo in memory.
type memRepo struct {
	mu      sync.Mutex
	records map[string]*store.Record
	puts    int
	failPut error
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]*store.Record)}
}

func (m *memRepo) Get(_ context.Context, key string) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memRepo) Put(_ context.Context, key string, data []byte, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut != nil {
		return 0, m.failPut
	}
	var current int64
	if rec, ok := m.records[key]; ok {
		current = rec.Version
	}
	if current != expected {
		return 0, store.ErrVersionConflict
	}
	m.puts++
	m.records[key] = &store.Record{Key: key, Data: append([]byte(nil), data...), Version: expected + 1}
	return expected + 1, nil
}

func (m *memRepo) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func loadedStore(t *testing.T, repo *memRepo, opts ...Option) *Store {
	t.Helper()
	s := NewStore(repo, opts...)
	require.NoError(t, s.Load(context.Background()))
	return s
}

var day1 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestLoad_MissingRecordStartsEmpty(t *testing.T) {
	s := loadedStore(t, newMemRepo())
	st := s.State()

	assert.Empty(t, st.CompletedLessons)
	assert.Empty(t, st.AchievementsEarned)
	assert.Equal(t, 0, st.Streak.Current)
	assert.NotNil(t, st.LessonScores)
}

func TestLoad_MalformedRecordRecovers(t *testing.T) {
	repo := newMemRepo()
	repo.records[store.KeyProgress] = &store.Record{Key: store.KeyProgress, Data: []byte(`{not json`), Version: 4}

	s := NewStore(repo)
	require.NoError(t, s.Load(context.Background()))
	assert.Empty(t, s.State().CompletedLessons)

	// The next write replaces the corrupt record rather than conflicting.
	_, err := s.CompleteLesson(context.Background(), "newcomer/wallet-setup", day1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), repo.records[store.KeyProgress].Version)
}

func TestMutationBeforeLoad(t *testing.T) {
	s := NewStore(newMemRepo())
	_, err := s.CompleteLesson(context.Background(), "newcomer/wallet-setup", day1)
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestCompleteLesson(t *testing.T) {
	repo := newMemRepo()
	s := loadedStore(t, repo)
	ctx := context.Background()

	added, err := s.CompleteLesson(ctx, "newcomer/wallet-setup", day1)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.CompleteLesson(ctx, "newcomer/wallet-setup", day1)
	require.NoError(t, err)
	assert.False(t, added, "second completion is not new")
	assert.Equal(t, 1, repo.puts, "unchanged state is not rewritten")

	_, err = s.CompleteLesson(ctx, "wallet-setup", day1)
	assert.Error(t, err)

	// Survives a reload.
	reloaded := loadedStore(t, repo)
	assert.True(t, reloaded.State().CompletedLessons.Has("newcomer/wallet-setup"))
}

func TestRecordQuiz(t *testing.T) {
	s := loadedStore(t, newMemRepo())
	ctx := context.Background()
	key := "trader/order-types"

	_, err := s.RecordQuiz(ctx, key, 0.8, day1)
	require.NoError(t, err)
	ls, err := s.RecordQuiz(ctx, key, 0.4, day1.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 0.8, ls.BestScore)
	assert.Equal(t, 0.4, ls.LastScore)
	assert.Equal(t, 2, ls.Attempts)
	assert.Equal(t, day1.Add(time.Hour), ls.UpdatedAt)

	ls, err = s.RecordQuiz(ctx, key, 1.7, day1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, ls.BestScore, "scores are clamped")
}

func TestApplyPlacementResult_Monotonic(t *testing.T) {
	s := loadedStore(t, newMemRepo())
	ctx := context.Background()

	first := map[Level]float64{LevelNewcomer: 0.9}
	require.NoError(t, s.ApplyPlacementResult(ctx, LevelApprentice, first, day1))

	second := map[Level]float64{LevelNewcomer: 0.3}
	require.NoError(t, s.ApplyPlacementResult(ctx, LevelNewcomer, second, day1.Add(time.Hour)))

	st := s.State()
	assert.Equal(t, 0.9, st.ModuleBestScores["newcomer"])
	assert.Equal(t, 0.3, st.ModuleLatestScores["newcomer"])
	assert.True(t, st.TestedOutModules.Has("newcomer"), "tested-out is never lost")
	assert.True(t, st.UnlockedForReview.Has("newcomer"), "weak retake flags review")
	assert.Equal(t, LevelNewcomer, st.PlacementLevel)
	assert.True(t, st.PlacementAt.Equal(day1.Add(time.Hour)))
}

func TestApplyPlacementResult_SingleNotification(t *testing.T) {
	s := loadedStore(t, newMemRepo())

	var changes []Change
	cancel := s.Subscribe(ObserverFunc(func(c Change) { changes = append(changes, c) }))
	defer cancel()

	scores := map[Level]float64{
		LevelNewcomer: 1, LevelApprentice: 0.6, LevelTrader: 0.2,
		LevelSpecialist: 0, LevelMaster: 0,
	}
	require.NoError(t, s.ApplyPlacementResult(context.Background(), LevelApprentice, scores, day1))

	require.Len(t, changes, 1)
	assert.Equal(t, ChangePlacement, changes[0].Kind)
	st := changes[0].State
	assert.Equal(t, []string{"newcomer"}, st.TestedOutModules.Sorted())
	assert.Equal(t, []string{"apprentice", "trader"}, st.UnlockedForReview.Sorted())
}

func TestApplyPlacementResult_UnknownLevel(t *testing.T) {
	s := loadedStore(t, newMemRepo())
	err := s.ApplyPlacementResult(context.Background(), Level("wizard"), nil, day1)
	assert.Error(t, err)
}

func TestRecordModuleScore_RetakeClearsReview(t *testing.T) {
	s := loadedStore(t, newMemRepo())
	ctx := context.Background()

	require.NoError(t, s.RecordModuleScore(ctx, "trader", 0.5, day1))
	assert.True(t, s.State().UnlockedForReview.Has("trader"))
	assert.False(t, s.State().TestedOutModules.Has("trader"))

	require.NoError(t, s.RecordModuleScore(ctx, "trader", 0.8, day1.Add(time.Hour)))
	st := s.State()
	assert.False(t, st.UnlockedForReview.Has("trader"))
	assert.True(t, st.TestedOutModules.Has("trader"))
}

func TestRecordActivity_Streak(t *testing.T) {
	s := loadedStore(t, newMemRepo())
	ctx := context.Background()

	days := []struct {
		at      time.Time
		current int
		longest int
	}{
		{day1, 1, 1},
		{day1.Add(2 * time.Hour), 1, 1},
		{day1.AddDate(0, 0, 1), 2, 2},
		{day1.AddDate(0, 0, 2), 3, 3},
		{day1.AddDate(0, 0, 5), 1, 3},
	}
	for _, d := range days {
		st, err := s.RecordActivity(ctx, d.at)
		require.NoError(t, err)
		assert.Equal(t, d.current, st.Current, "current on %s", d.at.Format(DateLayout))
		assert.Equal(t, d.longest, st.Longest, "longest on %s", d.at.Format(DateLayout))
	}
}

func TestAddAchievements(t *testing.T) {
	s := loadedStore(t, newMemRepo())
	ctx := context.Background()

	added, err := s.AddAchievements(ctx, []string{"first-steps", "on-fire"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first-steps", "on-fire"}, added)

	added, err = s.AddAchievements(ctx, []string{"first-steps", "quiz-whiz"})
	require.NoError(t, err)
	assert.Equal(t, []string{"quiz-whiz"}, added)
	assert.Len(t, s.State().AchievementsEarned, 3)
}

func TestStateIsCopied(t *testing.T) {
	s := loadedStore(t, newMemRepo())
	_, err := s.CompleteLesson(context.Background(), "newcomer/wallet-setup", day1)
	require.NoError(t, err)

	st := s.State()
	st.CompletedLessons["newcomer/hacked"] = true
	assert.False(t, s.State().CompletedLessons.Has("newcomer/hacked"))
}

func TestWriteConflict_ResolvedByResolver(t *testing.T) {
	repo := newMemRepo()
	union := func(local, stored State) State {
		out := local.Clone()
		out.CompletedLessons = Union(local.CompletedLessons, stored.CompletedLessons)
		return out
	}
	tabA := loadedStore(t, repo, WithConflictResolver(union))
	tabB := loadedStore(t, repo)
	ctx := context.Background()

	_, err := tabB.CompleteLesson(ctx, "newcomer/what-is-crypto", day1)
	require.NoError(t, err)

	// tabA still holds version 0 and must reconcile instead of clobbering.
	_, err = tabA.CompleteLesson(ctx, "newcomer/wallet-setup", day1)
	require.NoError(t, err)

	reloaded := loadedStore(t, repo)
	got := reloaded.State().CompletedLessons.Sorted()
	assert.Equal(t, []string{"newcomer/wallet-setup", "newcomer/what-is-crypto"}, got)
}

func TestWriteConflict_LastWriterWinsWithoutResolver(t *testing.T) {
	repo := newMemRepo()
	tabA := loadedStore(t, repo)
	tabB := loadedStore(t, repo)
	ctx := context.Background()

	_, err := tabB.CompleteLesson(ctx, "newcomer/what-is-crypto", day1)
	require.NoError(t, err)
	_, err = tabA.CompleteLesson(ctx, "newcomer/wallet-setup", day1)
	require.NoError(t, err)

	reloaded := loadedStore(t, repo)
	assert.Equal(t, []string{"newcomer/wallet-setup"}, reloaded.State().CompletedLessons.Sorted())
}

func TestPersistFailureKeepsLocalState(t *testing.T) {
	repo := newMemRepo()
	s := loadedStore(t, repo)
	repo.failPut = errors.New("disk full")

	_, err := s.CompleteLesson(context.Background(), "newcomer/wallet-setup", day1)
	assert.Error(t, err)
	assert.True(t, s.State().CompletedLessons.Has("newcomer/wallet-setup"))
}

func TestReset(t *testing.T) {
	repo := newMemRepo()
	s := loadedStore(t, repo)
	ctx := context.Background()

	_, err := s.CompleteLesson(ctx, "newcomer/wallet-setup", day1)
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx))

	assert.Empty(t, s.State().CompletedLessons)
	_, ok := repo.records[store.KeyProgress]
	assert.False(t, ok)

	_, err = s.CompleteLesson(ctx, "newcomer/wallet-setup", day1)
	require.NoError(t, err)
}

func TestSubscribe_Cancel(t *testing.T) {
	s := loadedStore(t, newMemRepo())
	calls := 0
	cancel := s.Subscribe(ObserverFunc(func(Change) { calls++ }))

	_, _ = s.CompleteLesson(context.Background(), "newcomer/a", day1)
	cancel()
	_, _ = s.CompleteLesson(context.Background(), "newcomer/b", day1)

	assert.Equal(t, 1, calls)
}

func TestMergeIn(t *testing.T) {
	repo := newMemRepo()
	s := loadedStore(t, repo)
	ctx := context.Background()
	_, err := s.CompleteLesson(ctx, "newcomer/a", day1)
	require.NoError(t, err)

	union := func(local, other State) State {
		out := local.Clone()
		out.CompletedLessons = Union(local.CompletedLessons, other.CompletedLessons)
		return out
	}

	var kinds []ChangeKind
	s.Subscribe(ObserverFunc(func(c Change) { kinds = append(kinds, c.Kind) }))

	other := NewState()
	other.CompletedLessons["trader/b"] = true
	st, changed, err := s.MergeIn(ctx, other, union)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"newcomer/a", "trader/b"}, st.CompletedLessons.Sorted())
	assert.Equal(t, []ChangeKind{ChangeMerged}, kinds)

	puts := repo.puts
	_, changed, err = s.MergeIn(ctx, other, union)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, puts, repo.puts, "unchanged merges are not written")
	assert.Len(t, kinds, 1)
}
