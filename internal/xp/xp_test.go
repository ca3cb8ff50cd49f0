package xp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tradequest/internal/achievements"
	"github.com/abhisek/tradequest/internal/curriculum"
	"github.com/abhisek/tradequest/internal/progress"
)

func testCalculator(t *testing.T) *Calculator {
	t.Helper()
	cur, err := curriculum.New([]curriculum.Module{
		{ID: "newcomer", Tier: progress.LevelNewcomer, Lessons: []string{"what-is-crypto", "wallet-setup"}},
		{ID: "trader", Tier: progress.LevelTrader, Lessons: []string{"order-types"}},
	})
	require.NoError(t, err)
	return New(cur, achievements.Catalog())
}

func TestCalculateTotalXP_Empty(t *testing.T) {
	c := testCalculator(t)
	assert.Equal(t, 0, c.CalculateTotalXP(progress.NewState()))
}

func TestBreakdown(t *testing.T) {
	c := testCalculator(t)
	st := progress.NewState()
	st.CompletedLessons = progress.NewSet("newcomer/what-is-crypto", "newcomer/wallet-setup", "trader/order-types")
	st.LessonScores["newcomer/what-is-crypto"] = progress.LessonScore{BestScore: 1, LastScore: 0.2, Attempts: 4}
	st.LessonScores["newcomer/wallet-setup"] = progress.LessonScore{BestScore: 0.75, Attempts: 1}
	st.LessonScores["trader/order-types"] = progress.LessonScore{BestScore: 0.5, Attempts: 9}
	st.Streak = progress.Streak{Current: 2, Longest: 31}
	st.AchievementsEarned = progress.NewSet("first-steps", "perfectionist", "retired-badge")

	b := c.Breakdown(st)
	assert.Equal(t, Breakdown{
		Lessons:      3 * LessonXP,
		Quizzes:      2*QuizPassXP + QuizPerfectXP,
		Modules:      50 + 100,
		Streak:       Streak7XP + Streak30XP,
		Achievements: 10 + 25,
	}, b)
	assert.Equal(t, b.Total(), c.CalculateTotalXP(st))
}

func TestCalculateTotalXP_Idempotent(t *testing.T) {
	c := testCalculator(t)
	st := progress.NewState()
	st.CompletedLessons = progress.NewSet("newcomer/wallet-setup")
	st.LessonScores["newcomer/wallet-setup"] = progress.LessonScore{BestScore: 0.9, Attempts: 3}

	first := c.CalculateTotalXP(st)
	second := c.CalculateTotalXP(st)
	assert.Equal(t, first, second)
	assert.Equal(t, LessonXP+QuizPassXP, first)
}

func TestQuizAttemptsDoNotMultiplyXP(t *testing.T) {
	c := testCalculator(t)
	st := progress.NewState()
	st.LessonScores["trader/order-types"] = progress.LessonScore{BestScore: 1, Attempts: 1}
	once := c.CalculateTotalXP(st)

	st.LessonScores["trader/order-types"] = progress.LessonScore{BestScore: 1, Attempts: 50}
	assert.Equal(t, once, c.CalculateTotalXP(st))
}

func TestFirstLessonScenario(t *testing.T) {
	c := testCalculator(t)
	before := progress.NewState()
	after := before.Clone()
	after.CompletedLessons["newcomer/wallet-setup"] = true

	earned := achievements.Default().Check(
		achievements.Stats{CompletedLessons: 1}, after.AchievementsEarned,
		achievements.EventLessonComplete, achievements.EventContext{LessonKey: "newcomer/wallet-setup"})
	require.Equal(t, []string{"first-steps"}, earned)
	for _, id := range earned {
		after.AchievementsEarned[id] = true
	}

	delta := c.CalculateTotalXP(after) - c.CalculateTotalXP(before)
	assert.Equal(t, LessonXP+10, delta)
}

func TestStreakBonusCountedOnce(t *testing.T) {
	c := testCalculator(t)
	tests := []struct {
		longest int
		want    int
	}{
		{6, 0},
		{7, Streak7XP},
		{29, Streak7XP},
		{30, Streak7XP + Streak30XP},
		{400, Streak7XP + Streak30XP},
	}
	for _, tt := range tests {
		st := progress.NewState()
		st.Streak = progress.Streak{Current: 1, Longest: tt.longest}
		assert.Equal(t, tt.want, c.Breakdown(st).Streak, "longest=%d", tt.longest)
	}
}

func TestModuleBonus(t *testing.T) {
	assert.Equal(t, 50, ModuleBonus(progress.LevelNewcomer))
	assert.Equal(t, 200, ModuleBonus(progress.LevelMaster))
	assert.Equal(t, 0, ModuleBonus(progress.LevelCompleted))
}
