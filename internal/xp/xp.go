// Package xp derives a learner's experience total from the progress
// ledger. The total is never stored; every caller recomputes it.
package xp

import (
	"github.com/abhisek/tradequest/internal/achievements"
	"github.com/abhisek/tradequest/internal/curriculum"
	"github.com/abhisek/tradequest/internal/progress"
)

// Award amounts.
const (
	LessonXP      = 25
	QuizPassXP    = 15
	QuizPerfectXP = 10
	Streak7XP     = 50
	Streak30XP    = 200
)

// ModuleBonus is the completion bonus for a module of the given tier.
func ModuleBonus(tier progress.Level) int {
	switch tier {
	case progress.LevelNewcomer:
		return 50
	case progress.LevelApprentice:
		return 75
	case progress.LevelTrader:
		return 100
	case progress.LevelSpecialist:
		return 150
	case progress.LevelMaster:
		return 200
	default:
		return 0
	}
}

// Breakdown is the total split by source.
type Breakdown struct {
	Lessons      int `json:"lessons"`
	Quizzes      int `json:"quizzes"`
	Modules      int `json:"modules"`
	Streak       int `json:"streak"`
	Achievements int `json:"achievements"`
}

// Total sums all sources.
func (b Breakdown) Total() int {
	return b.Lessons + b.Quizzes + b.Modules + b.Streak + b.Achievements
}

// Calculator computes XP against a curriculum and achievement rewards.
type Calculator struct {
	curriculum *curriculum.Curriculum
	rewards    map[string]int
}

// New creates a Calculator. Achievement rewards are read from catalog.
func New(cur *curriculum.Curriculum, catalog []achievements.Def) *Calculator {
	rewards := make(map[string]int, len(catalog))
	for _, d := range catalog {
		rewards[d.ID] = d.XPReward
	}
	return &Calculator{curriculum: cur, rewards: rewards}
}

// Breakdown computes per-source XP for st. Quiz awards come from each
// lesson's best score once, however many attempts it took.
func (c *Calculator) Breakdown(st progress.State) Breakdown {
	var b Breakdown

	for key, done := range st.CompletedLessons {
		if !done {
			continue
		}
		if _, _, err := progress.SplitLessonKey(key); err == nil {
			b.Lessons += LessonXP
		}
	}

	for _, ls := range st.LessonScores {
		if ls.BestScore >= progress.PassThreshold {
			b.Quizzes += QuizPassXP
		}
		if ls.BestScore >= 1 {
			b.Quizzes += QuizPerfectXP
		}
	}

	if c.curriculum != nil {
		for _, id := range c.curriculum.CompletedModules(st.CompletedLessons) {
			m, _ := c.curriculum.Module(id)
			b.Modules += ModuleBonus(m.Tier)
		}
	}

	if st.Streak.Longest >= 7 {
		b.Streak += Streak7XP
	}
	if st.Streak.Longest >= 30 {
		b.Streak += Streak30XP
	}

	for id, earned := range st.AchievementsEarned {
		if earned {
			b.Achievements += c.rewards[id]
		}
	}
	return b
}

// CalculateTotalXP is the only sanctioned way to obtain current XP.
func (c *Calculator) CalculateTotalXP(st progress.State) int {
	return c.Breakdown(st).Total()
}
