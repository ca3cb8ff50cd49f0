package dashboard

import (
	"github.com/abhisek/tradequest/internal/achievements"
	"github.com/abhisek/tradequest/internal/levels"
	"github.com/abhisek/tradequest/internal/progress"
	"github.com/abhisek/tradequest/internal/xp"
)

// ModuleStatus is one curriculum module as the learner sees it.
type ModuleStatus struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Tier         progress.Level `json:"tier"`
	LessonsDone  int            `json:"lessonsDone"`
	LessonsTotal int            `json:"lessonsTotal"`
	Completed    bool           `json:"completed"`
	TestedOut    bool           `json:"testedOut"`
	NeedsReview  bool           `json:"needsReview"`
	BestScore    float64        `json:"bestScore"`
	LatestScore  float64        `json:"latestScore"`
}

// AchievementStatus pairs a catalog entry with whether it is earned.
type AchievementStatus struct {
	achievements.Def
	Earned bool `json:"earned"`
}

// Summary is everything the stats view renders.
type Summary struct {
	Level               levels.Info         `json:"level"`
	XP                  xp.Breakdown        `json:"xp"`
	Streak              progress.Streak     `json:"streak"`
	NextStreakMilestone int                 `json:"nextStreakMilestone,omitempty"`
	CompletedLessons    int                 `json:"completedLessons"`
	TotalLessons        int                 `json:"totalLessons"`
	PlacementLevel      progress.Level      `json:"placementLevel,omitempty"`
	Modules             []ModuleStatus      `json:"modules"`
	Achievements        []AchievementStatus `json:"achievements"`
}

// Summary derives the current view of the ledger. XP is recomputed on
// every call.
func (s *Service) Summary() Summary {
	st := s.store.State()
	breakdown := s.calc.Breakdown(st)

	sum := Summary{
		Level:               levels.GetLevelInfo(breakdown.Total()),
		XP:                  breakdown,
		Streak:              st.Streak,
		NextStreakMilestone: achievements.NextStreakMilestone(max(st.Streak.Current, st.Streak.Longest)),
		TotalLessons:        s.curriculum.LessonCount(),
		PlacementLevel:      st.PlacementLevel,
	}

	for _, m := range s.curriculum.Modules() {
		ms := ModuleStatus{
			ID:           m.ID,
			Title:        m.Title,
			Tier:         m.Tier,
			LessonsTotal: len(m.Lessons),
			Completed:    s.curriculum.IsModuleComplete(m.ID, st.CompletedLessons),
			TestedOut:    st.TestedOutModules.Has(m.ID),
			NeedsReview:  st.UnlockedForReview.Has(m.ID),
			BestScore:    st.ModuleBestScores[m.ID],
			LatestScore:  st.ModuleLatestScores[m.ID],
		}
		for _, key := range m.LessonKeys() {
			if st.CompletedLessons.Has(key) {
				ms.LessonsDone++
			}
		}
		sum.CompletedLessons += ms.LessonsDone
		sum.Modules = append(sum.Modules, ms)
	}

	for _, d := range s.engine.Catalog() {
		sum.Achievements = append(sum.Achievements, AchievementStatus{
			Def:    d,
			Earned: st.AchievementsEarned.Has(d.ID),
		})
	}
	return sum
}
