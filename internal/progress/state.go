package progress

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used for streak dates.
const DateLayout = "2006-01-02"

// StreakWindowDays is how many days may pass between two active days for
// a streak to continue.
const StreakWindowDays = 1

// LessonScore tracks quiz results for one lesson.
type LessonScore struct {
	BestScore float64   `json:"bestScore"`
	LastScore float64   `json:"lastScore"`
	Attempts  int       `json:"attempts"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Streak tracks consecutive active days.
type Streak struct {
	Current        int    `json:"current"`
	Longest        int    `json:"longest,omitempty"`
	LastActiveDate string `json:"lastActiveDate,omitempty"` // YYYY-MM-DD
}

// State is the progress ledger for one learner on one device. XP is
// never stored here; it is derived from the ledger on demand.
type State struct {
	CompletedLessons   Set                    `json:"completedLessons"`
	LessonScores       map[string]LessonScore `json:"lessonScores"`
	ModuleBestScores   map[string]float64     `json:"moduleBestScores"`
	ModuleLatestScores map[string]float64     `json:"moduleLatestScores"`
	ModuleLatestAt     map[string]time.Time   `json:"moduleLatestAt,omitempty"`
	TestedOutModules   Set                    `json:"testedOutModules"`
	UnlockedForReview  Set                    `json:"unlockedForReview"`
	Streak             Streak                 `json:"streak"`
	AchievementsEarned Set                    `json:"achievementsEarned"`
	PlacementLevel     Level                  `json:"placementLevel,omitempty"`
	PlacementAt        time.Time              `json:"placementAt,omitzero"`
	UpdatedAt          time.Time              `json:"updatedAt,omitzero"`
}

// NewState returns the empty ledger used on first run and after a
// malformed record.
func NewState() State {
	return State{
		CompletedLessons:   Set{},
		LessonScores:       map[string]LessonScore{},
		ModuleBestScores:   map[string]float64{},
		ModuleLatestScores: map[string]float64{},
		ModuleLatestAt:     map[string]time.Time{},
		TestedOutModules:   Set{},
		UnlockedForReview:  Set{},
		AchievementsEarned: Set{},
	}
}

// Normalize replaces nil collections with empty ones, clamps scores into
// [0,1] and recomputes the derived sets. Decoded records from older
// versions or other devices may omit fields.
func (s *State) Normalize() {
	if s.CompletedLessons == nil {
		s.CompletedLessons = Set{}
	}
	if s.LessonScores == nil {
		s.LessonScores = map[string]LessonScore{}
	}
	if s.ModuleBestScores == nil {
		s.ModuleBestScores = map[string]float64{}
	}
	if s.ModuleLatestScores == nil {
		s.ModuleLatestScores = map[string]float64{}
	}
	if s.ModuleLatestAt == nil {
		s.ModuleLatestAt = map[string]time.Time{}
	}
	if s.AchievementsEarned == nil {
		s.AchievementsEarned = Set{}
	}
	for k, ls := range s.LessonScores {
		ls.BestScore = ClampScore(ls.BestScore)
		ls.LastScore = ClampScore(ls.LastScore)
		if ls.Attempts < 0 {
			ls.Attempts = 0
		}
		s.LessonScores[k] = ls
	}
	for k, v := range s.ModuleBestScores {
		s.ModuleBestScores[k] = ClampScore(v)
	}
	for k, v := range s.ModuleLatestScores {
		s.ModuleLatestScores[k] = ClampScore(v)
	}
	if s.PlacementLevel != "" && !s.PlacementLevel.Valid() {
		s.PlacementLevel = ""
		s.PlacementAt = time.Time{}
	}
	if s.Streak.Current < 0 {
		s.Streak.Current = 0
	}
	if s.Streak.Longest < s.Streak.Current {
		s.Streak.Longest = s.Streak.Current
	}
	s.Recompute()
}

// Recompute rebuilds TestedOutModules from best scores and
// UnlockedForReview from latest scores. The two sets are independent and
// a module may appear in both.
func (s *State) Recompute() {
	s.TestedOutModules = Set{}
	for id, best := range s.ModuleBestScores {
		if best >= PassThreshold {
			s.TestedOutModules[id] = true
		}
	}
	s.UnlockedForReview = Set{}
	for id, latest := range s.ModuleLatestScores {
		if latest > 0 && latest < PassThreshold {
			s.UnlockedForReview[id] = true
		}
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	out.CompletedLessons = s.CompletedLessons.Clone()
	out.TestedOutModules = s.TestedOutModules.Clone()
	out.UnlockedForReview = s.UnlockedForReview.Clone()
	out.AchievementsEarned = s.AchievementsEarned.Clone()

	out.LessonScores = make(map[string]LessonScore, len(s.LessonScores))
	for k, v := range s.LessonScores {
		out.LessonScores[k] = v
	}
	out.ModuleBestScores = copyScores(s.ModuleBestScores)
	out.ModuleLatestScores = copyScores(s.ModuleLatestScores)
	out.ModuleLatestAt = make(map[string]time.Time, len(s.ModuleLatestAt))
	for k, v := range s.ModuleLatestAt {
		out.ModuleLatestAt[k] = v
	}
	return out
}

func copyScores(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ClampScore bounds a score to [0,1]. NaN becomes 0.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// LessonKey builds the "<module>/<lesson>" key.
func LessonKey(module, lesson string) string {
	return module + "/" + lesson
}

// SplitLessonKey splits a lesson key into module and lesson slugs.
func SplitLessonKey(key string) (module, lesson string, err error) {
	module, lesson, ok := strings.Cut(key, "/")
	if !ok || module == "" || lesson == "" || strings.Contains(lesson, "/") {
		return "", "", fmt.Errorf("invalid lesson key %q: want <module>/<lesson>", key)
	}
	return module, lesson, nil
}

// DaysBetween returns b - a in calendar days for two YYYY-MM-DD dates.
func DaysBetween(a, b string) (int, error) {
	ta, err := time.Parse(DateLayout, a)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", a, err)
	}
	tb, err := time.Parse(DateLayout, b)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", b, err)
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// Advance applies an active day to the streak: the same day is a no-op,
// the next day extends it, anything else restarts it at 1.
func (st Streak) Advance(day string) Streak {
	if st.LastActiveDate == "" {
		st.Current = 1
		st.LastActiveDate = day
	} else {
		gap, err := DaysBetween(st.LastActiveDate, day)
		switch {
		case err != nil:
			st.Current = 1
			st.LastActiveDate = day
		case gap <= 0:
			// Same day, or a clock that went backwards.
		case gap <= StreakWindowDays:
			st.Current++
			st.LastActiveDate = day
		default:
			st.Current = 1
			st.LastActiveDate = day
		}
	}
	if st.Current > st.Longest {
		st.Longest = st.Current
	}
	return st
}
