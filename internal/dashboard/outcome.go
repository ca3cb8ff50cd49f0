package dashboard

import (
	"github.com/abhisek/tradequest/internal/achievements"
	"github.com/abhisek/tradequest/internal/levels"
	"github.com/abhisek/tradequest/internal/placement"
	"github.com/abhisek/tradequest/internal/progress"
	"github.com/abhisek/tradequest/internal/reconcile"
	"github.com/abhisek/tradequest/internal/remote"
)

// Action names a learner action the dashboard handles.
type Action string

const (
	ActionLesson     Action = "lesson"
	ActionQuiz       Action = "quiz"
	ActionModuleTest Action = "module-test"
	ActionPlacement  Action = "placement"
)

// Outcome is what a single action produced, for display and celebration.
type Outcome struct {
	Action Action `json:"action"`

	XPBefore    int         `json:"xpBefore"`
	XPAfter     int         `json:"xpAfter"`
	LevelBefore levels.Info `json:"levelBefore"`
	LevelAfter  levels.Info `json:"levelAfter"`
	LeveledUp   bool        `json:"leveledUp"`

	NewAchievements []achievements.Def `json:"newAchievements,omitempty"`
	Streak          progress.Streak    `json:"streak"`

	NewlyCompleted  bool                  `json:"newlyCompleted,omitempty"`
	ModuleCompleted string                `json:"moduleCompleted,omitempty"`
	Quiz            *progress.LessonScore `json:"quiz,omitempty"`
	TestedOut       bool                  `json:"testedOut,omitempty"`
	NeedsReview     bool                  `json:"needsReview,omitempty"`
	Placement       *placement.Result     `json:"placement,omitempty"`

	// Sync is set when an opportunistic sync ran.
	Sync *reconcile.Report `json:"-"`
}

// XPGained is the XP delta of the action.
func (o *Outcome) XPGained() int {
	return o.XPAfter - o.XPBefore
}

// SyncOutcome is the result of an explicit Sync.
type SyncOutcome struct {
	Report          reconcile.Report
	XPBefore        int
	XPAfter         int
	NewAchievements []achievements.Def
	Published       *remote.XPSnapshot
	PublishErr      error
}
