package achievements

// EventKind identifies what just happened when achievements are checked.
type EventKind string

const (
	EventLessonComplete EventKind = "lesson-complete"
	EventQuizComplete   EventKind = "quiz-complete"
	EventModuleComplete EventKind = "module-complete"
	EventXPUpdate       EventKind = "xp-update"
	EventStreakUpdate   EventKind = "streak-update"
)

// AllEventKinds returns all event kinds in evaluation order.
func AllEventKinds() []EventKind {
	return []EventKind{
		EventLessonComplete,
		EventQuizComplete,
		EventModuleComplete,
		EventXPUpdate,
		EventStreakUpdate,
	}
}

// DisplayName returns a human-readable label for the event kind.
func (k EventKind) DisplayName() string {
	switch k {
	case EventLessonComplete:
		return "Lessons"
	case EventQuizComplete:
		return "Quizzes"
	case EventModuleComplete:
		return "Modules"
	case EventXPUpdate:
		return "Experience"
	case EventStreakUpdate:
		return "Streaks"
	default:
		return string(k)
	}
}

// Def is one immutable catalog entry.
type Def struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Criteria    string    `json:"criteria"`
	XPReward    int       `json:"xpReward"`
	Kind        EventKind `json:"kind"`
}

// Stats is the learner snapshot predicates are evaluated against.
type Stats struct {
	CompletedLessons int
	PassedQuizzes    int
	PerfectQuizzes   int
	CompletedModules int
	TotalModules     int
	TestedOutModules int
	TotalXP          int
	CurrentStreak    int
	LongestStreak    int
}

// EventContext carries details of the triggering event.
type EventContext struct {
	LessonKey string
	ModuleID  string
	Score     float64
}

// Predicate decides whether an achievement's criteria are met.
type Predicate func(Stats, EventContext) bool
