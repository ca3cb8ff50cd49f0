package achievements

var defaultCatalog = []Def{
	{ID: "first-steps", Name: "First Steps", Icon: "👣", Kind: EventLessonComplete, XPReward: 10,
		Description: "Finish your first lesson.", Criteria: "Complete 1 lesson"},
	{ID: "quick-study", Name: "Quick Study", Icon: "📚", Kind: EventLessonComplete, XPReward: 50,
		Description: "Build a habit of finishing lessons.", Criteria: "Complete 10 lessons"},
	{ID: "scholar", Name: "Scholar", Icon: "🎓", Kind: EventLessonComplete, XPReward: 100,
		Description: "Work through most of the curriculum.", Criteria: "Complete 25 lessons"},
	{ID: "quiz-whiz", Name: "Quiz Whiz", Icon: "✅", Kind: EventQuizComplete, XPReward: 15,
		Description: "Pass a lesson quiz.", Criteria: "Score 75% or more on a quiz"},
	{ID: "perfectionist", Name: "Perfectionist", Icon: "💯", Kind: EventQuizComplete, XPReward: 25,
		Description: "Answer every question right.", Criteria: "Score 100% on a quiz"},
	{ID: "flawless-five", Name: "Flawless Five", Icon: "🌟", Kind: EventQuizComplete, XPReward: 75,
		Description: "Ace five different quizzes.", Criteria: "Score 100% on 5 quizzes"},
	{ID: "module-master", Name: "Module Master", Icon: "🏅", Kind: EventModuleComplete, XPReward: 50,
		Description: "Finish every lesson in a module.", Criteria: "Complete 1 module"},
	{ID: "graduate", Name: "Graduate", Icon: "🏆", Kind: EventModuleComplete, XPReward: 250,
		Description: "Finish the whole curriculum.", Criteria: "Complete all modules"},
	{ID: "rising-star", Name: "Rising Star", Icon: "⭐", Kind: EventXPUpdate, XPReward: 25,
		Description: "Build up experience.", Criteria: "Earn 500 XP"},
	{ID: "powerhouse", Name: "Powerhouse", Icon: "⚡", Kind: EventXPUpdate, XPReward: 50,
		Description: "Build up serious experience.", Criteria: "Earn 2000 XP"},
	{ID: "on-fire", Name: "On Fire", Icon: "🔥", Kind: EventStreakUpdate, XPReward: 10,
		Description: "Learn three days in a row.", Criteria: "Reach a 3-day streak"},
	{ID: "week-warrior", Name: "Week Warrior", Icon: "📅", Kind: EventStreakUpdate, XPReward: 30,
		Description: "Learn every day for a week.", Criteria: "Reach a 7-day streak"},
	{ID: "monthly-master", Name: "Monthly Master", Icon: "🗓️", Kind: EventStreakUpdate, XPReward: 100,
		Description: "Learn every day for a month.", Criteria: "Reach a 30-day streak"},
}

var defaultRules = map[string]Predicate{
	"first-steps":   lessonsAtLeast(1),
	"quick-study":   lessonsAtLeast(10),
	"scholar":       lessonsAtLeast(25),
	"quiz-whiz":     func(s Stats, _ EventContext) bool { return s.PassedQuizzes >= 1 },
	"perfectionist": func(s Stats, _ EventContext) bool { return s.PerfectQuizzes >= 1 },
	"flawless-five": func(s Stats, _ EventContext) bool { return s.PerfectQuizzes >= 5 },
	"module-master": func(s Stats, _ EventContext) bool { return s.CompletedModules >= 1 },
	"graduate": func(s Stats, _ EventContext) bool {
		return s.TotalModules > 0 && s.CompletedModules >= s.TotalModules
	},
	"rising-star":    func(s Stats, _ EventContext) bool { return s.TotalXP >= 500 },
	"powerhouse":     func(s Stats, _ EventContext) bool { return s.TotalXP >= 2000 },
	"on-fire":        streakAtLeast(3),
	"week-warrior":   streakAtLeast(7),
	"monthly-master": streakAtLeast(30),
}

func lessonsAtLeast(n int) Predicate {
	return func(s Stats, _ EventContext) bool { return s.CompletedLessons >= n }
}

// The longest streak counts so a broken streak keeps what it earned.
func streakAtLeast(n int) Predicate {
	return func(s Stats, _ EventContext) bool {
		return max(s.CurrentStreak, s.LongestStreak) >= n
	}
}

// Catalog returns a copy of the default achievement catalog in display
// order.
func Catalog() []Def {
	out := make([]Def, len(defaultCatalog))
	copy(out, defaultCatalog)
	return out
}

// NextStreakMilestone returns the smallest streak achievement threshold
// above current, or 0 when every streak achievement is reachable already.
func NextStreakMilestone(current int) int {
	for _, n := range []int{3, 7, 30} {
		if n > current {
			return n
		}
	}
	return 0
}
