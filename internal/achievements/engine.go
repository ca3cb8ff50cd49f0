// Package achievements evaluates which catalog achievements a learner has
// newly qualified for after an event.
package achievements

import (
	"fmt"

	"github.com/abhisek/tradequest/internal/curriculum"
	"github.com/abhisek/tradequest/internal/progress"
)

// Engine evaluates catalog predicates. It never mutates anything; callers
// persist the ids it returns.
type Engine struct {
	catalog []Def
	rules   map[string]Predicate
}

// NewEngine creates an engine over catalog with per-id predicates. Every
// catalog entry must have a rule.
func NewEngine(catalog []Def, rules map[string]Predicate) (*Engine, error) {
	seen := make(map[string]bool, len(catalog))
	for _, d := range catalog {
		if seen[d.ID] {
			return nil, fmt.Errorf("duplicate achievement id %q", d.ID)
		}
		seen[d.ID] = true
		if d.XPReward < 0 {
			return nil, fmt.Errorf("achievement %q has negative reward", d.ID)
		}
		if rules[d.ID] == nil {
			return nil, fmt.Errorf("achievement %q has no rule", d.ID)
		}
	}
	cp := make([]Def, len(catalog))
	copy(cp, catalog)
	rs := make(map[string]Predicate, len(rules))
	for id, p := range rules {
		rs[id] = p
	}
	return &Engine{catalog: cp, rules: rs}, nil
}

// Default returns an engine over the default catalog.
func Default() *Engine {
	e, err := NewEngine(defaultCatalog, defaultRules)
	if err != nil {
		panic(fmt.Sprintf("achievements: default catalog: %v", err))
	}
	return e
}

// Catalog returns the engine's catalog in order.
func (e *Engine) Catalog() []Def {
	out := make([]Def, len(e.catalog))
	copy(out, e.catalog)
	return out
}

// Check returns the ids, in catalog order, of achievements that react to
// kind, whose predicate holds and which are not in alreadyEarned.
func (e *Engine) Check(stats Stats, alreadyEarned progress.Set, kind EventKind, ctx EventContext) []string {
	var out []string
	for _, d := range e.catalog {
		if d.Kind != kind || alreadyEarned.Has(d.ID) {
			continue
		}
		if e.rules[d.ID](stats, ctx) {
			out = append(out, d.ID)
		}
	}
	return out
}

// ByID looks up a catalog entry.
func (e *Engine) ByID(id string) (Def, bool) {
	for _, d := range e.catalog {
		if d.ID == id {
			return d, true
		}
	}
	return Def{}, false
}

// BuildStats derives the predicate inputs from a ledger. totalXP comes
// from the XP calculator; it is passed in so this package never computes
// or caches it.
func BuildStats(st progress.State, cur *curriculum.Curriculum, totalXP int) Stats {
	s := Stats{
		CompletedLessons: len(st.CompletedLessons),
		TestedOutModules: len(st.TestedOutModules),
		TotalXP:          totalXP,
		CurrentStreak:    st.Streak.Current,
		LongestStreak:    st.Streak.Longest,
	}
	for _, ls := range st.LessonScores {
		if ls.BestScore >= progress.PassThreshold {
			s.PassedQuizzes++
		}
		if ls.BestScore >= 1 {
			s.PerfectQuizzes++
		}
	}
	if cur != nil {
		s.CompletedModules = len(cur.CompletedModules(st.CompletedLessons))
		s.TotalModules = len(cur.Modules())
	}
	return s
}
