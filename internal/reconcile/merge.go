// Package reconcile merges progress recorded on another device or writer
// into the local ledger without ever losing earned credit.
package reconcile

import (
	"time"

	"github.com/abhisek/tradequest/internal/progress"
)

// Merge combines two ledgers field by field. Union and max fields never
// regress either side; "latest" fields come from the more recent side,
// with local winning ties and unknown timestamps. Derived sets are
// rebuilt from the merged scores. Merge is total: any two ledgers merge.
func Merge(local, remote progress.State) progress.State {
	local = local.Clone()
	remote = remote.Clone()
	local.Normalize()
	remote.Normalize()

	out := progress.NewState()
	localNewer := !remote.UpdatedAt.After(local.UpdatedAt)

	out.CompletedLessons = progress.Union(local.CompletedLessons, remote.CompletedLessons)
	out.AchievementsEarned = progress.Union(local.AchievementsEarned, remote.AchievementsEarned)

	for key, l := range local.LessonScores {
		if r, ok := remote.LessonScores[key]; ok {
			out.LessonScores[key] = mergeLessonScore(l, r, localNewer)
		} else {
			out.LessonScores[key] = l
		}
	}
	for key, r := range remote.LessonScores {
		if _, ok := local.LessonScores[key]; !ok {
			out.LessonScores[key] = r
		}
	}

	for id, v := range local.ModuleBestScores {
		out.ModuleBestScores[id] = v
	}
	for id, v := range remote.ModuleBestScores {
		out.ModuleBestScores[id] = max(out.ModuleBestScores[id], v)
	}

	for id, v := range local.ModuleLatestScores {
		out.ModuleLatestScores[id] = v
		if at, ok := local.ModuleLatestAt[id]; ok {
			out.ModuleLatestAt[id] = at
		}
	}
	for id, v := range remote.ModuleLatestScores {
		if _, ok := local.ModuleLatestScores[id]; ok &&
			!newer(remote.ModuleLatestAt[id], local.ModuleLatestAt[id], !localNewer) {
			continue
		}
		out.ModuleLatestScores[id] = v
		if at, ok := remote.ModuleLatestAt[id]; ok {
			out.ModuleLatestAt[id] = at
		} else {
			delete(out.ModuleLatestAt, id)
		}
	}

	out.Streak = mergeStreak(local.Streak, remote.Streak)

	// Placement follows PlacementAt, not the snapshot time.
	out.PlacementLevel, out.PlacementAt = local.PlacementLevel, local.PlacementAt
	if remote.PlacementLevel != "" &&
		(out.PlacementLevel == "" || newer(remote.PlacementAt, local.PlacementAt, !localNewer)) {
		out.PlacementLevel, out.PlacementAt = remote.PlacementLevel, remote.PlacementAt
	}

	out.UpdatedAt = local.UpdatedAt
	if remote.UpdatedAt.After(out.UpdatedAt) {
		out.UpdatedAt = remote.UpdatedAt
	}

	out.Recompute()
	return out
}

// newer reports whether a is more recent than b. When either timestamp is
// unknown or they are equal, fallback decides.
func newer(a, b time.Time, fallback bool) bool {
	if a.IsZero() || b.IsZero() || a.Equal(b) {
		return fallback
	}
	return a.After(b)
}

func mergeLessonScore(l, r progress.LessonScore, localNewer bool) progress.LessonScore {
	out := progress.LessonScore{
		BestScore: max(l.BestScore, r.BestScore),
		Attempts:  max(l.Attempts, r.Attempts),
		LastScore: l.LastScore,
		UpdatedAt: l.UpdatedAt,
	}
	if newer(r.UpdatedAt, l.UpdatedAt, !localNewer) {
		out.LastScore = r.LastScore
		out.UpdatedAt = r.UpdatedAt
	}
	return out
}

// mergeStreak keeps the larger run when both sides were active within the
// continuation window of each other; otherwise the side active more
// recently wins. The longest run is always the max.
func mergeStreak(l, r progress.Streak) progress.Streak {
	var out progress.Streak
	switch {
	case r.LastActiveDate == "":
		out = l
	case l.LastActiveDate == "":
		out = r
	default:
		gap, err := progress.DaysBetween(l.LastActiveDate, r.LastActiveDate)
		switch {
		case err != nil:
			out = pickParsable(l, r)
		case abs(gap) <= progress.StreakWindowDays:
			out.Current = max(l.Current, r.Current)
			out.LastActiveDate = l.LastActiveDate
			if gap > 0 {
				out.LastActiveDate = r.LastActiveDate
			}
		case gap > 0:
			out = r
		default:
			out = l
		}
	}
	out.Longest = max(l.Longest, r.Longest, out.Current)
	return out
}

// pickParsable prefers the streak whose date parses, then local.
func pickParsable(l, r progress.Streak) progress.Streak {
	if _, err := time.Parse(progress.DateLayout, l.LastActiveDate); err == nil {
		return l
	}
	if _, err := time.Parse(progress.DateLayout, r.LastActiveDate); err == nil {
		return r
	}
	return l
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
