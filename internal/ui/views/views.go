// Package views renders dashboard data for the terminal.
package views

import (
	"errors"
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/tradequest/internal/dashboard"
	"github.com/abhisek/tradequest/internal/placement"
	"github.com/abhisek/tradequest/internal/progress"
	"github.com/abhisek/tradequest/internal/remote"
	"github.com/abhisek/tradequest/internal/ui/components"
	"github.com/abhisek/tradequest/internal/ui/layout"
	"github.com/abhisek/tradequest/internal/ui/theme"
	"github.com/abhisek/tradequest/internal/votes"
)

// Stats renders the full progress summary.
func Stats(sum dashboard.Summary, width int) string {
	cw := components.ContentWidth(width)

	lvl := sum.Level
	levelLine := fmt.Sprintf("Level %d · %s", lvl.Level, lvl.Title)
	var next string
	if lvl.IsMaxLevel {
		next = theme.Hint.Render("Max level reached")
	} else {
		next = theme.Hint.Render(fmt.Sprintf("%d XP to next level", lvl.XPToNextLevel))
	}
	levelCard := components.Card(levelLine, lipgloss.JoinVertical(lipgloss.Left,
		components.NewProgressBar("", lvl.ProgressPercent/100, true, cw-4).View(),
		next,
	), cw)

	xpLines := []string{
		row("Lessons", sum.XP.Lessons),
		row("Quizzes", sum.XP.Quizzes),
		row("Modules", sum.XP.Modules),
		row("Streak bonus", sum.XP.Streak),
		row("Achievements", sum.XP.Achievements),
		theme.Highlight.Render(fmt.Sprintf("%-14s %6d", "Total", sum.XP.Total())),
	}
	xpCard := components.Card("Experience", strings.Join(xpLines, "\n"), cw)

	streak := fmt.Sprintf("Current %d · Longest %d", sum.Streak.Current, sum.Streak.Longest)
	if sum.NextStreakMilestone > 0 {
		streak += theme.Hint.Render(fmt.Sprintf("  (next milestone: %d days)", sum.NextStreakMilestone))
	}
	streakCard := components.Card("Streak", streak, cw)

	blocks := []string{
		layout.RenderHeader("Progress", sum.XP.Total(), sum.Streak.Current, cw),
		levelCard, xpCard, streakCard,
		components.Card(fmt.Sprintf("Modules (%d/%d lessons)", sum.CompletedLessons, sum.TotalLessons),
			Modules(sum.Modules, cw-4), cw),
		components.Card("Achievements", Achievements(sum.Achievements), cw),
	}
	if sum.PlacementLevel != "" {
		blocks = append(blocks, theme.Subtitle.Render("Placement: start at "+sum.PlacementLevel.DisplayName()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func row(label string, v int) string {
	return fmt.Sprintf("%-14s %6d", label, v)
}

// Modules renders one line per module with its lesson progress and
// placement flags.
func Modules(mods []dashboard.ModuleStatus, width int) string {
	lines := make([]string, 0, len(mods))
	for _, m := range mods {
		pct := 0.0
		if m.LessonsTotal > 0 {
			pct = float64(m.LessonsDone) / float64(m.LessonsTotal)
		}
		label := fmt.Sprintf("%-22s", truncate(m.Title, 22))
		line := components.NewProgressBar(label, pct, true, max(width-24, 30)).View()
		line += " " + moduleBadge(m)
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func moduleBadge(m dashboard.ModuleStatus) string {
	var tags []string
	if m.Completed {
		tags = append(tags, theme.Earned.Render("done"))
	}
	if m.TestedOut {
		tags = append(tags, theme.Earned.Render("tested out"))
	}
	if m.NeedsReview {
		tags = append(tags, theme.Warning.Render("review"))
	}
	return strings.Join(tags, " ")
}

// Achievements renders the catalog with earned entries highlighted.
func Achievements(list []dashboard.AchievementStatus) string {
	lines := make([]string, 0, len(list))
	for _, a := range list {
		if a.Earned {
			lines = append(lines, theme.Earned.Render(fmt.Sprintf("%s %s", a.Icon, a.Name))+
				theme.Hint.Render(fmt.Sprintf("  +%d XP", a.XPReward)))
			continue
		}
		lines = append(lines, theme.Locked.Render(fmt.Sprintf("·  %s  %s", a.Name, a.Criteria)))
	}
	return strings.Join(lines, "\n")
}

// Outcome renders what an action earned.
func Outcome(out *dashboard.Outcome) string {
	var lines []string

	switch out.Action {
	case dashboard.ActionLesson:
		if out.NewlyCompleted {
			lines = append(lines, theme.Body.Render("Lesson complete."))
		} else {
			lines = append(lines, theme.Hint.Render("Lesson was already complete."))
		}
		if out.ModuleCompleted != "" {
			lines = append(lines, theme.Earned.Render("Module complete: "+out.ModuleCompleted))
		}
	case dashboard.ActionQuiz:
		if out.Quiz != nil {
			lines = append(lines, theme.Body.Render(fmt.Sprintf("Quiz scored %s (best %s, %d attempts).",
				percent(out.Quiz.LastScore), percent(out.Quiz.BestScore), out.Quiz.Attempts)))
		}
	case dashboard.ActionModuleTest:
		switch {
		case out.TestedOut && out.NeedsReview:
			lines = append(lines, theme.Warning.Render("Below the pass mark this time; module stays tested out but is flagged for review."))
		case out.TestedOut:
			lines = append(lines, theme.Earned.Render("Module tested out."))
		case out.NeedsReview:
			lines = append(lines, theme.Warning.Render("Module flagged for review."))
		}
	case dashboard.ActionPlacement:
		if out.Placement != nil {
			lines = append(lines, Placement(out.Placement))
		}
	}

	if gained := out.XPGained(); gained > 0 {
		lines = append(lines, theme.Highlight.Render(fmt.Sprintf("+%d XP", gained))+
			theme.Hint.Render(fmt.Sprintf("  (%d total)", out.XPAfter)))
	}
	if out.LeveledUp {
		lines = append(lines, theme.Highlight.Render(fmt.Sprintf("Level up! You are now level %d, %s.",
			out.LevelAfter.Level, out.LevelAfter.Title)))
	}
	for _, d := range out.NewAchievements {
		lines = append(lines, theme.Earned.Render(fmt.Sprintf("%s Achievement unlocked: %s", d.Icon, d.Name))+
			theme.Hint.Render(" · "+d.Description))
	}
	if out.Streak.Current > 0 {
		lines = append(lines, theme.Subtitle.Render(fmt.Sprintf("Streak: %d day(s)", out.Streak.Current)))
	}
	return strings.Join(lines, "\n")
}

// Placement renders a scored placement attempt.
func Placement(res *placement.Result) string {
	lines := []string{theme.Title.Render("Start at: " + res.Level.DisplayName())}
	for _, section := range progress.Sections() {
		score := res.Scores[section]
		tag := ""
		switch {
		case score >= progress.PassThreshold:
			tag = theme.Earned.Render(" tested out")
		case score > 0:
			tag = theme.Warning.Render(" review")
		}
		lines = append(lines, fmt.Sprintf("%-12s %5s%s", section.DisplayName(), percent(score), tag))
	}
	return strings.Join(lines, "\n")
}

// Sync renders the result of an explicit sync.
func Sync(out *dashboard.SyncOutcome) string {
	var lines []string
	rep := out.Report
	var invalid *remote.ErrInvalidPayload
	switch {
	case errors.As(rep.FetchErr, &invalid):
		lines = append(lines, theme.Warning.Render("Remote progress could not be read; it was left untouched and nothing was uploaded."))
	case rep.FetchErr != nil:
		lines = append(lines, theme.Warning.Render("Sync service unreachable; progress is safe locally and will sync later."))
	case !rep.RemoteFound:
		lines = append(lines, theme.Body.Render("No remote progress yet; uploaded local progress."))
	case rep.Changed:
		lines = append(lines, theme.Earned.Render("Merged progress from another device."))
	default:
		lines = append(lines, theme.Body.Render("Already in sync."))
	}
	if d := out.XPAfter - out.XPBefore; d > 0 {
		lines = append(lines, theme.Highlight.Render(fmt.Sprintf("+%d XP from merged progress", d)))
	}
	for _, d := range out.NewAchievements {
		lines = append(lines, theme.Earned.Render(fmt.Sprintf("%s Achievement unlocked: %s", d.Icon, d.Name)))
	}
	if out.Published != nil {
		lines = append(lines, theme.Subtitle.Render(fmt.Sprintf("Published %d XP to the leaderboard.", out.Published.TotalXP)))
	} else if out.PublishErr != nil {
		lines = append(lines, theme.Hint.Render("Leaderboard not updated: "+out.PublishErr.Error()))
	}
	return strings.Join(lines, "\n")
}

// Leaderboard renders the board and the caller's rank.
func Leaderboard(lb *remote.Leaderboard, width int) string {
	cw := components.ContentWidth(width)
	if lb == nil || len(lb.Entries) == 0 {
		return components.Card("Leaderboard", theme.Hint.Render("No entries yet."), cw)
	}
	lines := make([]string, 0, len(lb.Entries)+2)
	for i, e := range lb.Entries {
		name := e.Username
		if name == "" {
			name = e.ID
		}
		line := fmt.Sprintf("%3d. %-20s %7d XP  L%-2d  🔥%d", i+1, truncate(name, 20), e.TotalXP, e.Level, e.Streak)
		if lb.UserRank != nil && lb.UserRank.Rank == i+1 {
			line = theme.Highlight.Render(line)
		}
		lines = append(lines, line)
	}
	if r := lb.UserRank; r != nil {
		lines = append(lines, "", theme.Subtitle.Render(fmt.Sprintf("You are #%d (percentile %.0f) with %d XP",
			r.Rank, r.Percentile, r.TotalXP)))
	}
	return components.Card("Leaderboard", strings.Join(lines, "\n"), cw)
}

// Votes renders the learner's course requests.
func Votes(vs []votes.Vote) string {
	if len(vs) == 0 {
		return theme.Hint.Render("No course requests yet.")
	}
	lines := make([]string, 0, len(vs))
	for _, v := range vs {
		lines = append(lines, fmt.Sprintf("• %s %s", v.CourseID,
			theme.Hint.Render(v.VotedAt.Local().Format("2006-01-02"))))
	}
	return strings.Join(lines, "\n")
}

func percent(v float64) string {
	return fmt.Sprintf("%d%%", int(v*100+0.5))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
