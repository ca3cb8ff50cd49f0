package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/tradequest/internal/dashboard"
	"github.com/abhisek/tradequest/internal/ui/theme"
	"github.com/abhisek/tradequest/internal/ui/views"
)

var lessonCmd = &cobra.Command{
	Use:   "lesson <module/lesson>",
	Short: "Mark a lesson complete",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, func(e *env) (*dashboard.Outcome, error) {
			return e.dash.CompleteLesson(cmd.Context(), args[0])
		})
	},
}

var quizCmd = &cobra.Command{
	Use:   "quiz <module/lesson> <score>",
	Short: "Record a lesson quiz score (0-1 or a percentage like 80%)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := parseScore(args[1])
		if err != nil {
			return err
		}
		return runAction(cmd, func(e *env) (*dashboard.Outcome, error) {
			return e.dash.RecordQuiz(cmd.Context(), args[0], score)
		})
	},
}

var moduleTestCmd = &cobra.Command{
	Use:   "module-test <module> <score>",
	Short: "Record a module test score (0-1 or a percentage like 80%)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := parseScore(args[1])
		if err != nil {
			return err
		}
		return runAction(cmd, func(e *env) (*dashboard.Outcome, error) {
			return e.dash.RecordModuleTest(cmd.Context(), args[0], score)
		})
	},
}

var lessonsCmd = &cobra.Command{
	Use:   "lessons",
	Short: "List the curriculum's modules and lesson keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		done := e.progress.State().CompletedLessons
		for _, m := range e.dash.Curriculum().Modules() {
			e.println(theme.Title.Render(fmt.Sprintf("%s (%s)", m.Title, m.ID)))
			for _, key := range m.LessonKeys() {
				mark := "  "
				if done.Has(key) {
					mark = theme.Earned.Render("✓ ")
				}
				e.println("  " + mark + key)
			}
		}
		return nil
	},
}

// runAction opens the environment, runs one dashboard action and renders
// its outcome.
func runAction(cmd *cobra.Command, act func(*env) (*dashboard.Outcome, error)) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	out, err := act(e)
	if err != nil {
		return err
	}
	e.println(views.Outcome(out))
	if out.Sync != nil && out.Sync.FetchErr != nil {
		e.println(theme.Hint.Render("Sync unavailable; progress saved locally."))
	}
	return nil
}

// parseScore accepts a fraction in [0,1] or a percentage such as "80%".
func parseScore(s string) (float64, error) {
	s = strings.TrimSpace(s)
	pct := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score %q: %w", s, err)
	}
	if pct {
		v /= 100
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("score %q is out of range", s)
	}
	return v, nil
}
