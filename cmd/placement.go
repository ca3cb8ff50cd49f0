package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/tradequest/internal/placement"
	"github.com/abhisek/tradequest/internal/progress"
	"github.com/abhisek/tradequest/internal/ui/components"
	"github.com/abhisek/tradequest/internal/ui/quiz"
	"github.com/abhisek/tradequest/internal/ui/theme"
	"github.com/abhisek/tradequest/internal/ui/views"
)

var placementCmd = &cobra.Command{
	Use:   "placement",
	Short: "Take the placement test to find where to start",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		if n, _ := cmd.Flags().GetInt("history"); n > 0 {
			return printPlacementHistory(cmd, e, n)
		}

		var answers placement.Answers
		if path, _ := cmd.Flags().GetString("answers"); path != "" {
			answers, err = readAnswersFile(path)
		} else if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(f.Fd()) {
			answers, err = runPlacementQuiz(e.placement.Bank())
		} else {
			answers, err = askPlacement(cmd.InOrStdin(), e, e.placement.Bank())
		}
		if err != nil {
			return err
		}

		out, err := e.dash.SubmitPlacement(cmd.Context(), answers)
		if err != nil {
			return err
		}
		e.println(views.Outcome(out))
		return nil
	},
}

func init() {
	placementCmd.Flags().String("answers", "", "YAML or JSON file mapping question id to chosen option index")
	placementCmd.Flags().Int("history", 0, "Show the last N placement attempts instead of taking the test")
}

// readAnswersFile parses a question-id to option-index map. JSON is
// accepted since it is valid YAML.
func readAnswersFile(path string) (placement.Answers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	var answers placement.Answers
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("parse answers: %w", err)
	}
	return answers, nil
}

// runPlacementQuiz takes the test full-screen on an interactive terminal.
func runPlacementQuiz(bank *placement.Bank) (placement.Answers, error) {
	final, err := tea.NewProgram(quiz.New(bank)).Run()
	if err != nil {
		return nil, fmt.Errorf("run placement test: %w", err)
	}
	m, ok := final.(quiz.Model)
	if !ok || m.Aborted() {
		return nil, errors.New("placement test cancelled")
	}
	return m.Answers(), nil
}

// askPlacement walks the bank section by section when input is piped.
// Options are numbered from 1; a blank line skips the question.
func askPlacement(in io.Reader, e *env, bank *placement.Bank) (placement.Answers, error) {
	answers := placement.Answers{}
	sc := bufio.NewScanner(in)
	cw := components.ContentWidth(e.width)
	for _, section := range progress.Sections() {
		e.println("")
		e.println(theme.Title.Render(section.DisplayName()))
		qs := bank.Sections[section]
		for i, q := range qs {
			e.println(components.NewMultiChoice(i+1, len(qs), q.Prompt, q.Options).View(cw))
			for {
				fmt.Fprint(e.out, theme.Hint.Render("> "))
				if !sc.Scan() {
					if err := sc.Err(); err != nil {
						return nil, fmt.Errorf("read answer: %w", err)
					}
					return answers, nil
				}
				line := strings.TrimSpace(sc.Text())
				if line == "" {
					break
				}
				n, err := strconv.Atoi(line)
				if err != nil || n < 1 || n > len(q.Options) {
					e.println(theme.Warning.Render(fmt.Sprintf("Enter a number from 1 to %d.", len(q.Options))))
					continue
				}
				answers[q.ID] = n - 1
				break
			}
		}
	}
	return answers, nil
}

func printPlacementHistory(cmd *cobra.Command, e *env, n int) error {
	history, err := e.placement.History(cmd.Context(), n)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		e.println("No placement attempts yet.")
		return nil
	}
	for _, r := range history {
		e.println(fmt.Sprintf("#%d  %s  %s", r.Sequence,
			r.Timestamp.Local().Format("2006-01-02 15:04"), r.Level.DisplayName()))
	}
	return nil
}
