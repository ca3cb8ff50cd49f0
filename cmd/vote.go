package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/tradequest/internal/ui/theme"
	"github.com/abhisek/tradequest/internal/ui/views"
)

var voteCmd = &cobra.Command{
	Use:   "vote [course-id]",
	Short: "Toggle a vote for an upcoming course, or list your votes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		ctx := cmd.Context()
		if len(args) == 1 {
			voted, err := e.votes.Toggle(ctx, args[0])
			if err != nil {
				return err
			}
			if voted {
				e.println(theme.Earned.Render("Voted for " + args[0]))
			} else {
				e.println(theme.Hint.Render("Removed vote for " + args[0]))
			}
			return nil
		}

		vs, err := e.votes.List(ctx)
		if err != nil {
			return err
		}
		e.println(views.Votes(vs))
		return nil
	},
}
