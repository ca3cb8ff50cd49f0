package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/abhisek/tradequest/internal/dashboard"
	"github.com/abhisek/tradequest/internal/ui/views"
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the XP leaderboard and your rank",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		if e.leaderboard == nil {
			return dashboard.ErrSyncDisabled
		}
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = e.cfg.Leaderboard.Limit
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.Sync.Timeout)
		defer cancel()
		if publish, _ := cmd.Flags().GetBool("publish"); publish {
			if _, err := e.leaderboard.PublishXP(ctx); err != nil {
				return err
			}
		}
		lb, err := e.leaderboard.Refresh(ctx, limit)
		if err != nil {
			return err
		}
		e.println(views.Leaderboard(lb, e.width))
		return nil
	},
}

func init() {
	leaderboardCmd.Flags().Int("limit", 0, "Number of entries to show (defaults to TRADEQUEST_LEADERBOARD_LIMIT)")
	leaderboardCmd.Flags().Bool("publish", false, "Publish your current XP before fetching the board")
}
