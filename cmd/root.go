package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "tradequest",
	Short:        "Crypto trading course progress tracker",
	Long:         "TradeQuest tracks lessons, quizzes, placement and achievements for the crypto trading course, and syncs progress across devices.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides TRADEQUEST_DB env var)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides TRADEQUEST_LOG_LEVEL)")
	rootCmd.PersistentFlags().Bool("offline", false, "Skip remote sync for this command")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(lessonCmd)
	rootCmd.AddCommand(lessonsCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(moduleTestCmd)
	rootCmd.AddCommand(placementCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(voteCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}
