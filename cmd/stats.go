package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/abhisek/tradequest/internal/ui/views"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show level, XP, streak, modules and achievements",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd)
	},
}

func init() {
	statsCmd.Flags().Bool("json", false, "Print the summary as JSON")
}

func runStats(cmd *cobra.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	sum := e.dash.Summary()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	e.println(views.Stats(sum, e.width))
	return nil
}
