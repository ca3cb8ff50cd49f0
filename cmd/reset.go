package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase local progress on this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("reset erases all local progress; rerun with --yes to confirm")
		}
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.dash.Reset(cmd.Context()); err != nil {
			return err
		}
		e.println("Local progress cleared.")
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
}
