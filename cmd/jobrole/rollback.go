package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elavarasan2006/jobrole/internal/artifact"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Swap the current and previous bundle versions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		state, err := artifact.Rollback(cfg.Artifacts.Dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "current: %s previous: %s\n", state.CurrentVersion, state.PreviousVersion)
		return nil
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote <version>",
	Short: "Make a bundle version current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		state, err := artifact.Promote(cfg.Artifacts.Dir, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "current: %s previous: %s\n", state.CurrentVersion, state.PreviousVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd, promoteCmd)
}
