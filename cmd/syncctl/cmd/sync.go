package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync <uid>",
	Short: "Synchronously sync one user by firebase uid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := apiClient().SyncUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("success=%v action=%s profile_id=%s duration=%s\n",
			result.Success, result.Action, result.ProfileID, result.Duration)
		return nil
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "sync-all",
	Short: "Run a batch sweep over every provider profile document",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := apiClient().SyncAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("total=%d success=%d errors=%d\n", result.Total, result.Success, result.Errors)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(syncAllCmd)
}
