package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate sync counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := apiClient().Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("total=%d synced=%d pending=%d errors=%d\n",
			stats.TotalUsers, stats.SyncedUsers, stats.PendingUsers, stats.ErrorUsers)
		if stats.LastSyncAt != nil {
			fmt.Printf("last_sync_at=%s\n", stats.LastSyncAt)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show trigger manager state",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := apiClient().Status(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("active_listeners=%d queue_size=%d is_processing=%v\n",
			status.ActiveListeners, status.QueueSize, status.IsProcessing)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(statusCmd)
}
