package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"searcher/logger"
)

var nextScheduledLeaderCmd = cobra.Command{
	Use:   "next-scheduled-leader",
	Short: "Print out information on the next scheduled leader",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.InitLogs("next-scheduled-leader")

		client, err := engineClient()
		if err != nil {
			return err
		}

		info, err := client.GetNextScheduledLeader(regions)
		if err != nil {
			return err
		}

		fmt.Printf("next jito-solana slot in %d slots for leader %s in %s\n",
			info.SlotsUntil(), info.NextLeaderIdentity, info.NextLeaderRegion)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(&nextScheduledLeaderCmd)
}
