package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"searcher/db"
	"searcher/logger"
)

var historyLimit uint

var historyCmd = cobra.Command{
	Use:   "history",
	Short: "Print recent bundle submissions recorded in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.InitLogs("history")

		ch := db.NewClickhouse()
		defer ch.Close()

		subs, err := ch.QueryRecentSubmissions(historyLimit)
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			fmt.Println("no recorded submissions")
			return nil
		}

		for _, s := range subs {
			line := fmt.Sprintf("%s  %-18s  slot=%d leader=%d region=%s txs=%d tip=%d",
				s.SubmittedAt.Format(time.RFC3339), s.Status, s.CurrentSlot, s.LeaderSlot, s.Region, s.TxCount, s.TipLamports)
			if s.Reason != "" {
				line += "  reason=" + s.Reason
			}
			fmt.Println(line)
			fmt.Printf("  bundle=%s sigs=%s\n", s.BundleId, strings.Join(s.Signatures, ","))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().UintVar(&historyLimit, "limit", 20, "Maximum number of submissions to print")
	RootCmd.AddCommand(&historyCmd)
}
