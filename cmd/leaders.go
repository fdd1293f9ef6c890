package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"searcher/logger"
	"searcher/sol"
)

var leadersRpcURL string

var connectedLeadersCmd = cobra.Command{
	Use:   "connected-leaders",
	Short: "Print out information on connected leaders",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.InitLogs("connected-leaders")

		client, err := engineClient()
		if err != nil {
			return err
		}

		leaders, err := client.GetConnectedLeaders()
		if err != nil {
			return err
		}

		for _, validator := range sortedKeys(leaders) {
			fmt.Printf("%s: %d slots\n", validator, len(leaders[validator]))
		}
		fmt.Printf("%d connected leaders\n", len(leaders))
		return nil
	},
}

var connectedLeadersInfoCmd = cobra.Command{
	Use:   "connected-leaders-info",
	Short: "Print out connected leaders with their leader slot percentage",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.InitLogs("connected-leaders-info")

		client, err := engineClient()
		if err != nil {
			return err
		}

		leaders, err := client.GetConnectedLeaders()
		if err != nil {
			return err
		}

		sol.SolanaRpcURL = leadersRpcURL
		schedule, err := sol.GetLeaderSchedule()
		if err != nil {
			return err
		}

		totalSlots := 0
		for _, slots := range schedule {
			totalSlots += len(slots)
		}
		if totalSlots == 0 {
			return fmt.Errorf("ledger returned an empty leader schedule")
		}

		connectedSlots := 0
		for _, validator := range sortedKeys(leaders) {
			n := len(schedule[validator])
			connectedSlots += n
			fmt.Printf("%s: %.2f%% of epoch slots (%d)\n",
				validator, float64(n)*100/float64(totalSlots), n)
		}
		fmt.Printf("connected leaders hold %.2f%% of the epoch schedule\n",
			float64(connectedSlots)*100/float64(totalSlots))
		return nil
	},
}

func sortedKeys(m map[string][]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	connectedLeadersInfoCmd.Flags().StringVar(&leadersRpcURL, "rpc-url", "", "Solana RPC URL used to fetch the leader schedule")
	_ = connectedLeadersInfoCmd.MarkFlagRequired("rpc-url")
	RootCmd.AddCommand(&connectedLeadersCmd)
	RootCmd.AddCommand(&connectedLeadersInfoCmd)
}
