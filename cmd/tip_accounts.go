package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"searcher/logger"
)

var tipAccountsCmd = cobra.Command{
	Use:   "tip-accounts",
	Short: "Print out information about the tip accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.InitLogs("tip-accounts")

		client, err := engineClient()
		if err != nil {
			return err
		}

		accounts, err := client.GetTipAccounts()
		if err != nil {
			return err
		}

		for _, account := range accounts {
			fmt.Println(account)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(&tipAccountsCmd)
}
