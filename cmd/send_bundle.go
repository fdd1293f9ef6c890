package cmd

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"searcher/bundle"
	"searcher/config"
	"searcher/db"
	"searcher/logger"
	"searcher/sol"
	"searcher/types"
)

var (
	sendRpcURL           string
	sendPayerPath        string
	sendMessage          string
	sendNumTxs           int
	sendLamports         uint64
	sendTipAccount       string
	sendRecipient        string
	sendTransferLamports uint64
)

var sendBundleCmd = cobra.Command{
	Use:   "send-bundle",
	Short: "Build a tip-paying bundle, submit it at the next leader slot and wait for confirmation",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.InitLogs("send-bundle")

		client, err := engineClient()
		if err != nil {
			return err
		}

		payer, err := solana.PrivateKeyFromSolanaKeygenFile(sendPayerPath)
		if err != nil {
			return fmt.Errorf("failed to read payer keypair at %s: %w", sendPayerPath, err)
		}

		var recipient solana.PublicKey
		if sendRecipient != "" {
			recipient, err = solana.PublicKeyFromBase58(sendRecipient)
			if err != nil {
				return fmt.Errorf("bad recipient %q: %w", sendRecipient, err)
			}
		}

		var store db.Database
		if viper.GetString("CLICKHOUSE_ADDR") != "" {
			store = db.NewClickhouse()
			defer store.Close()
		}

		workflow := &bundle.Workflow{
			Engine: client,
			Ledger: sol.NewClient(sendRpcURL),
			Store:  store,
			Log:    logger.EngineLogger,
		}

		outcome, err := workflow.Run(context.Background(), bundle.Config{
			Payer:       payer,
			Recipient:   recipient,
			Lamports:    sendTransferLamports,
			Message:     sendMessage,
			TxCount:     sendNumTxs,
			TipAccount:  sendTipAccount,
			TipLamports: sendLamports,
			Regions:     regions,
		})
		if err != nil {
			return err
		}

		fmt.Printf("bundle %s: %s\n", outcome.BundleId, outcome.Status)
		for _, sig := range outcome.Signatures {
			fmt.Printf("  tx: %s\n", sig)
		}
		if outcome.Status != types.StatusConfirmed {
			if outcome.Reason != "" {
				return fmt.Errorf("bundle not confirmed: %s (%s)", outcome.Status, outcome.Reason)
			}
			return fmt.Errorf("bundle not confirmed: %s", outcome.Status)
		}
		return nil
	},
}

func init() {
	sendBundleCmd.Flags().StringVar(&sendRpcURL, "rpc-url", "", "Solana RPC URL")
	sendBundleCmd.Flags().StringVar(&sendPayerPath, "payer", "", "Filepath to the keypair that pays the transfers and tips")
	sendBundleCmd.Flags().StringVar(&sendMessage, "message", "", "Message to memo into each transaction of the bundle")
	sendBundleCmd.Flags().IntVar(&sendNumTxs, "num-txs", config.DEFAULT_NUM_TXS,
		fmt.Sprintf("Number of transactions in the bundle (must be <= %d)", config.MAX_BUNDLE_SIZE))
	sendBundleCmd.Flags().Uint64Var(&sendLamports, "lamports", config.DEFAULT_TIP_LAMPORTS, "Amount of lamports to tip in each transaction")
	sendBundleCmd.Flags().StringVar(&sendTipAccount, "tip-account", "", "One of the block engine's tip accounts (default: first advertised)")
	sendBundleCmd.Flags().StringVar(&sendRecipient, "recipient", "", "(Optional) recipient of a lamport transfer in each transaction")
	sendBundleCmd.Flags().Uint64Var(&sendTransferLamports, "transfer-lamports", 0, "(Optional) lamports to transfer to --recipient in each transaction")
	_ = sendBundleCmd.MarkFlagRequired("rpc-url")
	_ = sendBundleCmd.MarkFlagRequired("payer")
	_ = sendBundleCmd.MarkFlagRequired("message")
	RootCmd.AddCommand(&sendBundleCmd)
}
