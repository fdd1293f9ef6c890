package cmd

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"searcher/engine"
)

var (
	blockEngineURL string
	keypairPath    string
	regions        []string
)

var RootCmd = &cobra.Command{
	Use:           "searcher",
	Short:         "A CLI for submitting and confirming Jito bundles via a block engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&blockEngineURL, "block-engine-url", "", "URL of the block engine")
	RootCmd.PersistentFlags().StringVar(&keypairPath, "keypair-path", "", "Path to the keypair used to authenticate with the block engine")
	RootCmd.PersistentFlags().StringSliceVar(&regions, "regions", nil, "Comma-separated list of regions to request cross-region data from")
}

// engineClient builds the authenticated session from flags, falling back to
// config for anything not passed on the command line.
func engineClient() (*engine.Client, error) {
	url := blockEngineURL
	if url == "" {
		url = viper.GetString("engine.url")
	}
	if url == "" {
		return nil, fmt.Errorf("block engine url not set (--block-engine-url or engine.url)")
	}

	path := keypairPath
	if path == "" {
		path = viper.GetString("engine.keypair-path")
	}
	if path == "" {
		return nil, fmt.Errorf("keypair path not set (--keypair-path or engine.keypair-path)")
	}
	keypair, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair at %s: %w", path, err)
	}

	return engine.Connect(url, keypair)
}
