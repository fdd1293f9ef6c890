package sol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Client wraps the ledger RPC endpoints the bundle workflow needs: payer
// balance and a fresh blockhash fetched immediately before building.
type Client struct {
	rpc *rpc.Client
	url string
}

func NewClient(url string) *Client {
	if url == "" {
		url = GetSolanaRpcURL()
	}
	return &Client{rpc: rpc.New(url), url: url}
}

func (c *Client) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("getBalance %s failed: %w", account, err)
	}
	return out.Value, nil
}

func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash failed: %w", err)
	}
	return out.Value.Blockhash, nil
}
