package engine

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	MapSet "github.com/deckarep/golang-set/v2"
	"github.com/gagliardetto/solana-go"

	"searcher/logger"
	"searcher/types"
	"searcher/utils"
)

const (
	pathAuthChallenge       = "/api/v1/auth/challenge"
	pathAuthToken           = "/api/v1/auth/token"
	pathNextScheduledLeader = "/api/v1/searcher/nextScheduledLeader"
	pathConnectedLeaders    = "/api/v1/searcher/connectedLeaders"
	pathTipAccounts         = "/api/v1/searcher/tipAccounts"
	pathSendBundle          = "/api/v1/searcher/sendBundle"
	pathSubBundleResults    = "/api/v1/searcher/subscribeBundleResults"
	pathSubPendingTxs       = "/api/v1/searcher/subscribePendingTransactions"
)

// SearcherService is the capability surface of the block engine consumed by
// the bundle workflow. Client implements it against the real engine, tests
// implement it with doubles.
type SearcherService interface {
	GetNextScheduledLeader(regions []string) (*types.SlotInfo, error)
	GetConnectedLeaders() (map[string][]uint64, error)
	GetTipAccounts() ([]string, error)
	SubmitBundle(txs [][]byte) (string, error)
	SubscribeBundleResults() (BundleResultStream, error)
	SubscribePendingTransactions(accounts []string) (PendingTxStream, error)
}

// Client is an authenticated session against one block engine. The session is
// created at workflow start and shared by the submitter and both subscription
// readers until the run ends.
type Client struct {
	baseURL string
	keypair solana.PrivateKey
	token   string
	log     *slog.Logger
}

var _ SearcherService = (*Client)(nil)

// Connect authenticates against the block engine at blockEngineURL with the
// given keypair and returns a ready session.
func Connect(blockEngineURL string, keypair solana.PrivateKey) (*Client, error) {
	if blockEngineURL == "" {
		return nil, fmt.Errorf("block engine url is empty")
	}
	token, err := authenticate(blockEngineURL, keypair)
	if err != nil {
		return nil, err
	}
	logger.EngineLogger.Info("Authenticated with block engine", "url", blockEngineURL, "pubkey", keypair.PublicKey())
	return &Client{
		baseURL: blockEngineURL,
		keypair: keypair,
		token:   token,
		log:     logger.EngineLogger,
	}, nil
}

func (c *Client) authHeader() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.token)
	return h
}

type nextScheduledLeaderRequest struct {
	Regions []string `json:"regions"`
}

func (c *Client) GetNextScheduledLeader(regions []string) (*types.SlotInfo, error) {
	var info types.SlotInfo
	err := utils.PostUrlResponse(
		c.baseURL+pathNextScheduledLeader,
		nextScheduledLeaderRequest{Regions: dedupeRegions(regions)},
		c.authHeader(), &info, c.log,
	)
	if err != nil {
		return nil, fmt.Errorf("nextScheduledLeader failed: %w", classify(err))
	}
	return &info, nil
}

type connectedLeadersResponse struct {
	// validator identity -> slots it leads while connected to this engine
	ConnectedValidators map[string][]uint64 `json:"connectedValidators"`
}

func (c *Client) GetConnectedLeaders() (map[string][]uint64, error) {
	var resp connectedLeadersResponse
	err := utils.PostUrlResponse(
		c.baseURL+pathConnectedLeaders,
		struct{}{}, c.authHeader(), &resp, c.log,
	)
	if err != nil {
		return nil, fmt.Errorf("connectedLeaders failed: %w", classify(err))
	}
	return resp.ConnectedValidators, nil
}

type tipAccountsResponse struct {
	Accounts []string `json:"accounts"`
}

func (c *Client) GetTipAccounts() ([]string, error) {
	var resp tipAccountsResponse
	err := utils.PostUrlResponse(
		c.baseURL+pathTipAccounts,
		struct{}{}, c.authHeader(), &resp, c.log,
	)
	if err != nil {
		return nil, fmt.Errorf("tipAccounts failed: %w", classify(err))
	}
	return resp.Accounts, nil
}

type sendBundleRequest struct {
	// base64 wire transactions, order preserved by the engine
	Transactions []string `json:"transactions"`
}

type sendBundleResponse struct {
	BundleId string `json:"bundleId"`
}

// SubmitBundle sends the serialized bundle once and returns the engine's
// bundle id for correlating result events. No retry here: a resubmission with
// a stale blockhash would be rejected anyway, retry policy belongs to callers.
func (c *Client) SubmitBundle(txs [][]byte) (string, error) {
	if len(txs) == 0 {
		return "", fmt.Errorf("refusing to submit empty bundle")
	}
	encoded := make([]string, 0, len(txs))
	for _, tx := range txs {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(tx))
	}

	var resp sendBundleResponse
	err := utils.PostUrlResponse(
		c.baseURL+pathSendBundle,
		sendBundleRequest{Transactions: encoded},
		c.authHeader(), &resp, c.log,
	)
	if err != nil {
		return "", fmt.Errorf("sendBundle failed: %w", classify(err))
	}
	c.log.Info("Submitted bundle", "bundle_id", resp.BundleId, "num_txs", len(txs))
	return resp.BundleId, nil
}

func dedupeRegions(regions []string) []string {
	set := MapSet.NewSet[string]()
	for _, r := range regions {
		if r != "" {
			set.Add(r)
		}
	}
	out := set.ToSlice()
	sort.Strings(out)
	return out
}
