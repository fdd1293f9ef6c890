package bundle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"

	"searcher/config"
	"searcher/db"
	"searcher/engine"
	"searcher/types"
	"searcher/utils"
)

// ErrInsufficientBalance means the payer cannot cover the transfers, tips and
// fees of the requested bundle.
var ErrInsufficientBalance = errors.New("payer balance cannot cover bundle")

// LedgerClient is the slice of the ledger RPC surface the workflow needs.
type LedgerClient interface {
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// Config is one confirmation run. Zero durations and counts fall back to the
// package defaults in config.
type Config struct {
	Payer     solana.PrivateKey
	Recipient solana.PublicKey
	Lamports  uint64
	Message   string
	TxCount   int

	// Optional, the engine's first approved tip account is used when empty
	TipAccount  string
	TipLamports uint64

	Regions []string

	ProximitySlots uint64
	PollInterval   time.Duration
	WaitTimeout    time.Duration
	Deadline       time.Duration
}

// Outcome is the single terminal report of one run.
type Outcome struct {
	Status     types.FinalStatus
	Reason     string
	BundleId   string
	Signatures []solana.Signature
	SlotInfo   *types.SlotInfo
}

// Workflow drives one leader-timed bundle submission end to end: wait for
// leader proximity, build, submit, correlate. Store is optional submission
// history, nil disables it.
type Workflow struct {
	Engine engine.SearcherService
	Ledger LedgerClient
	Store  db.Database
	Log    *slog.Logger
}

func (w *Workflow) Run(ctx context.Context, cfg Config) (*Outcome, error) {
	if cfg.TxCount == 0 {
		cfg.TxCount = config.DEFAULT_NUM_TXS
	}
	if cfg.TipLamports == 0 {
		cfg.TipLamports = config.DEFAULT_TIP_LAMPORTS
	}
	if cfg.ProximitySlots == 0 {
		cfg.ProximitySlots = config.LEADER_PROXIMITY_SLOTS
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = config.LEADER_POLL_INTERVAL
	}

	payer := cfg.Payer.PublicKey()

	tipAccounts, err := w.Engine.GetTipAccounts()
	if err != nil {
		return nil, err
	}
	if len(tipAccounts) == 0 {
		return nil, fmt.Errorf("block engine returned no tip accounts")
	}
	tipAccountStr := cfg.TipAccount
	if tipAccountStr == "" {
		tipAccountStr = tipAccounts[0]
	}
	tipAccount, err := solana.PublicKeyFromBase58(tipAccountStr)
	if err != nil {
		return nil, fmt.Errorf("bad tip account %q: %w", tipAccountStr, err)
	}

	if err := w.preflight(ctx, payer, cfg); err != nil {
		return nil, err
	}

	// (1) block until the next jito-solana leader is close enough
	info, err := w.waitForLeaderSlot(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Both streams are owned for the rest of the run and torn down together,
	// partial teardown is not a valid resting state
	results, err := w.Engine.SubscribeBundleResults()
	if err != nil {
		return nil, err
	}
	pending, err := w.Engine.SubscribePendingTransactions([]string{payer.String()})
	if err != nil {
		_ = results.Close()
		return nil, err
	}
	defer func() {
		_ = results.Close()
		_ = pending.Close()
	}()

	// (2) fetch the blockhash immediately before building to minimize the
	// window in which it can go stale before submission
	blockhash, err := w.Ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	// (3) build and sign
	b, err := Build(Params{
		Payer:               cfg.Payer,
		Blockhash:           blockhash,
		Recipient:           cfg.Recipient,
		Lamports:            cfg.Lamports,
		Message:             cfg.Message,
		TipAccount:          tipAccount,
		TipLamports:         cfg.TipLamports,
		ApprovedTipAccounts: tipAccounts,
		TxCount:             cfg.TxCount,
	})
	if err != nil {
		return nil, err
	}
	w.Log.Info("Built bundle", "num_txs", cfg.TxCount, "blockhash", blockhash, "signatures", b.SignatureStrings())

	// (4) exactly one transmission attempt
	submittedAt := time.Now()
	bundleId, err := w.Engine.SubmitBundle(b.Wire)
	if err != nil {
		return nil, err
	}

	// (5) wait for a terminal result
	correlator := &Correlator{
		BundleId:    bundleId,
		Results:     results.Events(),
		Packets:     pending.Packets(),
		Prober:      w.Engine,
		Regions:     cfg.Regions,
		WaitTimeout: cfg.WaitTimeout,
		Deadline:    cfg.Deadline,
		Log:         w.Log,
	}
	status, reason, err := correlator.Wait(ctx)
	if err != nil {
		return nil, err
	}

	w.record(info, cfg, b, bundleId, status, reason, submittedAt)

	return &Outcome{
		Status:     status,
		Reason:     reason,
		BundleId:   bundleId,
		Signatures: b.Signatures,
		SlotInfo:   info,
	}, nil
}

// preflight checks the payer can afford the bundle before any waiting starts.
func (w *Workflow) preflight(ctx context.Context, payer solana.PublicKey, cfg Config) error {
	balance, err := w.Ledger.GetBalance(ctx, payer)
	if err != nil {
		return err
	}
	perTx := cfg.Lamports + cfg.TipLamports + config.LAMPORTS_PER_SIGNATURE
	need := perTx * uint64(cfg.TxCount)
	w.Log.Info("Payer balance",
		"pubkey", payer,
		"lamports", balance,
		"sol", utils.LamportsToSol(balance),
		"needed", need,
	)
	if balance < need {
		return fmt.Errorf("%w: have %d lamports, need %d", ErrInsufficientBalance, balance, need)
	}
	return nil
}

func (w *Workflow) waitForLeaderSlot(ctx context.Context, cfg Config) (*types.SlotInfo, error) {
	for {
		info, err := w.Engine.GetNextScheduledLeader(cfg.Regions)
		if err != nil {
			return nil, err
		}
		slotsUntil := info.SlotsUntil()
		w.Log.Info("Next jito leader",
			"slots_until", slotsUntil,
			"slot", info.NextLeaderSlot,
			"identity", info.NextLeaderIdentity,
			"region", info.NextLeaderRegion,
		)
		if slotsUntil <= cfg.ProximitySlots {
			return info, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.PollInterval):
		}
	}
}

func (w *Workflow) record(info *types.SlotInfo, cfg Config, b *Bundle, bundleId string, status types.FinalStatus, reason string, submittedAt time.Time) {
	if w.Store == nil {
		return
	}
	sub := &types.Submission{
		BundleId:    bundleId,
		Signatures:  b.SignatureStrings(),
		CurrentSlot: info.CurrentSlot,
		LeaderSlot:  info.NextLeaderSlot,
		Region:      info.NextLeaderRegion,
		TxCount:     uint64(cfg.TxCount),
		TipLamports: cfg.TipLamports,
		Status:      status.String(),
		Reason:      reason,
		SubmittedAt: submittedAt,
		ResolvedAt:  time.Now(),
	}
	if err := w.Store.InsertSubmissions(types.Submissions{sub}); err != nil {
		w.Log.Error("Failed to record submission", "bundle_id", bundleId, "err", err)
	}
}
