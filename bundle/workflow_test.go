package bundle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"searcher/engine"
	"searcher/logger"
	"searcher/types"
)

type fakeResultStream struct {
	ch     chan types.BundleResult
	mu     sync.Mutex
	closed bool
}

func (s *fakeResultStream) Events() <-chan types.BundleResult { return s.ch }
func (s *fakeResultStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
func (s *fakeResultStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakePendingStream struct {
	ch     chan [][]byte
	mu     sync.Mutex
	closed bool
}

func (s *fakePendingStream) Packets() <-chan [][]byte { return s.ch }
func (s *fakePendingStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
func (s *fakePendingStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeEngine struct {
	mu          sync.Mutex
	infos       []types.SlotInfo // successive probe responses, last one repeats
	probeCalls  int
	tipAccounts []string
	submitCalls int
	results     *fakeResultStream
	pending     *fakePendingStream
}

func (e *fakeEngine) GetNextScheduledLeader(regions []string) (*types.SlotInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.probeCalls
	if idx >= len(e.infos) {
		idx = len(e.infos) - 1
	}
	e.probeCalls++
	info := e.infos[idx]
	return &info, nil
}

func (e *fakeEngine) GetConnectedLeaders() (map[string][]uint64, error) { return nil, nil }

func (e *fakeEngine) GetTipAccounts() ([]string, error) { return e.tipAccounts, nil }

func (e *fakeEngine) SubmitBundle(txs [][]byte) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.submitCalls++
	return "bundle-1", nil
}

func (e *fakeEngine) SubscribeBundleResults() (engine.BundleResultStream, error) {
	return e.results, nil
}

func (e *fakeEngine) SubscribePendingTransactions(accounts []string) (engine.PendingTxStream, error) {
	return e.pending, nil
}

func (e *fakeEngine) probeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.probeCalls
}

type fakeLedger struct {
	balance   uint64
	blockhash solana.Hash
}

func (l *fakeLedger) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	return l.balance, nil
}

func (l *fakeLedger) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return l.blockhash, nil
}

type fakeStore struct {
	mu   sync.Mutex
	subs types.Submissions
}

func (s *fakeStore) Close() error                { return nil }
func (s *fakeStore) EnsureDatabaseExists() error { return nil }
func (s *fakeStore) CreateTables() error         { return nil }
func (s *fakeStore) DropTables() error           { return nil }
func (s *fakeStore) Exec(query string, args ...any) error {
	return nil
}
func (s *fakeStore) InsertSubmissions(subs types.Submissions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, subs...)
	return nil
}
func (s *fakeStore) QueryRecentSubmissions(limit uint) (types.Submissions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs, nil
}
func (s *fakeStore) QueryLastSubmission() (*types.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) == 0 {
		return nil, nil
	}
	return s.subs[len(s.subs)-1], nil
}

func testWorkflow(t *testing.T, eng *fakeEngine, ledger *fakeLedger) *Workflow {
	t.Helper()
	return &Workflow{
		Engine: eng,
		Ledger: ledger,
		Log:    logger.GlobalLogger,
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	payer, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	return Config{
		Payer:        payer,
		Message:      "hello",
		TxCount:      2,
		TipLamports:  100,
		PollInterval: time.Millisecond,
		WaitTimeout:  50 * time.Millisecond,
		Deadline:     2 * time.Second,
	}
}

func TestWorkflowWaitsForLeaderProximity(t *testing.T) {
	eng := &fakeEngine{
		infos: []types.SlotInfo{
			{CurrentSlot: 100, NextLeaderSlot: 110}, // 10 slots away, keep polling
			{CurrentSlot: 100, NextLeaderSlot: 106},
			{CurrentSlot: 100, NextLeaderSlot: 101}, // within threshold, go
		},
		tipAccounts: []string{solana.NewWallet().PublicKey().String()},
		results:     &fakeResultStream{ch: make(chan types.BundleResult, 1)},
		pending:     &fakePendingStream{ch: make(chan [][]byte)},
	}
	eng.results.ch <- types.BundleResult{BundleId: "bundle-1", Status: types.BundleAccepted}
	ledger := &fakeLedger{balance: 1_000_000_000, blockhash: testBlockhash()}

	outcome, err := testWorkflow(t, eng, ledger).Run(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.Status != types.StatusConfirmed {
		t.Errorf("got status=%s, want confirmed", outcome.Status)
	}
	if outcome.BundleId != "bundle-1" {
		t.Errorf("got bundle id %q", outcome.BundleId)
	}
	if len(outcome.Signatures) != 2 {
		t.Errorf("expected 2 signatures, got %d", len(outcome.Signatures))
	}
	if n := eng.probeCount(); n < 3 {
		t.Errorf("expected at least 3 leader polls before proximity, got %d", n)
	}
	if eng.submitCalls != 1 {
		t.Errorf("expected exactly 1 submission, got %d", eng.submitCalls)
	}
	if !eng.results.isClosed() || !eng.pending.isClosed() {
		t.Errorf("subscriptions leaked: results closed=%v pending closed=%v",
			eng.results.isClosed(), eng.pending.isClosed())
	}
}

func TestWorkflowInsufficientBalance(t *testing.T) {
	eng := &fakeEngine{
		infos:       []types.SlotInfo{{CurrentSlot: 100, NextLeaderSlot: 101}},
		tipAccounts: []string{solana.NewWallet().PublicKey().String()},
		results:     &fakeResultStream{ch: make(chan types.BundleResult)},
		pending:     &fakePendingStream{ch: make(chan [][]byte)},
	}
	ledger := &fakeLedger{balance: 10, blockhash: testBlockhash()}

	_, err := testWorkflow(t, eng, ledger).Run(context.Background(), testConfig(t))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if eng.submitCalls != 0 {
		t.Errorf("nothing should be submitted on a failed preflight, got %d submissions", eng.submitCalls)
	}
}

func TestWorkflowConnectionLost(t *testing.T) {
	eng := &fakeEngine{
		infos:       []types.SlotInfo{{CurrentSlot: 100, NextLeaderSlot: 101}},
		tipAccounts: []string{solana.NewWallet().PublicKey().String()},
		results:     &fakeResultStream{ch: make(chan types.BundleResult)},
		pending:     &fakePendingStream{ch: make(chan [][]byte)},
	}
	// Result stream dies mid-wait while the pending stream stays open
	close(eng.results.ch)
	ledger := &fakeLedger{balance: 1_000_000_000, blockhash: testBlockhash()}

	outcome, err := testWorkflow(t, eng, ledger).Run(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.Status != types.StatusConnectionLost {
		t.Errorf("got status=%s, want connection-lost", outcome.Status)
	}
	if !eng.results.isClosed() || !eng.pending.isClosed() {
		t.Errorf("both subscriptions must be released: results closed=%v pending closed=%v",
			eng.results.isClosed(), eng.pending.isClosed())
	}
}

func TestWorkflowRecordsRejectedSubmission(t *testing.T) {
	eng := &fakeEngine{
		infos:       []types.SlotInfo{{CurrentSlot: 100, NextLeaderSlot: 101, NextLeaderRegion: "amsterdam"}},
		tipAccounts: []string{solana.NewWallet().PublicKey().String()},
		results:     &fakeResultStream{ch: make(chan types.BundleResult, 1)},
		pending:     &fakePendingStream{ch: make(chan [][]byte)},
	}
	eng.results.ch <- types.BundleResult{BundleId: "bundle-1", Status: types.BundleRejected, Reason: "slot expired"}
	ledger := &fakeLedger{balance: 1_000_000_000, blockhash: testBlockhash()}

	store := &fakeStore{}
	w := testWorkflow(t, eng, ledger)
	w.Store = store

	outcome, err := w.Run(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.Status != types.StatusRejected || outcome.Reason != "slot expired" {
		t.Errorf("got status=%s reason=%q", outcome.Status, outcome.Reason)
	}

	if len(store.subs) != 1 {
		t.Fatalf("expected 1 recorded submission, got %d", len(store.subs))
	}
	sub := store.subs[0]
	if sub.BundleId != "bundle-1" || sub.Status != "rejected" || sub.Reason != "slot expired" {
		t.Errorf("bad submission record: %+v", sub)
	}
	if sub.Region != "amsterdam" || sub.TxCount != 2 {
		t.Errorf("bad submission context: %+v", sub)
	}
}
