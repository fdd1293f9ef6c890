package bundle

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"searcher/logger"
)

func init() {
	logger.InitLogs("bundle-test")
}

func testBlockhash() solana.Hash {
	var h solana.Hash
	copy(h[:], []byte("test-blockhash-0123456789abcdef0"))
	return h
}

// tipTransfers returns the lamport amounts of every system transfer in tx
// whose destination is dest.
func tipTransfers(t *testing.T, tx *solana.Transaction, dest solana.PublicKey) []uint64 {
	t.Helper()
	amounts := make([]uint64, 0, 1)
	for _, ci := range tx.Message.Instructions {
		prog, err := tx.Message.Program(ci.ProgramIDIndex)
		if err != nil {
			t.Fatalf("resolve program id: %v", err)
		}
		if !prog.Equals(solana.SystemProgramID) {
			continue
		}
		if len(ci.Accounts) < 2 || len(ci.Data) < 12 {
			continue
		}
		if !tx.Message.AccountKeys[ci.Accounts[1]].Equals(dest) {
			continue
		}
		// system transfer data: u32 instruction index + u64 lamports, little endian
		amounts = append(amounts, binary.LittleEndian.Uint64(ci.Data[4:12]))
	}
	return amounts
}

func TestBuildBundleSizes(t *testing.T) {
	payer, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	tipAccount := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()

	for n := 1; n <= 5; n++ {
		b, err := Build(Params{
			Payer:               payer,
			Blockhash:           testBlockhash(),
			Recipient:           recipient,
			Lamports:            1000,
			Message:             "hello world",
			TipAccount:          tipAccount,
			TipLamports:         777,
			ApprovedTipAccounts: []string{tipAccount.String()},
			TxCount:             n,
		})
		if err != nil {
			t.Fatalf("Build(n=%d) failed: %v", n, err)
		}
		if len(b.Txs) != n || len(b.Wire) != n || len(b.Signatures) != n {
			t.Fatalf("Build(n=%d): got %d txs, %d wire, %d sigs", n, len(b.Txs), len(b.Wire), len(b.Signatures))
		}
		for i, tx := range b.Txs {
			if tx.Message.RecentBlockhash != testBlockhash() {
				t.Errorf("tx %d does not share the bundle blockhash", i)
			}
			tips := tipTransfers(t, tx, tipAccount)
			if len(tips) != 1 {
				t.Fatalf("tx %d: expected exactly 1 tip transfer, got %d", i, len(tips))
			}
			if tips[0] != 777 {
				t.Errorf("tx %d: tip amount = %d, want 777", i, tips[0])
			}
			if tx.Signatures[0].IsZero() {
				t.Errorf("tx %d is unsigned", i)
			}
			if len(b.Wire[i]) == 0 {
				t.Errorf("tx %d has empty wire form", i)
			}
		}
	}
}

func TestBuildBundleSizeBounds(t *testing.T) {
	payer, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	tipAccount := solana.NewWallet().PublicKey()

	for _, n := range []int{0, 6, -1} {
		_, err := Build(Params{
			Payer:       payer,
			Blockhash:   testBlockhash(),
			Message:     "out of bounds",
			TipAccount:  tipAccount,
			TipLamports: 1,
			TxCount:     n,
		})
		if !errors.Is(err, ErrInvalidBundleSize) {
			t.Errorf("Build(n=%d): expected ErrInvalidBundleSize, got %v", n, err)
		}
	}

	for _, n := range []int{1, 5} {
		if _, err := Build(Params{
			Payer:       payer,
			Blockhash:   testBlockhash(),
			Message:     "boundary",
			TipAccount:  tipAccount,
			TipLamports: 1,
			TxCount:     n,
		}); err != nil {
			t.Errorf("Build(n=%d): unexpected error: %v", n, err)
		}
	}
}

func TestBuildRejectsUnapprovedTipAccount(t *testing.T) {
	payer, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	tipAccount := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()

	_, err = Build(Params{
		Payer:               payer,
		Blockhash:           testBlockhash(),
		Message:             "bad tip",
		TipAccount:          tipAccount,
		TipLamports:         1,
		ApprovedTipAccounts: []string{other.String()},
		TxCount:             1,
	})
	if !errors.Is(err, ErrUnapprovedTipAccount) {
		t.Errorf("expected ErrUnapprovedTipAccount, got %v", err)
	}
}

func TestBuildMemoOnlyBundle(t *testing.T) {
	payer, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	tipAccount := solana.NewWallet().PublicKey()

	// No recipient: each tx is memo + tip only
	b, err := Build(Params{
		Payer:       payer,
		Blockhash:   testBlockhash(),
		Message:     "memo only",
		TipAccount:  tipAccount,
		TipLamports: 42,
		TxCount:     2,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for i, tx := range b.Txs {
		if len(tx.Message.Instructions) != 2 {
			t.Errorf("tx %d: expected 2 instructions (memo+tip), got %d", i, len(tx.Message.Instructions))
		}
	}
}
