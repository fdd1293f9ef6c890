package bundle

import (
	"errors"
	"fmt"

	MapSet "github.com/deckarep/golang-set/v2"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/memo"
	"github.com/gagliardetto/solana-go/programs/system"

	"searcher/config"
)

var (
	// ErrInvalidBundleSize means the requested transaction count is outside
	// 1..MAX_BUNDLE_SIZE. Config error, never retried.
	ErrInvalidBundleSize = errors.New("bundle size must be between 1 and 5 transactions")

	// ErrUnapprovedTipAccount means the tip account is not in the engine's set.
	ErrUnapprovedTipAccount = errors.New("tip account is not approved by the block engine")

	// ErrSigning means key material for a required signer was missing.
	ErrSigning = errors.New("failed to sign bundle transaction")
)

// Params describes one bundle to build. Every transaction gets the caller's
// instructions plus one mandatory tip transfer, and all transactions share
// one blockhash so the whole bundle expires together.
type Params struct {
	Payer     solana.PrivateKey
	Blockhash solana.Hash

	// Optional per-transaction payload: a lamport transfer and/or a memo
	Recipient solana.PublicKey
	Lamports  uint64
	Message   string

	TipAccount  solana.PublicKey
	TipLamports uint64
	// Engine-approved tip accounts. When non-empty, TipAccount must be a member.
	ApprovedTipAccounts []string

	TxCount int
}

// Bundle is an ordered, atomically executed group of signed transactions.
// Immutable after Build. Identity for logging and history is the ordered list
// of first-signer signatures; the engine's ack id is used for correlation.
type Bundle struct {
	Txs        []*solana.Transaction
	Wire       [][]byte
	Signatures []solana.Signature
}

// Build assembles, signs and serializes the bundle. In-memory only, the
// network is not touched here.
func Build(p Params) (*Bundle, error) {
	if p.TxCount < 1 || p.TxCount > config.MAX_BUNDLE_SIZE {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBundleSize, p.TxCount)
	}
	if p.TipAccount.IsZero() {
		return nil, fmt.Errorf("%w: empty tip account", ErrUnapprovedTipAccount)
	}
	if len(p.ApprovedTipAccounts) > 0 {
		approved := MapSet.NewSet[string]()
		for _, a := range p.ApprovedTipAccounts {
			approved.Add(a)
		}
		if !approved.Contains(p.TipAccount.String()) {
			return nil, fmt.Errorf("%w: %s", ErrUnapprovedTipAccount, p.TipAccount)
		}
	}

	payer := p.Payer.PublicKey()
	b := &Bundle{
		Txs:        make([]*solana.Transaction, 0, p.TxCount),
		Wire:       make([][]byte, 0, p.TxCount),
		Signatures: make([]solana.Signature, 0, p.TxCount),
	}

	for i := 0; i < p.TxCount; i++ {
		instructions := make([]solana.Instruction, 0, 3)
		if p.Message != "" {
			note := fmt.Sprintf("bundle %d: %s", i, p.Message)
			instructions = append(instructions,
				memo.NewMemoInstruction([]byte(note), payer).Build())
		}
		if p.Lamports > 0 && !p.Recipient.IsZero() {
			instructions = append(instructions,
				system.NewTransferInstruction(p.Lamports, payer, p.Recipient).Build())
		}
		// The tip is what buys the bundle its place in the leader's block
		instructions = append(instructions,
			system.NewTransferInstruction(p.TipLamports, payer, p.TipAccount).Build())

		tx, err := solana.NewTransaction(
			instructions,
			p.Blockhash,
			solana.TransactionPayer(payer),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build transaction %d: %w", i, err)
		}

		_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
			if key.Equals(payer) {
				return &p.Payer
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: tx %d: %v", ErrSigning, i, err)
		}

		wire, err := tx.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to serialize transaction %d: %w", i, err)
		}

		b.Txs = append(b.Txs, tx)
		b.Wire = append(b.Wire, wire)
		b.Signatures = append(b.Signatures, tx.Signatures[0])
	}

	return b, nil
}

// SignatureStrings returns the bundle identity as base58 strings.
func (b *Bundle) SignatureStrings() []string {
	out := make([]string, 0, len(b.Signatures))
	for _, sig := range b.Signatures {
		out = append(out, sig.String())
	}
	return out
}
