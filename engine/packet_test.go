package engine

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

func signedWireTx(t *testing.T) ([]byte, solana.Signature) {
	t.Helper()
	payer, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, payer.PublicKey(), solana.NewWallet().PublicKey()).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(payer.PublicKey()),
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		return &payer
	}); err != nil {
		t.Fatal(err)
	}
	wire, err := tx.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	return wire, tx.Signatures[0]
}

func TestDecodePacketsDropsMalformed(t *testing.T) {
	wire, sig := signedWireTx(t)

	// One decodable packet and one garbage packet: exactly one transaction
	// must come out, with no error surfaced anywhere
	txs := DecodePackets([][]byte{
		{0xDE, 0xAD, 0xBE, 0xEF},
		wire,
	})
	if len(txs) != 1 {
		t.Fatalf("expected 1 decoded transaction, got %d", len(txs))
	}
	if txs[0].Signatures[0] != sig {
		t.Errorf("decoded signature mismatch: %s != %s", txs[0].Signatures[0], sig)
	}
}

func TestDecodePacketEmpty(t *testing.T) {
	if tx := DecodePacket(nil); tx != nil {
		t.Errorf("expected nil for empty packet, got %+v", tx)
	}
}
