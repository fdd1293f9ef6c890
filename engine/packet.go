package engine

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// DecodePacket decodes one raw mempool packet into a transaction. Malformed
// packets decode to nil and are dropped, the feed is observational only.
func DecodePacket(raw []byte) *solana.Transaction {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil
	}
	if len(tx.Signatures) == 0 {
		return nil
	}
	return tx
}

// DecodePackets decodes a batch, keeping only well-formed transactions.
func DecodePackets(batch [][]byte) []*solana.Transaction {
	txs := make([]*solana.Transaction, 0, len(batch))
	for _, raw := range batch {
		if tx := DecodePacket(raw); tx != nil {
			txs = append(txs, tx)
		}
	}
	return txs
}
