package network

import (
	"bytes"

	"spvnode/internal/block"
	"spvnode/internal/transactions"
)

// TxMessage wraps a single transaction, wire-identical to the
// transaction's own segwit-aware serialization.
type TxMessage struct {
	Tx *transactions.Transaction
}

func ParseTxMessage(payload []byte) (TxMessage, error) {
	tx, err := transactions.ParseTransaction(bytes.NewReader(payload))
	if err != nil {
		return TxMessage{}, err
	}
	return TxMessage{Tx: &tx}, nil
}

func (tm *TxMessage) Serialize() ([]byte, error) { return tm.Tx.Serialize() }
func (tm TxMessage) Command() string             { return "tx" }

// BlockMessage wraps a full block (header + transactions).
type BlockMessage struct {
	Block *block.FullBlock
}

func ParseBlockMessage(payload []byte) (BlockMessage, error) {
	fb, err := block.ParseFullBlock(bytes.NewReader(payload))
	if err != nil {
		return BlockMessage{}, err
	}
	return BlockMessage{Block: fb}, nil
}

func (bm *BlockMessage) Serialize() ([]byte, error) { return bm.Block.Serialize() }
func (bm BlockMessage) Command() string             { return "block" }
