// Package txfilter implements the wallet-facing transaction matching
// and summarization behind get_txs (§4.10): partitioning a set of
// candidate transactions into "send" and "recv" relative to a wallet's
// pubkey/pk_script pair, and computing the pending-change delta a
// wallet should apply for its own outgoing mempool transactions.
package txfilter

import (
	"bytes"
	"time"

	"spvnode/internal/chainstate"
	"spvnode/internal/mempool"
	"spvnode/internal/script"
	"spvnode/internal/transactions"
)

// WalletTx is a transaction plus the date it should be displayed
// under: the owning block's header timestamp for a confirmed tx, or
// the wall-clock time of receipt for a mempool tx.
type WalletTx struct {
	Tx   *transactions.Transaction
	Date [10]byte // ASCII "YYYY-MM-DD"
}

func NewWalletTx(tx *transactions.Transaction, when time.Time) WalletTx {
	var date [10]byte
	copy(date[:], when.UTC().Format("2006-01-02"))
	return WalletTx{Tx: tx, Date: date}
}

// UsedTxout is a previously-seen output plus the signed balance delta
// it represents for a pending (unconfirmed) change computation: a
// spent previous output is negative, a self-owned new output is
// positive.
type UsedTxout struct {
	TxOut transactions.TxOut
	Delta int64
}

// IsSpend reports whether tx has an input satisfying pubkey: a legacy
// scriptSig whose final data push is pubkey, or a witness stack whose
// final item is pubkey — the position a standard P2PKH or P2WPKH
// spend places it in.
func IsSpend(tx *transactions.Transaction, pubkey [33]byte) bool {
	for _, in := range tx.Inputs {
		if last := lastDataPush(in.ScriptSig.CommandStack); last != nil && bytes.Equal(last, pubkey[:]) {
			return true
		}
		if n := len(in.Witness); n > 0 && bytes.Equal(in.Witness[n-1], pubkey[:]) {
			return true
		}
	}
	return false
}

func lastDataPush(cmds []script.ScriptCommand) []byte {
	for i := len(cmds) - 1; i >= 0; i-- {
		if cmds[i].IsData {
			return cmds[i].Data
		}
	}
	return nil
}

// IsReceive reports whether any output of tx pays pkScript.
func IsReceive(tx *transactions.Transaction, pkScript []byte) bool {
	for i := range tx.Outputs {
		raw, err := tx.Outputs[i].RawScript()
		if err != nil {
			continue
		}
		if bytes.Equal(raw, pkScript) {
			return true
		}
	}
	return false
}

// Partition is the result of scanning one transaction source
// (confirmed blocks or the mempool) for a wallet, each entry already
// dated per WalletTx's rule.
type Partition struct {
	Send []WalletTx
	Recv []WalletTx
}

// ScanChain walks confirmed blocks from the tip backward, stopping
// once a block's header time is at or before lastUpdate, partitioning
// every transaction it finds and dating each by its owning block.
func ScanChain(chain *chainstate.Chain, pkScript []byte, pubkey [33]byte, lastUpdate time.Time) Partition {
	var p Partition
	for _, fb := range chain.AllDescending() {
		if !fb.Header.Time().After(lastUpdate) {
			break
		}
		for _, tx := range fb.Txs {
			classify(tx, pkScript, pubkey, fb.Header.Time(), &p)
		}
	}
	return p
}

// ScanMempool partitions every transaction currently held in pool,
// dated by wall-clock time of this scan (an approximation of receipt
// time: the mempool does not separately track arrival timestamps).
func ScanMempool(pool *mempool.Mempool, pkScript []byte, pubkey [33]byte) Partition {
	var p Partition
	now := time.Now()
	for _, tx := range pool.All() {
		classify(tx, pkScript, pubkey, now, &p)
	}
	return p
}

func classify(tx *transactions.Transaction, pkScript []byte, pubkey [33]byte, when time.Time, p *Partition) {
	if IsSpend(tx, pubkey) {
		p.Send = append(p.Send, NewWalletTx(tx, when))
	}
	if IsReceive(tx, pkScript) {
		p.Recv = append(p.Recv, NewWalletTx(tx, when))
	}
}

// PendingChange computes the used-txout deltas for a wallet's own
// outgoing mempool transactions: every previous output they spend
// (negative, since it is no longer spendable once the tx confirms)
// and every output they create back to the wallet itself (positive).
func PendingChange(sendTxs []WalletTx, utxo *chainstate.UTXOSet, pkScript []byte) []UsedTxout {
	var used []UsedTxout
	for _, wtx := range sendTxs {
		tx := wtx.Tx
		for _, in := range tx.Inputs {
			if in.IsCoinbaseInput() {
				continue
			}
			if out, ok := utxo.PrevOutput(in.PrevTx, in.PrevIdx); ok {
				used = append(used, UsedTxout{TxOut: out, Delta: -out.Amount})
			}
		}
		for i := range tx.Outputs {
			raw, err := tx.Outputs[i].RawScript()
			if err != nil || !bytes.Equal(raw, pkScript) {
				continue
			}
			used = append(used, UsedTxout{TxOut: tx.Outputs[i], Delta: tx.Outputs[i].Amount})
		}
	}
	return used
}
