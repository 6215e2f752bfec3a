package chainstate

import (
	"sync"

	"spvnode/internal/block"
	"spvnode/internal/transactions"
)

// UTXOSet is the unspent-output set: tx-id -> (output-index -> TxOut).
// It implements transactions.PrevOutputSource so fee and sighash
// computation can run directly against live chain state.
type UTXOSet struct {
	mu  sync.Mutex
	set map[[32]byte]map[uint32]transactions.TxOut
}

func NewUTXOSet() *UTXOSet {
	return &UTXOSet{set: make(map[[32]byte]map[uint32]transactions.TxOut)}
}

// PrevOutput implements transactions.PrevOutputSource.
func (u *UTXOSet) PrevOutput(txid [32]byte, index uint32) (transactions.TxOut, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	outputs, ok := u.set[txid]
	if !ok {
		return transactions.TxOut{}, false
	}
	out, ok := outputs[index]
	return out, ok
}

// Update applies a confirmed block: every spent input is removed,
// every output is added under its producing transaction's id. Inner
// maps are removed once emptied so Len() reflects live UTXOs only.
func (u *UTXOSet) Update(fb *block.FullBlock) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, tx := range fb.Txs {
		for _, in := range tx.Inputs {
			if in.IsCoinbaseInput() {
				continue
			}
			outputs, ok := u.set[in.PrevTx]
			if !ok {
				continue
			}
			delete(outputs, in.PrevIdx)
			if len(outputs) == 0 {
				delete(u.set, in.PrevTx)
			}
		}
	}

	for _, tx := range fb.Txs {
		txid, err := tx.Hash()
		if err != nil {
			continue
		}
		for i, out := range tx.Outputs {
			if u.set[txid] == nil {
				u.set[txid] = make(map[uint32]transactions.TxOut)
			}
			u.set[txid][uint32(i)] = out
		}
	}
}

// Len reports the total number of unspent outputs across all txids.
func (u *UTXOSet) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	total := 0
	for _, outputs := range u.set {
		total += len(outputs)
	}
	return total
}

// ForPkScript returns every UTXO whose output script matches pkScript
// byte-for-byte, the lookup the wallet RPC's get_txs uses (§4.10).
func (u *UTXOSet) ForPkScript(pkScript []byte) []transactions.TxOut {
	u.mu.Lock()
	defer u.mu.Unlock()

	var matches []transactions.TxOut
	for _, outputs := range u.set {
		for _, out := range outputs {
			raw, err := out.RawScript()
			if err != nil {
				continue
			}
			if len(raw) == len(pkScript) && string(raw) == string(pkScript) {
				matches = append(matches, out)
			}
		}
	}
	return matches
}
