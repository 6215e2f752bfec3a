package mempool

import (
	"sync"

	"spvnode/internal/transactions"
)

// Mempool holds unconfirmed transactions keyed by txid, guarded by its own
// mutex per the node's queue < stream < mempool < utxo < chain lock order.
type Mempool struct {
	txs map[[32]byte]*transactions.Transaction
	mu  sync.Mutex
}

func New() *Mempool {
	return &Mempool{
		txs: make(map[[32]byte]*transactions.Transaction),
	}
}

func (m *Mempool) Add(tx *transactions.Transaction) error {
	txid, err := tx.Hash()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.txs[txid] = tx
	m.mu.Unlock()
	return nil
}

func (m *Mempool) Get(txid [32]byte) (*transactions.Transaction, bool) {
	m.mu.Lock()
	tx, exists := m.txs[txid]
	m.mu.Unlock()
	return tx, exists
}

func (m *Mempool) Remove(txid [32]byte) {
	m.mu.Lock()
	delete(m.txs, txid)
	m.mu.Unlock()
}

// Update drops every transaction in the mempool whose txid now appears in a
// confirmed block, maintaining the invariant that no mempool entry is also
// confirmed.
func (m *Mempool) Update(blockTxids [][32]byte) {
	m.mu.Lock()
	for _, txid := range blockTxids {
		delete(m.txs, txid)
	}
	m.mu.Unlock()
}

func (m *Mempool) All() []*transactions.Transaction {
	m.mu.Lock()
	result := make([]*transactions.Transaction, 0, len(m.txs))
	for _, tx := range m.txs {
		result = append(result, tx)
	}
	m.mu.Unlock()
	return result
}

func (m *Mempool) Len() int {
	m.mu.Lock()
	n := len(m.txs)
	m.mu.Unlock()
	return n
}
