package transactions

// OutpointKey identifies a previous output by txid and index, used as a
// map key by MapPrevOutputSource.
type OutpointKey struct {
	TxID  [32]byte
	Index uint32
}

// MapPrevOutputSource is a trivial in-memory PrevOutputSource, used by
// the tests (the UTXO set itself satisfies the same interface for
// node-side fee computation).
type MapPrevOutputSource map[OutpointKey]TxOut

func (m MapPrevOutputSource) PrevOutput(txid [32]byte, index uint32) (TxOut, bool) {
	out, ok := m[OutpointKey{TxID: txid, Index: index}]
	return out, ok
}
