package encoding

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// DisplayHash renders a wire-order (internal byte order) hash the way
// block explorers and log lines expect: reversed to display order and
// hex-encoded. Block and header hashes throughout this repo are kept
// in wire order; this is the one place that needs the reversal, so it
// borrows chainhash.Hash's String() rather than hand-rolling a byte
// reversal loop.
func DisplayHash(h [32]byte) string {
	return chainhash.Hash(h).String()
}
