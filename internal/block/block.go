package block

import (
	"bytes"
	"fmt"
	"io"

	"spvnode/internal/encoding"
	"spvnode/internal/script"
	"spvnode/internal/transactions"
)

// witnessCommitmentMagic is the 6-byte prefix (OP_RETURN OP_PUSH36
// 0xaa21a9ed) identifying a coinbase witness-commitment output.
var witnessCommitmentMagic = []byte{script.OP_RETURN, 0x24, 0xaa, 0x21, 0xa9, 0xed}

// FullBlock is a header plus its transaction list, coinbase first.
// Invariants enforced at ParseFullBlock: (I1) the header's merkle root
// must equal the recomputed root over txids, coinbase first; (I2) if
// any transaction was serialized with segwit data, the coinbase must
// carry a witness reserved value and one of its outputs must commit to
// the witness root.
type FullBlock struct {
	Header *Header
	Txs    []*transactions.Transaction // Txs[0] is the coinbase
}

func ParseFullBlock(r io.Reader) (*FullBlock, error) {
	header, err := ParseHeader(r)
	if err != nil {
		return nil, fmt.Errorf("block parse error (header): %w", err)
	}

	txCount, err := encoding.ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("block parse error (tx count): %w", err)
	}
	if txCount == 0 {
		return nil, fmt.Errorf("block parse error: zero transactions (missing coinbase)")
	}

	txs := make([]*transactions.Transaction, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx, err := transactions.ParseTransaction(r)
		if err != nil {
			return nil, fmt.Errorf("block parse error (tx %d/%d): %w", i, txCount, err)
		}
		txs[i] = &tx
	}

	fb := &FullBlock{Header: &header, Txs: txs}

	if err := fb.validateMerkleRoot(); err != nil {
		return nil, err
	}
	if err := fb.validateWitnessCommitment(); err != nil {
		return nil, err
	}

	return fb, nil
}

// Coinbase returns the block's first transaction.
func (fb *FullBlock) Coinbase() *transactions.Transaction {
	return fb.Txs[0]
}

// Serialize re-encodes the block as header + compact-size tx count +
// transactions, each with witness data when present.
func (fb *FullBlock) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(fb.Header.Serialize())

	count, err := encoding.EncodeVarInt(uint64(len(fb.Txs)))
	if err != nil {
		return nil, err
	}
	buf.Write(count)

	for i, tx := range fb.Txs {
		raw, err := tx.Serialize()
		if err != nil {
			return nil, fmt.Errorf("block serialize error (tx %d): %w", i, err)
		}
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// hasWitnessData reports whether any transaction in the block, the
// coinbase included, was parsed with the segwit marker and flag.
func (fb *FullBlock) hasWitnessData() bool {
	for _, tx := range fb.Txs {
		if tx.HasWitness {
			return true
		}
	}
	return false
}

// validateMerkleRoot recomputes the merkle root over txids (coinbase
// first) per §4.4 and compares it against the header.
func (fb *FullBlock) validateMerkleRoot() error {
	hashes := make([][]byte, len(fb.Txs))
	for i, tx := range fb.Txs {
		txid, err := tx.RawTxID()
		if err != nil {
			return fmt.Errorf("block merkle check: tx %d hash: %w", i, err)
		}
		hashes[i] = txid[:]
	}

	root := encoding.MerkleRoot(hashes)
	if !bytes.Equal(root, fb.Header.MerkleRoot[:]) {
		return fmt.Errorf("block merkle root mismatch: header has %x, computed %x", fb.Header.MerkleRoot, root)
	}
	return nil
}

// validateWitnessCommitment checks I2: when any transaction in the
// block carries witness data, the coinbase must carry an OP_RETURN
// output committing to sha256d(witnessRoot || reservedValue), where
// witnessRoot is the merkle root of {32 zero bytes} ∪ {wtxid of each
// segwit tx}.
func (fb *FullBlock) validateWitnessCommitment() error {
	if !fb.hasWitnessData() {
		return nil
	}

	coinbase := fb.Coinbase()
	reserved, ok := coinbaseWitnessReserved(coinbase)
	if !ok {
		return fmt.Errorf("block witness commitment check: segwit block has no witness-bearing coinbase input")
	}

	hashes := make([][]byte, 0, len(fb.Txs))
	hashes = append(hashes, make([]byte, 32)) // coinbase's own wtxid is defined as zero

	for i := 1; i < len(fb.Txs); i++ {
		wtxid, err := fb.Txs[i].RawWTxID()
		if err != nil {
			return fmt.Errorf("block witness commitment check: tx %d wtxid: %w", i, err)
		}
		hashes = append(hashes, wtxid[:])
	}

	witnessRoot := encoding.MerkleRoot(hashes)
	commitment := encoding.Hash256(append(append([]byte{}, witnessRoot...), reserved...))

	for _, out := range coinbase.Outputs {
		raw, err := out.RawScript()
		if err != nil || len(raw) < len(witnessCommitmentMagic)+len(commitment) {
			continue
		}
		if !bytes.HasPrefix(raw, witnessCommitmentMagic) {
			continue
		}
		if bytes.Equal(raw[len(witnessCommitmentMagic):len(witnessCommitmentMagic)+len(commitment)], commitment) {
			return nil
		}
	}

	return fmt.Errorf("block witness commitment mismatch: no coinbase output commits to %x", commitment)
}

// coinbaseWitnessReserved returns the coinbase input's witness reserved
// value (its sole witness stack item, conventionally 32 zero bytes).
func coinbaseWitnessReserved(coinbase *transactions.Transaction) ([]byte, bool) {
	if len(coinbase.Inputs) == 0 {
		return nil, false
	}
	witness := coinbase.Inputs[0].Witness
	if len(witness) == 0 {
		return nil, false
	}
	return witness[0], true
}
