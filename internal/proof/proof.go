// Package proof builds and verifies the wallet's proof-of-inclusion
// messages (§4.11): a depth-first, left-first Merkle branch over a
// block's txid list, distinct from the real P2P merkleblock wire
// format — this is the shape the node's wallet RPC loop sends back
// for get_proof, and the shape the wallet checks against the block's
// advertised Merkle root.
package proof

import (
	"fmt"

	"spvnode/internal/encoding"
)

// Branch is a proof that the transaction at Index is included in a
// block whose txid list has Total entries. Flags and Hashes are
// produced by a depth-first, left-first walk of the implied binary
// tree: a 1 flag means "descend, children follow"; a 0 flag means
// "this hash is supplied directly" (true of every leaf, including the
// target's own leaf).
type Branch struct {
	Total  int
	Index  int
	Flags  []byte
	Hashes [][32]byte
}

// Build constructs the proof for txids[index], txids being the
// block's transaction id list in order (coinbase first).
func Build(txids [][32]byte, index int) (Branch, error) {
	total := len(txids)
	if total == 0 {
		return Branch{}, fmt.Errorf("proof: empty transaction list")
	}
	if index < 0 || index >= total {
		return Branch{}, fmt.Errorf("proof: index %d out of range [0,%d)", index, total)
	}

	b := &builder{txids: txids, total: total, target: index}
	height := treeHeight(total)
	b.traverse(height, 0)
	return Branch{Total: total, Index: index, Flags: b.flags, Hashes: b.hashes}, nil
}

// Verify recomputes the Merkle root implied by br and reports whether
// it matches root and whether txid appears at the proven leaf
// position.
func Verify(root [32]byte, txid [32]byte, br Branch) (bool, error) {
	height := treeHeight(br.Total)
	v := &verifier{branch: br}
	got, err := v.reconstruct(height, 0)
	if err != nil {
		return false, err
	}
	if v.leafHash == nil {
		return false, fmt.Errorf("proof: target leaf never visited during reconstruction")
	}
	return got == root && *v.leafHash == txid, nil
}

// treeHeight is the number of levels between the leaves (height 0)
// and the root, for a tree of total leaves.
func treeHeight(total int) int {
	h := 0
	width := total
	for width > 1 {
		width = (width + 1) / 2
		h++
	}
	return h
}

// treeWidth is how many nodes exist at the given height (0 = leaves),
// matching the duplicate-last-if-odd padding rule applied level by
// level.
func treeWidth(total, height int) int {
	return (total + (1 << uint(height)) - 1) >> uint(height)
}

type builder struct {
	txids  [][32]byte
	total  int
	target int
	flags  []byte
	hashes [][32]byte
}

// calcHash computes the hash of the node at (height, pos), rebuilding
// bottom-up from the original leaves with the usual odd-duplication
// rule.
func (b *builder) calcHash(height, pos int) [32]byte {
	if height == 0 {
		return b.txids[pos]
	}
	left := b.calcHash(height-1, pos*2)
	right := left
	if pos*2+1 < treeWidth(b.total, height-1) {
		right = b.calcHash(height-1, pos*2+1)
	}
	return [32]byte(encoding.MerkleParent(left[:], right[:]))
}

// traverse decides, for the node at (height, pos), whether the target
// leaf falls under it; if so it descends (flag 1), otherwise it
// supplies the node's hash directly (flag 0). Leaves always supply
// their hash regardless of whether they are the target.
func (b *builder) traverse(height, pos int) {
	if height == 0 {
		b.flags = append(b.flags, 0)
		b.hashes = append(b.hashes, b.txids[pos])
		return
	}

	span := 1 << uint(height)
	lo, hi := pos*span, pos*span+span
	if hi > b.total {
		hi = b.total
	}
	covers := b.target >= lo && b.target < hi

	if !covers {
		b.flags = append(b.flags, 0)
		b.hashes = append(b.hashes, b.calcHash(height, pos))
		return
	}

	b.flags = append(b.flags, 1)
	b.traverse(height-1, pos*2)
	if pos*2+1 < treeWidth(b.total, height-1) {
		b.traverse(height-1, pos*2+1)
	}
}

type verifier struct {
	branch   Branch
	flagIdx  int
	hashIdx  int
	leafHash *[32]byte
}

func (v *verifier) reconstruct(height, pos int) ([32]byte, error) {
	if v.flagIdx >= len(v.branch.Flags) {
		return [32]byte{}, fmt.Errorf("proof: ran out of flag bits")
	}
	flag := v.branch.Flags[v.flagIdx]
	v.flagIdx++

	if height == 0 || flag == 0 {
		if v.hashIdx >= len(v.branch.Hashes) {
			return [32]byte{}, fmt.Errorf("proof: ran out of hashes")
		}
		h := v.branch.Hashes[v.hashIdx]
		v.hashIdx++
		if height == 0 && pos == v.branch.Index {
			stored := h
			v.leafHash = &stored
		}
		return h, nil
	}

	left, err := v.reconstruct(height-1, pos*2)
	if err != nil {
		return [32]byte{}, err
	}
	right := left
	if pos*2+1 < treeWidth(v.branch.Total, height-1) {
		right, err = v.reconstruct(height-1, pos*2+1)
		if err != nil {
			return [32]byte{}, err
		}
	}
	return [32]byte(encoding.MerkleParent(left[:], right[:])), nil
}
