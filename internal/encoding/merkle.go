package encoding

// MerkleParent computes the parent hash of two sibling merkle nodes:
// sha256d of their concatenation.
func MerkleParent(l, r []byte) []byte {
	combined := append(l, r...)
	return Hash256(combined)
}

// MerkleParentLevel computes the parent hashes for an entire level,
// duplicating the last hash when the level has an odd count.
func MerkleParentLevel(hashes [][]byte) [][]byte {
	if len(hashes)%2 != 0 {
		hashes = append(hashes, hashes[len(hashes)-1])
	}
	plevel := make([][]byte, 0, len(hashes)/2)
	for i := 0; i < len(hashes); i += 2 {
		plevel = append(plevel, MerkleParent(hashes[i], hashes[i+1]))
	}
	return plevel
}

// MerkleRoot reduces a list of leaf hashes to the single root hash.
func MerkleRoot(hashes [][]byte) []byte {
	if len(hashes) == 0 {
		return nil // or panic("empty hash list")
	}
	currentHashes := hashes
	for len(currentHashes) > 1 {
		currentHashes = MerkleParentLevel(currentHashes)
	}
	return currentHashes[0]
}
