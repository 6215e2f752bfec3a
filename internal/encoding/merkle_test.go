package encoding

import (
	"bytes"
	"testing"
)

func TestMerkleParentDoubleHashesConcatenation(t *testing.T) {
	l := bytes.Repeat([]byte{0x11}, 32)
	r := bytes.Repeat([]byte{0x22}, 32)

	got := MerkleParent(l, r)
	want := Hash256(append(append([]byte{}, l...), r...))
	if !bytes.Equal(got, want) {
		t.Fatalf("merkle parent = %x, want %x", got, want)
	}
}

func TestMerkleParentLevelDuplicatesOddTail(t *testing.T) {
	hashes := [][]byte{
		bytes.Repeat([]byte{0x01}, 32),
		bytes.Repeat([]byte{0x02}, 32),
		bytes.Repeat([]byte{0x03}, 32),
	}

	level := MerkleParentLevel(hashes)
	if len(level) != 2 {
		t.Fatalf("got %d parents, want 2", len(level))
	}
	want := MerkleParent(hashes[2], hashes[2])
	if !bytes.Equal(level[1], want) {
		t.Fatalf("duplicated-tail parent = %x, want %x", level[1], want)
	}
}

func TestMerkleRootReducesToSingleHash(t *testing.T) {
	numTxs := 27
	hashes := make([][]byte, numTxs)
	for i := range hashes {
		hash := make([]byte, 32)
		hash[0] = byte(i)
		hashes[i] = hash
	}

	root := MerkleRoot(hashes)
	if len(root) != 32 {
		t.Fatalf("got root of length %d, want 32", len(root))
	}

	// Reducing one level by hand and taking its root must agree.
	wantRoot := MerkleRoot(MerkleParentLevel(hashes))
	if !bytes.Equal(root, wantRoot) {
		t.Fatalf("root = %x, want %x", root, wantRoot)
	}
}

func TestMerkleRootOfSingleHashIsItself(t *testing.T) {
	h := bytes.Repeat([]byte{0xab}, 32)
	root := MerkleRoot([][]byte{h})
	if !bytes.Equal(root, h) {
		t.Fatalf("root = %x, want %x", root, h)
	}
}
