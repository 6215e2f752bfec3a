package proof

import (
	"testing"

	"spvnode/internal/encoding"
)

func hashOf(b byte) [32]byte {
	var h [32]byte
	h[0] = b
	return h
}

func rootOf(txids [][32]byte) [32]byte {
	hashes := make([][]byte, len(txids))
	for i, id := range txids {
		id := id
		hashes[i] = id[:]
	}
	return [32]byte(encoding.MerkleRoot(hashes))
}

func TestBuildVerifyRoundTripTwoTxs(t *testing.T) {
	txids := [][32]byte{hashOf(1), hashOf(2)}
	root := rootOf(txids)

	for idx := range txids {
		branch, err := Build(txids, idx)
		if err != nil {
			t.Fatalf("Build(%d): %v", idx, err)
		}
		ok, err := Verify(root, txids[idx], branch)
		if err != nil {
			t.Fatalf("Verify(%d): %v", idx, err)
		}
		if !ok {
			t.Fatalf("proof for index %d did not verify", idx)
		}
	}
}

func TestBuildVerifyRoundTripOddCount(t *testing.T) {
	txids := [][32]byte{hashOf(1), hashOf(2), hashOf(3)}
	root := rootOf(txids)

	for idx := range txids {
		branch, err := Build(txids, idx)
		if err != nil {
			t.Fatalf("Build(%d): %v", idx, err)
		}
		ok, err := Verify(root, txids[idx], branch)
		if err != nil {
			t.Fatalf("Verify(%d): %v", idx, err)
		}
		if !ok {
			t.Fatalf("proof for index %d did not verify", idx)
		}
	}
}

func TestVerifyRejectsWrongTxid(t *testing.T) {
	txids := [][32]byte{hashOf(1), hashOf(2), hashOf(3), hashOf(4)}
	root := rootOf(txids)

	branch, err := Build(txids, 2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ok, err := Verify(root, hashOf(99), branch)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("proof verified against the wrong txid")
	}
}
