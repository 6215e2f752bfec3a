package block

import (
	"bytes"
	"testing"

	"spvnode/internal/encoding"
	"spvnode/internal/script"
	"spvnode/internal/transactions"
)

func buildCoinbase(h160 []byte) transactions.Transaction {
	scriptSig := script.NewScript([]script.ScriptCommand{{Data: []byte{0x02}, IsData: true}})
	txin := transactions.NewTxIn([32]byte{}, 0xffffffff, 0xffffffff)
	txin.ScriptSig = scriptSig

	txout := transactions.NewTxOut(5000000000, script.P2pkhScript(h160))
	return transactions.NewTransaction(1, []transactions.TxIn{txin}, []transactions.TxOut{txout}, 0, false)
}

func buildPlainTx(h160 []byte) transactions.Transaction {
	txin := transactions.NewTxIn([32]byte{1, 2, 3}, 0, 0xffffffff)
	txout := transactions.NewTxOut(1000, script.P2pkhScript(h160))
	return transactions.NewTransaction(1, []transactions.TxIn{txin}, []transactions.TxOut{txout}, 0, false)
}

func buildLegacyBlock(t *testing.T) *FullBlock {
	t.Helper()
	h160 := bytes.Repeat([]byte{0xaa}, 20)
	coinbase := buildCoinbase(h160)
	plain := buildPlainTx(h160)

	coinbaseID, err := coinbase.RawTxID()
	if err != nil {
		t.Fatalf("coinbase hash: %v", err)
	}
	plainID, err := plain.RawTxID()
	if err != nil {
		t.Fatalf("plain hash: %v", err)
	}
	root := encoding.MerkleRoot([][]byte{coinbaseID[:], plainID[:]})

	header := NewHeader(1, [32]byte{}, [32]byte(root), 0, LowestBits, 0)
	return &FullBlock{Header: &header, Txs: []*transactions.Transaction{&coinbase, &plain}}
}

func TestParseFullBlockValidatesMerkleRoot(t *testing.T) {
	fb := buildLegacyBlock(t)

	serialized, err := fb.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	parsed, err := ParseFullBlock(bytes.NewReader(serialized))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Txs) != 2 {
		t.Fatalf("got %d txs, want 2", len(parsed.Txs))
	}
}

func TestParseFullBlockRejectsBadMerkleRoot(t *testing.T) {
	fb := buildLegacyBlock(t)
	fb.Header.MerkleRoot[0] ^= 0xff

	serialized, err := fb.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	if _, err := ParseFullBlock(bytes.NewReader(serialized)); err == nil {
		t.Fatal("expected merkle root mismatch to be rejected")
	}
}

func TestParseFullBlockRejectsMissingWitnessCommitment(t *testing.T) {
	h160 := bytes.Repeat([]byte{0xbb}, 20)
	coinbase := buildCoinbase(h160)
	coinbase.Inputs[0].Witness = [][]byte{make([]byte, 32)}

	segwitTx := buildPlainTx(h160)
	segwitTx.HasWitness = true
	segwitTx.Inputs[0].Witness = [][]byte{{0x30}, bytes.Repeat([]byte{0x02}, 33)}

	coinbaseID, _ := coinbase.RawTxID()
	txID, _ := segwitTx.RawTxID()
	root := encoding.MerkleRoot([][]byte{coinbaseID[:], txID[:]})

	header := NewHeader(1, [32]byte{}, [32]byte(root), 0, LowestBits, 0)
	fb := &FullBlock{Header: &header, Txs: []*transactions.Transaction{&coinbase, &segwitTx}}

	serialized, err := fb.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	if _, err := ParseFullBlock(bytes.NewReader(serialized)); err == nil {
		t.Fatal("expected missing witness commitment to be rejected")
	}
}
