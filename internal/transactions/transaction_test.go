package transactions

import (
	"bytes"
	"crypto/sha256"
	"slices"
	"testing"

	"spvnode/internal/encoding"
	"spvnode/internal/script"
)

func buildSegwitTx() Transaction {
	h160 := bytes.Repeat([]byte{0xab}, 20)
	pkScript := script.P2wpkhScript(h160)
	txout := NewTxOut(50000, pkScript)

	txin := NewTxIn([32]byte{1, 2, 3}, 0, 0xffffffff)
	txin.Witness = [][]byte{{0x30, 0x44}, bytes.Repeat([]byte{0x02}, 33)}

	tx := NewTransaction(1, []TxIn{txin}, []TxOut{txout}, 0, true)
	return tx
}

func TestSegwitTransactionRoundTrip(t *testing.T) {
	tx := buildSegwitTx()

	serialized, err := tx.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	parsed, err := ParseTransaction(bytes.NewReader(serialized))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.HasWitness {
		t.Fatal("expected parsed transaction to retain segwit flag")
	}

	reserialized, err := parsed.Serialize()
	if err != nil {
		t.Fatalf("reserialize: %v", err)
	}
	if !bytes.Equal(serialized, reserialized) {
		t.Fatalf("round trip mismatch:\n got  % x\n want % x", reserialized, serialized)
	}
}

func TestTxidStableAcrossWitness(t *testing.T) {
	tx := buildSegwitTx()
	txid, err := tx.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	noWitness := tx
	noWitness.Inputs = append([]TxIn{}, tx.Inputs...)
	noWitness.Inputs[0].Witness = nil

	txid2, err := noWitness.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if txid != txid2 {
		t.Fatalf("txid changed when witness data changed: %x != %x", txid, txid2)
	}
}

func TestWitnessHashDiffersFromTxid(t *testing.T) {
	tx := buildSegwitTx()
	txid, _ := tx.Hash()
	wtxid, _ := tx.WitnessHash()
	if txid == wtxid {
		t.Fatal("expected wtxid to differ from txid for a segwit transaction with witness data")
	}
}

func TestFeeFromPrevOutputSource(t *testing.T) {
	prevTxid := [32]byte{7, 7, 7}
	h160 := bytes.Repeat([]byte{0xaa}, 20)

	src := MapPrevOutputSource{
		{TxID: prevTxid, Index: 0}: NewTxOut(100000, script.P2pkhScript(h160)),
	}

	txin := NewTxIn(prevTxid, 0, 0xffffffff)
	txout := NewTxOut(90000, script.P2pkhScript(h160))
	tx := NewTransaction(1, []TxIn{txin}, []TxOut{txout}, 0, false)

	fee, err := tx.Fee(src)
	if err != nil {
		t.Fatalf("fee: %v", err)
	}
	if fee != 10000 {
		t.Fatalf("fee = %d, want 10000", fee)
	}
}

func TestFeeRejectsOverspend(t *testing.T) {
	prevTxid := [32]byte{8}
	h160 := bytes.Repeat([]byte{0xbb}, 20)
	src := MapPrevOutputSource{
		{TxID: prevTxid, Index: 0}: NewTxOut(1000, script.P2pkhScript(h160)),
	}
	txin := NewTxIn(prevTxid, 0, 0xffffffff)
	txout := NewTxOut(2000, script.P2pkhScript(h160))
	tx := NewTransaction(1, []TxIn{txin}, []TxOut{txout}, 0, false)

	if _, err := tx.Fee(src); err == nil {
		t.Fatal("expected error for outputs exceeding inputs")
	}
}

func TestLegacyTransactionHasNoWitnessSection(t *testing.T) {
	h160 := bytes.Repeat([]byte{0xcd}, 20)
	txout := NewTxOut(1000, script.P2pkhScript(h160))
	txin := NewTxIn([32]byte{9}, 0, 0xffffffff)
	tx := NewTransaction(1, []TxIn{txin}, []TxOut{txout}, 0, false)

	serialized, err := tx.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if bytes.Contains(serialized[4:6], []byte{0x00, 0x01}) {
		t.Fatal("legacy transaction should not carry a segwit marker/flag")
	}

	parsed, err := ParseTransaction(bytes.NewReader(serialized))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.HasWitness {
		t.Fatal("expected legacy transaction to parse without segwit flag")
	}
}

// TestSigHashBIP143MatchesIndependentPreimage reassembles the BIP-143
// preimage (nVersion, hashPrevouts, hashSequence, outpoint, scriptCode,
// amount, nSequence, hashOutputs, nLockTime, nHashType) by hand, the way
// the BIP describes it, rather than calling any of the transaction's own
// helpers, then checks SigHashBIP143 hashes the same bytes.
func TestSigHashBIP143MatchesIndependentPreimage(t *testing.T) {
	prevTxid := [32]byte{0x47, 0x54, 0xb1, 0xce, 0xd3, 0xc4, 0x2a, 0x09}
	pubKeyHash := bytes.Repeat([]byte{0x79}, 20)
	const amount = int64(600000000)
	const sequence = uint32(0xfffffffe)
	const lockTime = uint32(0x11000000)

	txin := NewTxIn(prevTxid, 1, sequence)
	txout := NewTxOut(123456789, script.P2pkhScript(bytes.Repeat([]byte{0x82}, 20)))
	tx := NewTransaction(1, []TxIn{txin}, []TxOut{txout}, lockTime, true)

	got, err := tx.SigHashBIP143(0, amount, pubKeyHash)
	if err != nil {
		t.Fatalf("sighash: %v", err)
	}

	var want bytes.Buffer
	want.Write(encoding.WriteInt32LE(tx.Version))

	var prevOuts bytes.Buffer
	outpoint := prevTxid
	slices.Reverse(outpoint[:])
	prevOuts.Write(outpoint[:])
	prevOuts.Write(encoding.WriteUint32LE(1))
	want.Write(encoding.Hash256(prevOuts.Bytes()))

	want.Write(encoding.Hash256(encoding.WriteUint32LE(sequence)))

	want.Write(outpoint[:])
	want.Write(encoding.WriteUint32LE(1))

	scriptCode, err := script.P2pkhScript(pubKeyHash).Serialize()
	if err != nil {
		t.Fatalf("script code: %v", err)
	}
	want.Write(scriptCode)

	want.Write(encoding.WriteInt64LE(amount))
	want.Write(encoding.WriteUint32LE(sequence))

	outRaw, err := txout.Serialize()
	if err != nil {
		t.Fatalf("txout: %v", err)
	}
	want.Write(encoding.Hash256(outRaw))

	want.Write(encoding.WriteUint32LE(lockTime))
	want.Write(encoding.WriteUint32LE(encoding.SIGHASH_ALL))

	wantDigest := sha256.Sum256(want.Bytes())
	if !bytes.Equal(got, wantDigest[:]) {
		t.Fatalf("sighash mismatch:\n got  % x\n want % x", got, wantDigest)
	}
}
