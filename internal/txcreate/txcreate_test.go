package txcreate

import (
	"math/big"
	"testing"

	"spvnode/internal/address"
	"spvnode/internal/encoding"
	"spvnode/internal/keys"
	"spvnode/internal/script"
	"spvnode/internal/transactions"
)

func testPriv(secret int64) *keys.PrivateKey {
	return keys.NewPrivateKey(big.NewInt(secret))
}

func TestBuildP2wpkhSpendProducesChangeAndSignedInput(t *testing.T) {
	priv := testPriv(12345)
	pub := priv.PublicKey()
	h160 := encoding.Hash160(pub.Serialize(true))

	src := UTXO{
		PrevTx:  [32]byte{1, 2, 3},
		PrevIdx: 0,
		Out:     transactions.NewTxOut(100000, script.P2wpkhScript(h160)),
	}

	destH160 := make([]byte, 20)
	for i := range destH160 {
		destH160[i] = byte(i)
	}
	destAddr, err := address.AddressFromPubKeyHash160(destH160)
	if err != nil {
		t.Fatalf("dest address: %v", err)
	}

	tx, err := Build([]Target{{Address: destAddr, Amount: 30000}}, []UTXO{src}, priv, 1000, nil, true, true)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(tx.Inputs) != 1 {
		t.Fatalf("got %d inputs, want 1", len(tx.Inputs))
	}
	if len(tx.Inputs[0].Witness) != 2 {
		t.Fatalf("expected witness sig+pubkey, got %d items", len(tx.Inputs[0].Witness))
	}
	if len(tx.Outputs) != 2 {
		t.Fatalf("got %d outputs, want target + change", len(tx.Outputs))
	}
	if tx.Outputs[1].Amount != 100000-30000-1000 {
		t.Fatalf("change amount = %d, want %d", tx.Outputs[1].Amount, 100000-30000-1000)
	}
}

func TestBuildRejectsInsufficientFunds(t *testing.T) {
	priv := testPriv(7)
	pub := priv.PublicKey()
	h160 := encoding.Hash160(pub.Serialize(true))

	src := UTXO{
		PrevTx:  [32]byte{9},
		PrevIdx: 0,
		Out:     transactions.NewTxOut(500, script.P2wpkhScript(h160)),
	}

	destH160 := make([]byte, 20)
	destAddr, err := address.AddressFromPubKeyHash160(destH160)
	if err != nil {
		t.Fatalf("dest address: %v", err)
	}

	_, err = Build([]Target{{Address: destAddr, Amount: 10000}}, []UTXO{src}, priv, 100, nil, true, true)
	if err == nil {
		t.Fatal("expected insufficient funds error")
	}
}

func TestBuildSkipsUsedTxouts(t *testing.T) {
	priv := testPriv(42)
	pub := priv.PublicKey()
	h160 := encoding.Hash160(pub.Serialize(true))

	usable := transactions.NewTxOut(50000, script.P2wpkhScript(h160))
	locked := transactions.NewTxOut(50000, script.P2wpkhScript(h160))

	utxos := []UTXO{
		{PrevTx: [32]byte{1}, PrevIdx: 0, Out: locked},
		{PrevTx: [32]byte{2}, PrevIdx: 0, Out: usable},
	}

	destH160 := make([]byte, 20)
	destAddr, err := address.AddressFromPubKeyHash160(destH160)
	if err != nil {
		t.Fatalf("dest address: %v", err)
	}

	_, err = Build([]Target{{Address: destAddr, Amount: 40000}}, utxos, priv, 0, []transactions.TxOut{usable}, true, true)
	if err != ErrUnavailableOutput {
		t.Fatalf("got err %v, want ErrUnavailableOutput", err)
	}
}
