package txfilter

import (
	"bytes"
	"testing"
	"time"

	"spvnode/internal/block"
	"spvnode/internal/chainstate"
	"spvnode/internal/script"
	"spvnode/internal/transactions"
)

func pubkeyOf(b byte) [33]byte {
	var pk [33]byte
	pk[0] = 0x02
	pk[1] = b
	return pk
}

func TestIsSpendMatchesLegacyScriptSigPush(t *testing.T) {
	pubkey := pubkeyOf(7)
	txin := transactions.NewTxIn([32]byte{1}, 0, 0xffffffff)
	txin.ScriptSig = script.NewScript([]script.ScriptCommand{
		{Data: []byte{0x30, 0x01}, IsData: true},
		{Data: pubkey[:], IsData: true},
	})
	tx := transactions.NewTransaction(1, []transactions.TxIn{txin}, nil, 0, false)

	if !IsSpend(&tx, pubkey) {
		t.Fatal("expected scriptSig ending in pubkey to match")
	}
	if IsSpend(&tx, pubkeyOf(9)) {
		t.Fatal("did not expect a different pubkey to match")
	}
}

func TestIsSpendMatchesWitnessLastItem(t *testing.T) {
	pubkey := pubkeyOf(3)
	txin := transactions.NewTxIn([32]byte{2}, 0, 0xffffffff)
	txin.Witness = [][]byte{{0x30, 0x01}, pubkey[:]}
	tx := transactions.NewTransaction(2, []transactions.TxIn{txin}, nil, 0, true)

	if !IsSpend(&tx, pubkey) {
		t.Fatal("expected witness last item ending in pubkey to match")
	}
}

func TestIsReceiveMatchesOutputScript(t *testing.T) {
	h160 := bytes.Repeat([]byte{0xcc}, 20)
	out := transactions.NewTxOut(1000, script.P2pkhScript(h160))
	tx := transactions.NewTransaction(1, nil, []transactions.TxOut{out}, 0, false)

	pkScript, err := out.RawScript()
	if err != nil {
		t.Fatalf("raw script: %v", err)
	}
	if !IsReceive(&tx, pkScript) {
		t.Fatal("expected matching output script to be a receive")
	}

	other := bytes.Repeat([]byte{0xdd}, 20)
	otherScript, err := script.P2pkhScript(other).RawBytes()
	if err != nil {
		t.Fatalf("raw script: %v", err)
	}
	if IsReceive(&tx, otherScript) {
		t.Fatal("did not expect a different pk_script to match")
	}
}

func TestPendingChangeTracksSpendAndChange(t *testing.T) {
	h160 := bytes.Repeat([]byte{0xee}, 20)
	pkScript, err := script.P2pkhScript(h160).RawBytes()
	if err != nil {
		t.Fatalf("raw script: %v", err)
	}

	spent := transactions.NewTxOut(5000, script.P2pkhScript(h160))
	fundingIn := transactions.NewTxIn([32]byte{1, 2, 3}, 0, 0xffffffff)
	fundingTx := transactions.NewTransaction(1, []transactions.TxIn{fundingIn}, []transactions.TxOut{spent}, 0, false)
	prevTxid, err := fundingTx.Hash()
	if err != nil {
		t.Fatalf("funding tx hash: %v", err)
	}

	header := block.NewHeader(1, [32]byte{}, [32]byte{}, 0, block.LowestBits, 0)
	fundingBlock := &block.FullBlock{Header: &header, Txs: []*transactions.Transaction{&fundingTx}}

	utxo := chainstate.NewUTXOSet()
	utxo.Update(fundingBlock)

	txin := transactions.NewTxIn(prevTxid, 0, 0xffffffff)
	change := transactions.NewTxOut(4000, script.P2pkhScript(h160))
	tx := transactions.NewTransaction(1, []transactions.TxIn{txin}, []transactions.TxOut{change}, 0, false)

	used := PendingChange([]WalletTx{NewWalletTx(&tx, time.Now())}, utxo, pkScript)
	if len(used) != 2 {
		t.Fatalf("got %d used-txout entries, want 2", len(used))
	}

	var sawSpend, sawChange bool
	for _, u := range used {
		switch u.Delta {
		case -5000:
			sawSpend = true
		case 4000:
			sawChange = true
		}
	}
	if !sawSpend || !sawChange {
		t.Fatalf("expected one spend and one change entry, got %+v", used)
	}
}
