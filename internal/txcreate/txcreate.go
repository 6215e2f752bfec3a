// Package txcreate builds and signs a wallet-originated spend: selecting
// UTXOs to cover a target amount plus fee, building the output list (plus
// a change output back to the wallet), and signing every input as either
// legacy P2PKH or P2WPKH depending on the wallet's own address type.
package txcreate

import (
	"errors"
	"fmt"
	"strings"

	"spvnode/internal/address"
	"spvnode/internal/encoding"
	"spvnode/internal/keys"
	"spvnode/internal/script"
	"spvnode/internal/transactions"
)

// ErrInsufficientFunds reports that the offered UTXOs, even unused ones,
// don't cover the requested spend plus fee.
var ErrInsufficientFunds = errors.New("txcreate: insufficient funds")

// ErrUnavailableOutput reports that the UTXOs left after skipping those
// already committed to an unconfirmed transaction (per usedTxouts) don't
// cover the requested spend plus fee, and at least one was skipped.
var ErrUnavailableOutput = errors.New("txcreate: output already committed to a pending spend")

// Target is one recipient of a spend: a destination address (bech32
// P2WPKH or base58check P2PKH) and an amount in satoshis.
type Target struct {
	Address string
	Amount  int64
}

// UTXO is a candidate input: the outpoint it spends plus the output it
// references, needed for both the spent amount and, for a P2WPKH source,
// the sighash.
type UTXO struct {
	PrevTx  [32]byte
	PrevIdx uint32
	Out     transactions.TxOut
}

// ScriptForAddress decodes a destination address into its scriptPubKey,
// accepting either a testnet Bech32 P2WPKH address or a base58check
// P2PKH address.
func ScriptForAddress(addr string) (script.Script, error) {
	if strings.HasPrefix(strings.ToLower(addr), "tb1") {
		wp, err := address.FromAddress(addr)
		if err != nil {
			return script.Script{}, err
		}
		return script.P2wpkhScript(wp.Program), nil
	}
	h160, err := encoding.DecodeBase58(addr)
	if err != nil {
		return script.Script{}, fmt.Errorf("txcreate: decode address %q: %w", addr, err)
	}
	return script.P2pkhScript(h160), nil
}

func buildOutputs(targets []Target, fee int64) ([]transactions.TxOut, int64, error) {
	outputs := make([]transactions.TxOut, 0, len(targets))
	total := fee
	for _, tgt := range targets {
		sc, err := ScriptForAddress(tgt.Address)
		if err != nil {
			return nil, 0, err
		}
		outputs = append(outputs, transactions.NewTxOut(tgt.Amount, sc))
		total += tgt.Amount
	}
	return outputs, total, nil
}

// selectInputs walks utxos from the end (the same pop-off-the-back order
// the original wallet used), skipping any output already spent by a
// pending transaction, until the running total covers need.
func selectInputs(utxos []UTXO, need int64, usedTxouts []transactions.TxOut) ([]transactions.TxIn, []int64, int64, error) {
	var inputs []transactions.TxIn
	var amounts []int64
	var spent int64
	sawUnavailable := false

	for i := len(utxos) - 1; i >= 0 && spent < need; i-- {
		u := utxos[i]
		if wasUsed(u.Out, usedTxouts) {
			sawUnavailable = true
			continue
		}
		inputs = append(inputs, transactions.NewTxIn(u.PrevTx, u.PrevIdx, 0xffffffff))
		amounts = append(amounts, u.Out.Amount)
		spent += u.Out.Amount
	}

	if spent < need {
		if sawUnavailable {
			return nil, nil, 0, ErrUnavailableOutput
		}
		return nil, nil, 0, ErrInsufficientFunds
	}
	return inputs, amounts, spent, nil
}

func wasUsed(out transactions.TxOut, usedTxouts []transactions.TxOut) bool {
	outRaw, err := out.Serialize()
	if err != nil {
		return false
	}
	for i := range usedTxouts {
		usedRaw, err := usedTxouts[i].Serialize()
		if err == nil && string(usedRaw) == string(outRaw) {
			return true
		}
	}
	return false
}

// Build assembles and signs a spend from the wallet's own private key:
// targets plus fee determine the output list (and a change output, if
// positive, is appended paying the wallet's own address), utxos are
// selected newest-first skipping anything usedTxouts already claims, and
// every input is signed as P2WPKH if p2wpkh is set, otherwise legacy
// P2PKH.
func Build(targets []Target, utxos []UTXO, priv *keys.PrivateKey, fee int64, usedTxouts []transactions.TxOut, p2wpkh, compressed bool) (*transactions.Transaction, error) {
	pub := priv.PublicKey()
	pubKeyBytes := pub.Serialize(compressed)
	pubKeyHash := encoding.Hash160(pubKeyBytes)

	ownScript := script.P2pkhScript(pubKeyHash)
	if p2wpkh {
		ownScript = script.P2wpkhScript(pubKeyHash)
	}

	outputs, total, err := buildOutputs(targets, fee)
	if err != nil {
		return nil, err
	}

	inputs, amounts, spent, err := selectInputs(utxos, total, usedTxouts)
	if err != nil {
		return nil, err
	}

	if change := spent - total; change > 0 {
		outputs = append(outputs, transactions.NewTxOut(change, ownScript))
	}

	tx := transactions.NewTransaction(1, inputs, outputs, 0, p2wpkh)

	for i := range tx.Inputs {
		var err error
		if p2wpkh {
			err = tx.SignP2WPKHInput(i, amounts[i], pubKeyHash, priv, compressed)
		} else {
			err = tx.SignP2PKHInput(i, ownScript, priv, compressed)
		}
		if err != nil {
			return nil, fmt.Errorf("txcreate: sign input %d: %w", i, err)
		}
	}

	return &tx, nil
}
