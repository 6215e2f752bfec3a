package transactions

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"spvnode/internal/encoding"
	"spvnode/internal/script"
)

// TxIn is a transaction input: the outpoint it spends, the script
// satisfying that outpoint's pk_script, a sequence number, and (for
// segwit transactions) its witness stack.
type TxIn struct {
	PrevTx    [32]byte // previous txid, display order (the wire bytes reversed)
	PrevIdx   uint32
	ScriptSig script.Script
	Sequence  uint32
	Witness   [][]byte
}

func NewTxIn(prevTx [32]byte, prevIdx, sequence uint32) TxIn {
	return TxIn{
		PrevTx:   prevTx,
		PrevIdx:  prevIdx,
		Sequence: sequence,
	}
}

func (t TxIn) String() string {
	return fmt.Sprintf("%x:%d", t.PrevTx, t.PrevIdx)
}

// IsCoinbaseInput reports whether this input is the zero-outpoint coinbase
// input: all-zero previous txid and index 0xffffffff.
func (t TxIn) IsCoinbaseInput() bool {
	return t.PrevIdx == 0xffffffff && t.PrevTx == [32]byte{}
}

func ParseTxIn(r io.Reader) (TxIn, error) {
	prevTxBytes, err := encoding.ReadFixed(r, 32)
	if err != nil {
		return TxIn{}, fmt.Errorf("txin parse error (prevtx): %w", err)
	}
	slices.Reverse(prevTxBytes)
	var prevTx [32]byte
	copy(prevTx[:], prevTxBytes)

	prevIdx, err := encoding.ReadUint32LE(r)
	if err != nil {
		return TxIn{}, fmt.Errorf("txin parse error (previdx): %w", err)
	}

	isCoinbase := prevIdx == 0xffffffff && prevTx == [32]byte{}

	var scriptSig script.Script
	if isCoinbase {
		raw, err := script.ReadScriptBytes(r)
		if err != nil {
			return TxIn{}, fmt.Errorf("txin parse error (coinbase script): %w", err)
		}
		// Keep the parsed command form only when it re-serializes to exactly
		// raw; otherwise carry each byte as a bare opcode, so the coinbase
		// always re-encodes (and hashes) to the bytes that were read.
		prefix, _ := encoding.EncodeVarInt(uint64(len(raw)))
		parsed, perr := script.ParseScript(bytes.NewReader(append(prefix, raw...)))
		back, berr := parsed.RawBytes()
		if perr == nil && berr == nil && bytes.Equal(back, raw) {
			scriptSig = parsed
		} else {
			cmds := make([]script.ScriptCommand, len(raw))
			for i, b := range raw {
				cmds[i] = script.ScriptCommand{Opcode: b}
			}
			scriptSig = script.NewScript(cmds)
		}
	} else {
		scriptSig, err = script.ParseScript(r)
		if err != nil {
			return TxIn{}, fmt.Errorf("txin parse error (scriptsig): %w", err)
		}
	}

	sequence, err := encoding.ReadUint32LE(r)
	if err != nil {
		return TxIn{}, fmt.Errorf("txin parse error (sequence): %w", err)
	}

	return TxIn{
		PrevTx:    prevTx,
		PrevIdx:   prevIdx,
		ScriptSig: scriptSig,
		Sequence:  sequence,
	}, nil
}

func (t *TxIn) Serialize() ([]byte, error) {
	var result bytes.Buffer

	revPrevTx := t.PrevTx
	slices.Reverse(revPrevTx[:])
	if _, err := result.Write(revPrevTx[:]); err != nil {
		return nil, err
	}

	if _, err := result.Write(encoding.WriteUint32LE(t.PrevIdx)); err != nil {
		return nil, err
	}

	scriptBytes, err := t.ScriptSig.Serialize()
	if err != nil {
		return nil, err
	}
	if _, err := result.Write(scriptBytes); err != nil {
		return nil, err
	}

	if _, err := result.Write(encoding.WriteUint32LE(t.Sequence)); err != nil {
		return nil, err
	}

	return result.Bytes(), nil
}

// TxOut is a transaction output: an amount in satoshis and the script
// that must be satisfied to spend it.
type TxOut struct {
	Amount   int64
	PkScript script.Script

	rawScript []byte // raw bytes even when PkScript failed to parse a recognized shape
}

func NewTxOut(amount int64, pkScript script.Script) TxOut {
	return TxOut{Amount: amount, PkScript: pkScript}
}

// RawScript returns the raw scriptPubKey bytes, falling back to
// re-serializing PkScript if the raw form wasn't retained.
func (t *TxOut) RawScript() ([]byte, error) {
	if len(t.rawScript) > 0 {
		return t.rawScript, nil
	}
	return t.PkScript.RawBytes()
}

func (t TxOut) String() string {
	pk, _ := t.PkScript.Serialize()
	return fmt.Sprintf("%d:%x", t.Amount, pk)
}

func ParseTxOut(r io.Reader) (TxOut, error) {
	amount, err := encoding.ReadInt64LE(r)
	if err != nil {
		return TxOut{}, fmt.Errorf("txout parse error (amount): %w", err)
	}

	rawScript, err := script.ReadScriptBytes(r)
	if err != nil {
		return TxOut{}, fmt.Errorf("txout parse error (script): %w", err)
	}

	pkScript := script.Script{}
	if len(rawScript) > 0 {
		varintLen, _ := encoding.EncodeVarInt(uint64(len(rawScript)))
		parsed, err := script.ParseScript(bytes.NewReader(append(varintLen, rawScript...)))
		if err == nil {
			pkScript = parsed
		}
	}

	return TxOut{
		Amount:    amount,
		PkScript:  pkScript,
		rawScript: rawScript,
	}, nil
}

func (t *TxOut) Serialize() ([]byte, error) {
	var result bytes.Buffer

	if _, err := result.Write(encoding.WriteInt64LE(t.Amount)); err != nil {
		return nil, err
	}

	scriptBytes, err := t.PkScript.Serialize()
	if err != nil {
		return nil, err
	}
	if _, err := result.Write(scriptBytes); err != nil {
		return nil, err
	}

	return result.Bytes(), nil
}
