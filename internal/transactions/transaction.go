package transactions

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"slices"

	"spvnode/internal/encoding"
	"spvnode/internal/keys"
	"spvnode/internal/script"
)

// Transaction is a parsed Bitcoin transaction. HasWitness records whether
// this transaction was read with a segwit marker/flag — that bit, not
// witness-stack presence, decides whether a re-serialization carries
// witness data (segwit detection is authoritative from parse time).
type Transaction struct {
	Version  int32
	Inputs   []TxIn
	Outputs  []TxOut
	LockTime uint32

	HasWitness bool

	cachedHashPrevOuts []byte
	cachedHashSequence []byte
	cachedHashOutputs  []byte
}

func NewTransaction(version int32, inputs []TxIn, outputs []TxOut, lockTime uint32, hasWitness bool) Transaction {
	return Transaction{
		Version:    version,
		Inputs:     inputs,
		Outputs:    outputs,
		LockTime:   lockTime,
		HasWitness: hasWitness,
	}
}

func (t Transaction) String() string {
	id, _ := t.Hash()
	return fmt.Sprintf("tx %x (version %d, %d in, %d out, segwit=%v)",
		id, t.Version, len(t.Inputs), len(t.Outputs), t.HasWitness)
}

// RawTxID returns sha256d of the legacy (witness-stripped)
// serialization in internal wire byte order — the form a block's
// Merkle tree is built from, matching Header.MerkleRoot's own
// (unreversed) byte order.
func (t *Transaction) RawTxID() ([32]byte, error) {
	serialized, err := t.serialize(false)
	if err != nil {
		return [32]byte{}, err
	}
	return [32]byte(encoding.Hash256(serialized)), nil
}

// RawWTxID is RawTxID's witness-carrying counterpart: sha256d of the
// full serialization (including witness data when present), in
// internal wire byte order.
func (t *Transaction) RawWTxID() ([32]byte, error) {
	serialized, err := t.serialize(t.HasWitness)
	if err != nil {
		return [32]byte{}, err
	}
	return [32]byte(encoding.Hash256(serialized)), nil
}

// Hash returns the txid in display byte order (the form block
// explorers and the wallet RPC wire format use), reversed from
// RawTxID.
func (t *Transaction) Hash() ([32]byte, error) {
	raw, err := t.RawTxID()
	if err != nil {
		return [32]byte{}, err
	}
	reversed := raw[:]
	slices.Reverse(reversed)
	return [32]byte(reversed), nil
}

// WitnessHash is RawWTxID's display-order counterpart. For a
// non-segwit transaction this equals Hash().
func (t *Transaction) WitnessHash() ([32]byte, error) {
	raw, err := t.RawWTxID()
	if err != nil {
		return [32]byte{}, err
	}
	reversed := raw[:]
	slices.Reverse(reversed)
	return [32]byte(reversed), nil
}

// Serialize returns the wire form, including witness data only when this
// transaction carries it.
func (t *Transaction) Serialize() ([]byte, error) {
	return t.serialize(t.HasWitness)
}

func (t *Transaction) serialize(includeWitness bool) ([]byte, error) {
	var result bytes.Buffer

	if _, err := result.Write(encoding.WriteInt32LE(t.Version)); err != nil {
		return nil, err
	}

	if includeWitness {
		if _, err := result.Write([]byte{0x00, 0x01}); err != nil {
			return nil, err
		}
	}

	inLen, err := encoding.EncodeVarInt(uint64(len(t.Inputs)))
	if err != nil {
		return nil, err
	}
	if _, err := result.Write(inLen); err != nil {
		return nil, err
	}
	for i := range t.Inputs {
		data, err := t.Inputs[i].Serialize()
		if err != nil {
			return nil, fmt.Errorf("tx serialization error (input %d): %w", i, err)
		}
		if _, err := result.Write(data); err != nil {
			return nil, err
		}
	}

	outLen, err := encoding.EncodeVarInt(uint64(len(t.Outputs)))
	if err != nil {
		return nil, err
	}
	if _, err := result.Write(outLen); err != nil {
		return nil, err
	}
	for i := range t.Outputs {
		data, err := t.Outputs[i].Serialize()
		if err != nil {
			return nil, fmt.Errorf("tx serialization error (output %d): %w", i, err)
		}
		if _, err := result.Write(data); err != nil {
			return nil, err
		}
	}

	if includeWitness {
		for _, txin := range t.Inputs {
			numItems, err := encoding.EncodeVarInt(uint64(len(txin.Witness)))
			if err != nil {
				return nil, err
			}
			if _, err := result.Write(numItems); err != nil {
				return nil, err
			}
			for _, item := range txin.Witness {
				itemLen, err := encoding.EncodeVarInt(uint64(len(item)))
				if err != nil {
					return nil, err
				}
				if _, err := result.Write(itemLen); err != nil {
					return nil, err
				}
				if _, err := result.Write(item); err != nil {
					return nil, err
				}
			}
		}
	}

	if _, err := result.Write(encoding.WriteUint32LE(t.LockTime)); err != nil {
		return nil, err
	}

	return result.Bytes(), nil
}

// ParseTransaction reads a transaction, detecting segwit from the
// input-count's zero sentinel: a zero input count means the next byte is
// the segwit flag and the real input count follows.
func ParseTransaction(r io.Reader) (Transaction, error) {
	version, err := encoding.ReadInt32LE(r)
	if err != nil {
		return Transaction{}, fmt.Errorf("tx parse error (version): %w", err)
	}

	inputCount, err := encoding.ReadVarInt(r)
	if err != nil {
		return Transaction{}, fmt.Errorf("tx parse error (input count): %w", err)
	}

	hasWitness := false
	if inputCount == 0 {
		flag, err := encoding.ReadUint8(r)
		if err != nil {
			return Transaction{}, fmt.Errorf("tx parse error (segwit flag): %w", err)
		}
		if flag != 0x01 {
			return Transaction{}, fmt.Errorf("tx parse error: unsupported segwit flag 0x%02x", flag)
		}
		hasWitness = true
		inputCount, err = encoding.ReadVarInt(r)
		if err != nil {
			return Transaction{}, fmt.Errorf("tx parse error (real input count): %w", err)
		}
	}

	inputs := make([]TxIn, 0, inputCount)
	for i := uint64(0); i < inputCount; i++ {
		in, err := ParseTxIn(r)
		if err != nil {
			return Transaction{}, err
		}
		inputs = append(inputs, in)
	}

	outputCount, err := encoding.ReadVarInt(r)
	if err != nil {
		return Transaction{}, fmt.Errorf("tx parse error (output count): %w", err)
	}
	outputs := make([]TxOut, 0, outputCount)
	for i := uint64(0); i < outputCount; i++ {
		out, err := ParseTxOut(r)
		if err != nil {
			return Transaction{}, err
		}
		outputs = append(outputs, out)
	}

	if hasWitness {
		for i := range inputs {
			numItems, err := encoding.ReadVarInt(r)
			if err != nil {
				return Transaction{}, fmt.Errorf("tx parse error (witness count): %w", err)
			}
			items := make([][]byte, 0, numItems)
			for j := uint64(0); j < numItems; j++ {
				itemLen, err := encoding.ReadVarInt(r)
				if err != nil {
					return Transaction{}, fmt.Errorf("tx parse error (witness item length): %w", err)
				}
				item, err := encoding.ReadFixed(r, int(itemLen))
				if err != nil {
					return Transaction{}, fmt.Errorf("tx parse error (witness item): %w", err)
				}
				items = append(items, item)
			}
			inputs[i].Witness = items
		}
	}

	lockTime, err := encoding.ReadUint32LE(r)
	if err != nil {
		return Transaction{}, fmt.Errorf("tx parse error (locktime): %w", err)
	}

	return Transaction{
		Version:    version,
		Inputs:     inputs,
		Outputs:    outputs,
		LockTime:   lockTime,
		HasWitness: hasWitness,
	}, nil
}

// PrevOutputSource resolves the output a TxIn spends, by txid and index.
// The node's UTXO set and the wallet's own selected-outputs map both
// satisfy this — there is no live external transaction fetch.
type PrevOutputSource interface {
	PrevOutput(txid [32]byte, index uint32) (TxOut, bool)
}

// SigHashLegacy computes the P2PKH signature hash for input i: every
// input's script is blanked except i's, which carries pkScript, then
// SIGHASH_ALL is appended and the buffer is hashed with a single SHA-256
// round (not sha256d — this system's sighash digest is single-hashed,
// unlike the sha256d used for block/merkle hashing elsewhere).
func (t *Transaction) SigHashLegacy(inputIndex int, pkScript script.Script) ([]byte, error) {
	if inputIndex < 0 || inputIndex >= len(t.Inputs) {
		return nil, fmt.Errorf("sighash: input index %d out of range", inputIndex)
	}

	modifiedInputs := make([]TxIn, len(t.Inputs))
	for i, in := range t.Inputs {
		modifiedInputs[i] = TxIn{PrevTx: in.PrevTx, PrevIdx: in.PrevIdx, Sequence: in.Sequence}
		if i == inputIndex {
			modifiedInputs[i].ScriptSig = pkScript
		} else {
			modifiedInputs[i].ScriptSig = script.NewScript(nil)
		}
	}

	modifiedTx := Transaction{
		Version:  t.Version,
		Inputs:   modifiedInputs,
		Outputs:  t.Outputs,
		LockTime: t.LockTime,
	}

	serialized, err := modifiedTx.serialize(false)
	if err != nil {
		return nil, err
	}
	serialized = append(serialized, encoding.WriteUint32LE(encoding.SIGHASH_ALL)...)

	digest := sha256.Sum256(serialized)
	return digest[:], nil
}

// SigHashBIP143 computes the BIP-143 signature hash for P2WPKH input i,
// given the amount of the output it spends and its 20-byte pubkey hash
// (from the P2WPKH pk_script it's satisfying). scriptCode is fixed to
// OP_DUP OP_HASH160 <h160> OP_EQUALVERIFY OP_CHECKSIG.
//
// The final digest is single sha256, not the canonical double-sha256d
// BIP-143 defines — this follows original_source's signer, which feeds
// this preimage through a single-round hash before signing. That means
// the canonical BIP-143 test vectors (double-hashed) won't reproduce
// against this function; they're intentionally not used as test data
// here for that reason.
func (t *Transaction) SigHashBIP143(inputIndex int, amount int64, pubKeyHash []byte) ([]byte, error) {
	if inputIndex < 0 || inputIndex >= len(t.Inputs) {
		return nil, fmt.Errorf("sighash: input index %d out of range", inputIndex)
	}
	txin := t.Inputs[inputIndex]

	var s bytes.Buffer
	s.Write(encoding.WriteInt32LE(t.Version))
	s.Write(t.hashPrevOuts())
	s.Write(t.hashSequence())

	prevOutpoint := txin.PrevTx
	slices.Reverse(prevOutpoint[:])
	s.Write(prevOutpoint[:])
	s.Write(encoding.WriteUint32LE(txin.PrevIdx))

	scriptCode := script.P2pkhScript(pubKeyHash)
	scriptCodeBytes, err := scriptCode.Serialize()
	if err != nil {
		return nil, err
	}
	s.Write(scriptCodeBytes)

	s.Write(encoding.WriteInt64LE(amount))
	s.Write(encoding.WriteUint32LE(txin.Sequence))

	outHash, err := t.hashOutputs()
	if err != nil {
		return nil, err
	}
	s.Write(outHash)

	s.Write(encoding.WriteUint32LE(t.LockTime))
	s.Write(encoding.WriteUint32LE(encoding.SIGHASH_ALL))

	digest := sha256.Sum256(s.Bytes())
	return digest[:], nil
}

func (t *Transaction) hashPrevOuts() []byte {
	if t.cachedHashPrevOuts == nil {
		var allPrevOuts bytes.Buffer
		for _, txin := range t.Inputs {
			prevOutpoint := txin.PrevTx
			slices.Reverse(prevOutpoint[:])
			allPrevOuts.Write(prevOutpoint[:])
			allPrevOuts.Write(encoding.WriteUint32LE(txin.PrevIdx))
		}
		t.cachedHashPrevOuts = encoding.Hash256(allPrevOuts.Bytes())
	}
	return t.cachedHashPrevOuts
}

func (t *Transaction) hashSequence() []byte {
	if t.cachedHashSequence == nil {
		var allSequence bytes.Buffer
		for _, txin := range t.Inputs {
			allSequence.Write(encoding.WriteUint32LE(txin.Sequence))
		}
		t.cachedHashSequence = encoding.Hash256(allSequence.Bytes())
	}
	return t.cachedHashSequence
}

func (t *Transaction) hashOutputs() ([]byte, error) {
	if t.cachedHashOutputs == nil {
		var allOutputs bytes.Buffer
		for i := range t.Outputs {
			ser, err := t.Outputs[i].Serialize()
			if err != nil {
				return nil, err
			}
			allOutputs.Write(ser)
		}
		t.cachedHashOutputs = encoding.Hash256(allOutputs.Bytes())
	}
	return t.cachedHashOutputs, nil
}

// Fee returns the transaction fee in satoshis, resolving each input's
// spent amount through src (the UTXO set or the wallet's own output map).
func (t *Transaction) Fee(src PrevOutputSource) (int64, error) {
	var inputSum int64
	for i, in := range t.Inputs {
		out, ok := src.PrevOutput(in.PrevTx, in.PrevIdx)
		if !ok {
			return 0, fmt.Errorf("fee: input %d references unknown output %x:%d", i, in.PrevTx, in.PrevIdx)
		}
		inputSum += out.Amount
	}

	var outputSum int64
	for _, out := range t.Outputs {
		outputSum += out.Amount
	}

	if outputSum > inputSum {
		return 0, fmt.Errorf("invalid transaction: outputs (%d) exceed inputs (%d)", outputSum, inputSum)
	}
	return inputSum - outputSum, nil
}

// SignP2PKHInput signs input i as a legacy P2PKH spend of pkScript,
// replacing its ScriptSig with `<sig> <pubkey>`.
func (t *Transaction) SignP2PKHInput(inputIndex int, pkScript script.Script, privKey *keys.PrivateKey, compressed bool) error {
	z, err := t.SigHashLegacy(inputIndex, pkScript)
	if err != nil {
		return err
	}
	return t.applySignature(inputIndex, z, privKey, compressed, false)
}

// SignP2WPKHInput signs input i as a P2WPKH spend, writing the signature
// and pubkey into the input's witness stack and leaving ScriptSig empty.
func (t *Transaction) SignP2WPKHInput(inputIndex int, amount int64, pubKeyHash []byte, privKey *keys.PrivateKey, compressed bool) error {
	z, err := t.SigHashBIP143(inputIndex, amount, pubKeyHash)
	if err != nil {
		return err
	}
	return t.applySignature(inputIndex, z, privKey, compressed, true)
}

func (t *Transaction) applySignature(inputIndex int, z []byte, privKey *keys.PrivateKey, compressed, witness bool) error {
	sig, err := privKey.SignHash(z)
	if err != nil {
		return err
	}
	derSig := append(sig.Serialize(), byte(encoding.SIGHASH_ALL))

	pubKey := privKey.PublicKey()
	secPubKey := pubKey.Serialize(compressed)

	if witness {
		t.Inputs[inputIndex].Witness = [][]byte{derSig, secPubKey}
		t.Inputs[inputIndex].ScriptSig = script.NewScript(nil)
		t.HasWitness = true
		return nil
	}

	t.Inputs[inputIndex].ScriptSig = script.NewScript([]script.ScriptCommand{
		{IsData: true, Data: derSig},
		{IsData: true, Data: secPubKey},
	})
	return nil
}

// IsCoinbase reports whether this transaction is a coinbase: exactly one
// input, with the zero outpoint.
func (t *Transaction) IsCoinbase() bool {
	return len(t.Inputs) == 1 && t.Inputs[0].IsCoinbaseInput()
}

// CoinbaseHeight decodes the block height pushed at the start of a
// coinbase's scriptSig (BIP-34), or -1 if this isn't a coinbase or the
// script doesn't start with a data push.
func (t *Transaction) CoinbaseHeight() int64 {
	if !t.IsCoinbase() || len(t.Inputs[0].ScriptSig.CommandStack) == 0 {
		return -1
	}
	first := t.Inputs[0].ScriptSig.CommandStack[0]
	if !first.IsData {
		return -1
	}
	return script.DecodeNum(first.Data)
}
