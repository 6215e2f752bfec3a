// Package walletproto implements the wire shapes of the node<->wallet
// TCP protocol (§4.10, §6): unlike the P2P wire, messages carry no
// magic or checksum, just a 12-byte null-padded command name followed
// directly by a command-specific, self-delimiting payload.
package walletproto

import (
	"bytes"
	"fmt"
	"io"

	"spvnode/internal/encoding"
	"spvnode/internal/transactions"
)

// ReadCommand reads the 12-byte command name framing every message.
func ReadCommand(r io.Reader) (string, error) {
	return encoding.ReadCommandName(r)
}

// WriteCommand writes cmd as a 12-byte null-padded name.
func WriteCommand(w io.Writer, cmd string) error {
	padded, err := encoding.WriteCommandName(cmd)
	if err != nil {
		return err
	}
	_, err = w.Write(padded[:])
	return err
}

// GetTxsRequest is get_txs's payload: compact-size + pk_script, a
// 33-byte compressed pubkey, and the wallet's last-sync timestamp.
type GetTxsRequest struct {
	PkScript   []byte
	Pubkey     [33]byte
	LastUpdate uint32
}

func ParseGetTxsRequest(r io.Reader) (GetTxsRequest, error) {
	n, err := encoding.ReadVarInt(r)
	if err != nil {
		return GetTxsRequest{}, fmt.Errorf("get_txs: pk_script length: %w", err)
	}
	pkScript, err := encoding.ReadFixed(r, int(n))
	if err != nil {
		return GetTxsRequest{}, fmt.Errorf("get_txs: pk_script: %w", err)
	}
	pubkeyBytes, err := encoding.ReadFixed(r, 33)
	if err != nil {
		return GetTxsRequest{}, fmt.Errorf("get_txs: pubkey: %w", err)
	}
	lastUpdate, err := encoding.ReadUint32LE(r)
	if err != nil {
		return GetTxsRequest{}, fmt.Errorf("get_txs: last_update: %w", err)
	}
	var pubkey [33]byte
	copy(pubkey[:], pubkeyBytes)
	return GetTxsRequest{PkScript: pkScript, Pubkey: pubkey, LastUpdate: lastUpdate}, nil
}

func (g GetTxsRequest) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	n, err := encoding.EncodeVarInt(uint64(len(g.PkScript)))
	if err != nil {
		return nil, err
	}
	buf.Write(n)
	buf.Write(g.PkScript)
	buf.Write(g.Pubkey[:])
	buf.Write(encoding.WriteUint32LE(g.LastUpdate))
	return buf.Bytes(), nil
}

// WalletTxWire is the wire shape of a WalletTx: a serialized
// transaction immediately followed by a 10-byte ASCII date.
type WalletTxWire struct {
	Tx   *transactions.Transaction
	Date [10]byte
}

func writeWalletTx(buf *bytes.Buffer, tx *transactions.Transaction, date [10]byte) error {
	raw, err := tx.Serialize()
	if err != nil {
		return err
	}
	buf.Write(raw)
	buf.Write(date[:])
	return nil
}

func readWalletTx(r io.Reader) (WalletTxWire, error) {
	tx, err := transactions.ParseTransaction(r)
	if err != nil {
		return WalletTxWire{}, err
	}
	dateBytes, err := encoding.ReadFixed(r, 10)
	if err != nil {
		return WalletTxWire{}, err
	}
	var date [10]byte
	copy(date[:], dateBytes)
	return WalletTxWire{Tx: &tx, Date: date}, nil
}

// TransactionsResponse answers get_txs: four wallet-tx categories,
// the UTXO list, the pending-change used-txout list, and the tip
// timestamp the wallet should remember as its new last_update.
type TransactionsResponse struct {
	ConfirmedSend   []WalletTxWire
	ConfirmedRecv   []WalletTxWire
	UnconfirmedSend []WalletTxWire
	UnconfirmedRecv []WalletTxWire
	UTXOs           []transactions.TxOut
	UsedTxouts      []UsedTxoutWire
	LastUpdate      uint32
}

// UsedTxoutWire pairs a TxOut with its signed pending-balance delta.
type UsedTxoutWire struct {
	TxOut transactions.TxOut
	Delta int64
}

func (t TransactionsResponse) Serialize() ([]byte, error) {
	var buf bytes.Buffer

	lists := [][]WalletTxWire{t.ConfirmedSend, t.ConfirmedRecv, t.UnconfirmedSend, t.UnconfirmedRecv}
	for _, list := range lists {
		buf.Write(encoding.WriteUint32LE(uint32(len(list))))
		for _, wtx := range list {
			if err := writeWalletTx(&buf, wtx.Tx, wtx.Date); err != nil {
				return nil, err
			}
		}
	}

	utxoCount, err := encoding.EncodeVarInt(uint64(len(t.UTXOs)))
	if err != nil {
		return nil, err
	}
	buf.Write(utxoCount)
	for i := range t.UTXOs {
		raw, err := t.UTXOs[i].Serialize()
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}

	usedCount, err := encoding.EncodeVarInt(uint64(len(t.UsedTxouts)))
	if err != nil {
		return nil, err
	}
	buf.Write(usedCount)
	for _, u := range t.UsedTxouts {
		raw, err := u.TxOut.Serialize()
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
		buf.Write(encoding.WriteInt64LE(u.Delta))
	}

	buf.Write(encoding.WriteUint32LE(t.LastUpdate))
	return buf.Bytes(), nil
}

func ParseTransactionsResponse(r io.Reader) (TransactionsResponse, error) {
	var resp TransactionsResponse
	dests := []*[]WalletTxWire{&resp.ConfirmedSend, &resp.ConfirmedRecv, &resp.UnconfirmedSend, &resp.UnconfirmedRecv}
	for _, dest := range dests {
		n, err := encoding.ReadUint32LE(r)
		if err != nil {
			return TransactionsResponse{}, err
		}
		list := make([]WalletTxWire, n)
		for i := range list {
			wtx, err := readWalletTx(r)
			if err != nil {
				return TransactionsResponse{}, err
			}
			list[i] = wtx
		}
		*dest = list
	}

	utxoCount, err := encoding.ReadVarInt(r)
	if err != nil {
		return TransactionsResponse{}, err
	}
	resp.UTXOs = make([]transactions.TxOut, utxoCount)
	for i := range resp.UTXOs {
		out, err := transactions.ParseTxOut(r)
		if err != nil {
			return TransactionsResponse{}, err
		}
		resp.UTXOs[i] = out
	}

	usedCount, err := encoding.ReadVarInt(r)
	if err != nil {
		return TransactionsResponse{}, err
	}
	resp.UsedTxouts = make([]UsedTxoutWire, usedCount)
	for i := range resp.UsedTxouts {
		out, err := transactions.ParseTxOut(r)
		if err != nil {
			return TransactionsResponse{}, err
		}
		delta, err := encoding.ReadInt64LE(r)
		if err != nil {
			return TransactionsResponse{}, err
		}
		resp.UsedTxouts[i] = UsedTxoutWire{TxOut: out, Delta: delta}
	}

	lastUpdate, err := encoding.ReadUint32LE(r)
	if err != nil {
		return TransactionsResponse{}, err
	}
	resp.LastUpdate = lastUpdate
	return resp, nil
}

// GetProofRequest is get_proof's payload: a block hash and a txid,
// both sent wire-reversed (display/big-endian order) by the wallet.
type GetProofRequest struct {
	BlockHash [32]byte
	Txid      [32]byte
}

func ParseGetProofRequest(r io.Reader) (GetProofRequest, error) {
	blockHash, err := encoding.ReadFixed(r, 32)
	if err != nil {
		return GetProofRequest{}, err
	}
	txid, err := encoding.ReadFixed(r, 32)
	if err != nil {
		return GetProofRequest{}, err
	}
	var req GetProofRequest
	copy(req.BlockHash[:], blockHash)
	copy(req.Txid[:], txid)
	return req, nil
}

func (g GetProofRequest) Serialize() []byte {
	out := make([]byte, 0, 64)
	out = append(out, g.BlockHash[:]...)
	out = append(out, g.Txid[:]...)
	return out
}

// MerkleBlockResponse is the wallet's proof-of-inclusion reply: the
// block's Merkle root, the proof's hash list, and its flag bytes.
type MerkleBlockResponse struct {
	Root   [32]byte
	Hashes [][32]byte
	Flags  []byte
}

func (m MerkleBlockResponse) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(m.Root[:])

	hashCount, err := encoding.EncodeVarInt(uint64(len(m.Hashes)))
	if err != nil {
		return nil, err
	}
	buf.Write(hashCount)
	for _, h := range m.Hashes {
		buf.Write(h[:])
	}

	flagCount, err := encoding.EncodeVarInt(uint64(len(m.Flags)))
	if err != nil {
		return nil, err
	}
	buf.Write(flagCount)
	buf.Write(m.Flags)
	return buf.Bytes(), nil
}

func ParseMerkleBlockResponse(r io.Reader) (MerkleBlockResponse, error) {
	root, err := encoding.ReadFixed(r, 32)
	if err != nil {
		return MerkleBlockResponse{}, err
	}

	hashCount, err := encoding.ReadVarInt(r)
	if err != nil {
		return MerkleBlockResponse{}, err
	}
	hashes := make([][32]byte, hashCount)
	for i := range hashes {
		h, err := encoding.ReadFixed(r, 32)
		if err != nil {
			return MerkleBlockResponse{}, err
		}
		copy(hashes[i][:], h)
	}

	flagCount, err := encoding.ReadVarInt(r)
	if err != nil {
		return MerkleBlockResponse{}, err
	}
	flags, err := encoding.ReadFixed(r, int(flagCount))
	if err != nil {
		return MerkleBlockResponse{}, err
	}

	var resp MerkleBlockResponse
	copy(resp.Root[:], root)
	resp.Hashes = hashes
	resp.Flags = flags
	return resp, nil
}
