// Package walletrpc implements the node's wallet RPC loop (§4.10): a
// single TCP listener accepting exactly one wallet connection, serving
// get_txs, get_proof, and broadcast_tx over the framing defined in
// internal/walletproto.
package walletrpc

import (
	"fmt"
	"net"
	"time"

	"spvnode/internal/broadcast"
	"spvnode/internal/chainstate"
	"spvnode/internal/mempool"
	"spvnode/internal/network"
	"spvnode/internal/proof"
	"spvnode/internal/transactions"
	"spvnode/internal/txfilter"
	"spvnode/internal/walletproto"
)

// Serve listens on addr, accepts exactly one wallet connection, and
// dispatches commands from it until the connection closes or a fatal
// I/O error occurs.
func Serve(addr string, chain *chainstate.Chain, utxo *chainstate.UTXOSet, pool *mempool.Mempool, out *broadcast.Outbound, logf func(string, ...any)) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("walletrpc: listen %s: %w", addr, err)
	}
	defer listener.Close()

	conn, err := listener.Accept()
	if err != nil {
		return fmt.Errorf("walletrpc: accept: %w", err)
	}
	defer conn.Close()

	for {
		cmd, err := walletproto.ReadCommand(conn)
		if err != nil {
			return fmt.Errorf("walletrpc: read command: %w", err)
		}

		if err := dispatch(conn, cmd, chain, utxo, pool, out, logf); err != nil {
			return fmt.Errorf("walletrpc: %s: %w", cmd, err)
		}
	}
}

func dispatch(conn net.Conn, cmd string, chain *chainstate.Chain, utxo *chainstate.UTXOSet, pool *mempool.Mempool, out *broadcast.Outbound, logf func(string, ...any)) error {
	switch cmd {
	case "get_txs":
		return handleGetTxs(conn, chain, utxo, pool)
	case "get_proof":
		return handleGetProof(conn, chain)
	case "broadcast_tx":
		return handleBroadcastTx(conn, out, logf)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func handleGetTxs(conn net.Conn, chain *chainstate.Chain, utxo *chainstate.UTXOSet, pool *mempool.Mempool) error {
	req, err := walletproto.ParseGetTxsRequest(conn)
	if err != nil {
		return err
	}

	lastUpdate := time.Unix(int64(req.LastUpdate), 0).UTC()
	confirmed := txfilter.ScanChain(chain, req.PkScript, req.Pubkey, lastUpdate)
	unconfirmed := txfilter.ScanMempool(pool, req.PkScript, req.Pubkey)

	tip, hasTip := chain.Tip()
	tipTime := uint32(0)
	if hasTip {
		tipTime = tip.Header.Timestamp
	}

	resp := walletproto.TransactionsResponse{
		ConfirmedSend:   wrapTxs(confirmed.Send),
		ConfirmedRecv:   wrapTxs(confirmed.Recv),
		UnconfirmedSend: wrapTxs(unconfirmed.Send),
		UnconfirmedRecv: wrapTxs(unconfirmed.Recv),
		UTXOs:           utxo.ForPkScript(req.PkScript),
		LastUpdate:      tipTime,
	}

	for _, u := range txfilter.PendingChange(unconfirmed.Send, utxo, req.PkScript) {
		resp.UsedTxouts = append(resp.UsedTxouts, walletproto.UsedTxoutWire{TxOut: u.TxOut, Delta: u.Delta})
	}

	if err := walletproto.WriteCommand(conn, "transactions"); err != nil {
		return err
	}
	payload, err := resp.Serialize()
	if err != nil {
		return err
	}
	_, err = conn.Write(payload)
	return err
}

func wrapTxs(txs []txfilter.WalletTx) []walletproto.WalletTxWire {
	wrapped := make([]walletproto.WalletTxWire, len(txs))
	for i, wtx := range txs {
		wrapped[i] = walletproto.WalletTxWire{Tx: wtx.Tx, Date: wtx.Date}
	}
	return wrapped
}

func handleGetProof(conn net.Conn, chain *chainstate.Chain) error {
	req, err := walletproto.ParseGetProofRequest(conn)
	if err != nil {
		return err
	}

	blockHash := reversed(req.BlockHash)
	fb, ok := chain.Get(blockHash)
	if !ok {
		return walletproto.WriteCommand(conn, "not_found")
	}

	target := reversed(req.Txid)
	txids := make([][32]byte, len(fb.Txs))
	index := -1
	for i, tx := range fb.Txs {
		id, err := tx.RawTxID()
		if err != nil {
			return err
		}
		txids[i] = id
		if id == target {
			index = i
		}
	}
	if index == -1 {
		return walletproto.WriteCommand(conn, "not_found")
	}

	branch, err := proof.Build(txids, index)
	if err != nil {
		return err
	}

	if err := walletproto.WriteCommand(conn, "merkleblock"); err != nil {
		return err
	}
	resp := walletproto.MerkleBlockResponse{
		Root:   fb.Header.MerkleRoot,
		Hashes: branch.Hashes,
		Flags:  branch.Flags,
	}
	payload, err := resp.Serialize()
	if err != nil {
		return err
	}
	_, err = conn.Write(payload)
	return err
}

func handleBroadcastTx(conn net.Conn, out *broadcast.Outbound, logf func(string, ...any)) error {
	tx, err := transactions.ParseTransaction(conn)
	if err != nil {
		return fmt.Errorf("broadcast_tx: parse: %w", err)
	}
	msg := network.TxMessage{Tx: &tx}
	out.BroadcastNewTxn(msg, logf)
	return nil
}

// reversed flips a wallet-supplied display-order hash back into the
// node's internal wire byte order.
func reversed(in [32]byte) [32]byte {
	var out [32]byte
	for i := range in {
		out[i] = in[31-i]
	}
	return out
}
