// Package broadcast implements the post-download steady-state loop
// (§4.9): a pool of receiver threads each owning one peer socket,
// folding inbound txs/blocks into mempool and chain state, plus
// outbound transaction broadcast over a disjoint pool of reserved
// sockets.
package broadcast

import (
	"sync"

	"spvnode/internal/chainstate"
	"spvnode/internal/mempool"
	"spvnode/internal/network"
)

// Split divides connected peers in half: the first half is reserved
// for outbound broadcast, the second half runs receiver loops.
func Split(peers []*network.Peer) (reserved, receivers []*network.Peer) {
	half := len(peers) / 2
	return peers[:half], peers[half:]
}

// Outbound holds the sockets reserved for broadcast_new_txn, guarded
// since wallet RPC and node startup may both reach for it.
type Outbound struct {
	mu    sync.Mutex
	peers []*network.Peer
	magic [4]byte
}

func NewOutbound(peers []*network.Peer, magic [4]byte) *Outbound {
	return &Outbound{peers: peers, magic: magic}
}

// BroadcastNewTxn writes tx to every reserved socket. A per-socket
// write failure is logged, not fatal — the others may still succeed.
func (o *Outbound) BroadcastNewTxn(tx network.TxMessage, logf func(string, ...any)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, p := range o.peers {
		if err := p.SendMessage(&tx, o.magic); err != nil && logf != nil {
			logf("broadcast: write to %s failed: %v", p.RemoteAddr(), err)
		}
	}
}

// Receiver owns one peer socket for the lifetime of the node,
// dispatching every inbound command per §4.9 until the socket fails.
func Receiver(peer *network.Peer, magic [4]byte, utxo *chainstate.UTXOSet, chain *chainstate.Chain, pool *mempool.Mempool, logf func(string, ...any)) {
	defer peer.Close()

	for {
		env, err := peer.ReadEnvelope()
		if err != nil {
			if logf != nil {
				logf("broadcast: receiver %s exiting: %v", peer.RemoteAddr(), err)
			}
			return
		}

		if err := handle(peer, env, magic, utxo, chain, pool); err != nil {
			if logf != nil {
				logf("broadcast: receiver %s exiting: %v", peer.RemoteAddr(), err)
			}
			return
		}
	}
}

func handle(peer *network.Peer, env network.NetworkEnvelope, magic [4]byte, utxo *chainstate.UTXOSet, chain *chainstate.Chain, pool *mempool.Mempool) error {
	switch env.Command {
	case "ping":
		ping, err := network.ParsePingMessage(env.Payload)
		if err != nil {
			return err
		}
		pong := network.PongMessage{Nonce: ping.Nonce}
		return peer.SendMessage(&pong, magic)

	case "headers":
		msg, err := network.ParseHeadersMessage(env.Payload)
		if err != nil {
			return err
		}
		if len(msg.Headers) == 0 {
			return nil
		}
		last := msg.Headers[len(msg.Headers)-1]
		if !last.ProofOfWork() {
			return nil
		}
		req := network.NewGetDataMessage([]network.InventoryItem{
			{Type: network.MsgWitnessBlock, Hash: last.Hash()},
		})
		return peer.SendMessage(&req, magic)

	case "inv":
		msg, err := network.ParseInvMessage(env.Payload)
		if err != nil {
			return err
		}
		if len(msg.Items) == 0 {
			return nil
		}
		last := msg.Items[len(msg.Items)-1]
		req := network.NewGetDataMessage([]network.InventoryItem{last})
		return peer.SendMessage(&req, magic)

	case "tx":
		msg, err := network.ParseTxMessage(env.Payload)
		if err != nil {
			return err
		}
		return pool.Add(msg.Tx)

	case "block":
		msg, err := network.ParseBlockMessage(env.Payload)
		if err != nil {
			return err
		}
		if !msg.Block.Header.ProofOfWork() {
			return nil
		}
		utxo.Update(msg.Block)

		txids := make([][32]byte, 0, len(msg.Block.Txs))
		for _, tx := range msg.Block.Txs {
			if txid, err := tx.Hash(); err == nil {
				txids = append(txids, txid)
			}
		}
		pool.Update(txids)

		chain.Insert(msg.Block)
		return nil

	default:
		// already fully read by ParseNetworkEnvelope; nothing to discard
		return nil
	}
}
