// Package blocksync implements the work-stealing block download
// pipeline (§4.8): one worker per peer socket pops batches off a
// shared queue, fetches blocks, and forwards them over a channel to a
// single saver that updates UTXO and chain state.
package blocksync

import (
	"fmt"
	"sync"
	"time"

	"spvnode/internal/block"
	"spvnode/internal/chainstate"
	"spvnode/internal/encoding"
	"spvnode/internal/network"
)

const batchSize = 100

// Queue is the shared, mutex-protected work list of inventory items
// still to be downloaded.
type Queue struct {
	mu    sync.Mutex
	items []network.InventoryItem
}

func NewQueue(items []network.InventoryItem) *Queue {
	return &Queue{items: items}
}

// PopBatch removes and returns up to batchSize items.
func (q *Queue) PopBatch() []network.InventoryItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := batchSize
	if n > len(q.items) {
		n = len(q.items)
	}
	batch := q.items[:n]
	q.items = q.items[n:]
	return batch
}

// PushBack restores unfulfilled items, used when a worker's socket
// fails mid-batch (§9: never push back items already forwarded).
func (q *Queue) PushBack(items []network.InventoryItem) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// FilterByCutoff builds the initial inventory list from a header list,
// retaining only headers newer than cutoff and upgrading every item to
// a witness-block request (the receiver serves segwit data regardless,
// per §4.8).
func FilterByCutoff(headers []block.Header, cutoff time.Time) []network.InventoryItem {
	var items []network.InventoryItem
	for _, h := range headers {
		if h.Time().After(cutoff) {
			items = append(items, network.InventoryItem{
				Type: network.MsgWitnessBlock,
				Hash: h.Hash(),
			})
		}
	}
	return items
}

// Worker owns one peer socket and drains the shared queue until it is
// empty or the socket fails.
func Worker(peer *network.Peer, queue *Queue, magic [4]byte, out chan<- *block.FullBlock) {
	defer peer.Close()

	for {
		batch := queue.PopBatch()
		if len(batch) == 0 {
			return
		}

		req := network.NewGetDataMessage(batch)
		if err := peer.SendMessage(&req, magic); err != nil {
			queue.PushBack(batch)
			return
		}

		for i, item := range batch {
			fb, err := fetchOne(peer, magic, item)
			if err != nil {
				queue.PushBack(batch[i:])
				return
			}
			out <- fb
		}
	}
}

// fetchOne reads messages until the requested block arrives, handling
// interleaved pings and ignoring anything else, matching §4.7's inline
// message handling applied to block download.
func fetchOne(peer *network.Peer, magic [4]byte, want network.InventoryItem) (*block.FullBlock, error) {
	for {
		env, err := peer.ReadEnvelope()
		if err != nil {
			return nil, err
		}

		switch env.Command {
		case "block":
			msg, err := network.ParseBlockMessage(env.Payload)
			if err != nil {
				return nil, err
			}
			if msg.Block.Header.Hash() != want.Hash {
				// not the block we asked for; keep waiting
				continue
			}
			return msg.Block, nil
		case "ping":
			ping, err := network.ParsePingMessage(env.Payload)
			if err != nil {
				return nil, err
			}
			pong := network.PongMessage{Nonce: ping.Nonce}
			if err := peer.SendMessage(&pong, magic); err != nil {
				return nil, err
			}
		default:
			// discarded; already fully read
		}
	}
}

// Saver drains in from every worker, updating UTXO then chain state
// under their respective locks for each block, and logs progress every
// 1000 blocks. Returns once in is closed by the coordinator.
func Saver(in <-chan *block.FullBlock, utxo *chainstate.UTXOSet, chain *chainstate.Chain, logf func(string, ...any)) {
	count := 0
	for fb := range in {
		utxo.Update(fb)
		chain.Insert(fb)
		count++
		if count%1000 == 0 && logf != nil {
			h := fb.Header.Hash()
			logf("block-saver: stored %d blocks (tip %s)", count, encoding.DisplayHash(h))
		}
	}
}

// Run spawns one worker per peer, waits for all to finish, then closes
// the shared channel so the saver can terminate.
func Run(peers []*network.Peer, queue *Queue, magic [4]byte, utxo *chainstate.UTXOSet, chain *chainstate.Chain, logf func(string, ...any)) {
	out := make(chan *block.FullBlock, 256)

	var wg sync.WaitGroup
	for _, peer := range peers {
		wg.Add(1)
		go func(p *network.Peer) {
			defer wg.Done()
			Worker(p, queue, magic, out)
		}(peer)
	}

	done := make(chan struct{})
	go func() {
		Saver(out, utxo, chain, logf)
		close(done)
	}()

	wg.Wait()
	close(out)
	<-done

	if logf != nil {
		logf("block-sync complete: %s blocks stored", fmt.Sprint(chain.Len()))
	}
}
