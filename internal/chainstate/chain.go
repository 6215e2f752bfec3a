// Package chainstate holds the node's in-memory header chain and
// unspent-output set, each guarded by its own mutex. Node-wide lock
// ordering, by convention: queue < stream < mempool < utxo < chain.
package chainstate

import (
	"sync"

	"spvnode/internal/block"
)

// Chain is a mapping from header hash to full block plus a tip
// reference updated monotonically to the block with the highest
// timestamp seen. No reorg resolution is attempted: if two headers
// share a parent, both are retained and the tip is whichever carries
// the larger timestamp.
type Chain struct {
	mu     sync.Mutex
	blocks map[[32]byte]*block.FullBlock
	tip    [32]byte
	tipSet bool
}

func NewChain() *Chain {
	return &Chain{blocks: make(map[[32]byte]*block.FullBlock)}
}

// Insert adds fb under its header hash and advances the tip if fb's
// timestamp is the largest seen so far.
func (c *Chain) Insert(fb *block.FullBlock) {
	hash := fb.Header.Hash()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.blocks[hash] = fb
	if !c.tipSet || fb.Header.Timestamp > c.blocks[c.tip].Header.Timestamp {
		c.tip = hash
		c.tipSet = true
	}
}

func (c *Chain) Get(hash [32]byte) (*block.FullBlock, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fb, ok := c.blocks[hash]
	return fb, ok
}

func (c *Chain) Tip() (*block.FullBlock, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.tipSet {
		return nil, false
	}
	return c.blocks[c.tip], true
}

func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blocks)
}

// AllDescending returns every stored block ordered newest-timestamp
// first, the order the wallet-RPC "scan backward from tip" operation
// needs (§4.10).
func (c *Chain) AllDescending() []*block.FullBlock {
	c.mu.Lock()
	defer c.mu.Unlock()

	blocks := make([]*block.FullBlock, 0, len(c.blocks))
	for _, fb := range c.blocks {
		blocks = append(blocks, fb)
	}
	for i := 1; i < len(blocks); i++ {
		for j := i; j > 0 && blocks[j].Header.Timestamp > blocks[j-1].Header.Timestamp; j-- {
			blocks[j], blocks[j-1] = blocks[j-1], blocks[j]
		}
	}
	return blocks
}
