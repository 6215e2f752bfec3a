package network

import (
	"bytes"
	"fmt"

	"spvnode/internal/block"
	"spvnode/internal/encoding"
)

// GetHeadersMessage requests headers starting after the best of
// BlockLocators, up to HashStop (all-zero means "as many as possible").
type GetHeadersMessage struct {
	Version       int32
	BlockLocators [][32]byte
	HashStop      [32]byte
}

func NewGetHeadersMessage(version int32, blockLocators [][32]byte, hashStop [32]byte) GetHeadersMessage {
	return GetHeadersMessage{Version: version, BlockLocators: blockLocators, HashStop: hashStop}
}

func (g *GetHeadersMessage) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(encoding.WriteInt32LE(g.Version))

	count, err := encoding.EncodeVarInt(uint64(len(g.BlockLocators)))
	if err != nil {
		return nil, err
	}
	buf.Write(count)
	for _, h := range g.BlockLocators {
		buf.Write(h[:])
	}
	buf.Write(g.HashStop[:])
	return buf.Bytes(), nil
}

func (g GetHeadersMessage) Command() string { return "getheaders" }

// MaxHeadersPerMessage is the cap a well-behaved peer observes per
// headers response (§4.7): receiving fewer than this ends the download.
const MaxHeadersPerMessage = 2000

// HeadersMessage carries a batch of block headers, each followed by a
// zero transaction count (headers announce no bodies).
type HeadersMessage struct {
	Headers []block.Header
}

func ParseHeadersMessage(payload []byte) (HeadersMessage, error) {
	r := bytes.NewReader(payload)
	count, err := encoding.ReadVarInt(r)
	if err != nil {
		return HeadersMessage{}, err
	}

	headers := make([]block.Header, count)
	for i := uint64(0); i < count; i++ {
		h, err := block.ParseHeader(r)
		if err != nil {
			return HeadersMessage{}, fmt.Errorf("headers message: header %d: %w", i, err)
		}
		numTx, err := encoding.ReadVarInt(r)
		if err != nil {
			return HeadersMessage{}, err
		}
		if numTx != 0 {
			return HeadersMessage{}, fmt.Errorf("headers message: header %d claims %d transactions, want 0", i, numTx)
		}
		headers[i] = h
	}
	return HeadersMessage{Headers: headers}, nil
}

func (h *HeadersMessage) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	count, err := encoding.EncodeVarInt(uint64(len(h.Headers)))
	if err != nil {
		return nil, err
	}
	buf.Write(count)
	for _, header := range h.Headers {
		buf.Write(header.Serialize())
		buf.WriteByte(0x00)
	}
	return buf.Bytes(), nil
}

func (h HeadersMessage) Command() string { return "headers" }
