package network

import (
	"bytes"

	"spvnode/internal/encoding"
)

// VerackMessage and SendHeadersMessage and GetAddrMessage all carry no
// payload; only their command name matters.
type VerackMessage struct{}

func (VerackMessage) Serialize() ([]byte, error) { return []byte{}, nil }
func (VerackMessage) Command() string            { return "verack" }

type SendHeadersMessage struct{}

func (SendHeadersMessage) Serialize() ([]byte, error) { return []byte{}, nil }
func (SendHeadersMessage) Command() string            { return "sendheaders" }

type GetAddrMessage struct{}

func (GetAddrMessage) Serialize() ([]byte, error) { return []byte{}, nil }
func (GetAddrMessage) Command() string            { return "getaddr" }

// PingMessage and PongMessage both carry an 8-byte nonce; a pong must
// echo the ping's nonce verbatim.
type PingMessage struct {
	Nonce uint64
}

func ParsePingMessage(payload []byte) (PingMessage, error) {
	nonce, err := encoding.ReadUint64LE(bytes.NewReader(payload))
	if err != nil {
		return PingMessage{}, err
	}
	return PingMessage{Nonce: nonce}, nil
}

func (pm *PingMessage) Serialize() ([]byte, error) { return encoding.WriteUint64LE(pm.Nonce), nil }
func (pm PingMessage) Command() string             { return "ping" }

type PongMessage struct {
	Nonce uint64
}

func ParsePongMessage(payload []byte) (PongMessage, error) {
	nonce, err := encoding.ReadUint64LE(bytes.NewReader(payload))
	if err != nil {
		return PongMessage{}, err
	}
	return PongMessage{Nonce: nonce}, nil
}

func (pm *PongMessage) Serialize() ([]byte, error) { return encoding.WriteUint64LE(pm.Nonce), nil }
func (pm PongMessage) Command() string             { return "pong" }

// AddrMessage carries a list of peer addresses, each prefixed with a
// u32 LE "last seen" timestamp ahead of the NetAddr itself.
type AddrMessage struct {
	Addresses []NetAddr
	Times     []uint32
}

func ParseAddrMessage(payload []byte) (AddrMessage, error) {
	r := bytes.NewReader(payload)
	count, err := encoding.ReadVarInt(r)
	if err != nil {
		return AddrMessage{}, err
	}

	addrs := make([]NetAddr, count)
	times := make([]uint32, count)
	for i := uint64(0); i < count; i++ {
		ts, err := encoding.ReadUint32LE(r)
		if err != nil {
			return AddrMessage{}, err
		}
		addr, err := ParseNetAddr(r)
		if err != nil {
			return AddrMessage{}, err
		}
		times[i] = ts
		addrs[i] = addr
	}
	return AddrMessage{Addresses: addrs, Times: times}, nil
}

func (am *AddrMessage) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	count, err := encoding.EncodeVarInt(uint64(len(am.Addresses)))
	if err != nil {
		return nil, err
	}
	buf.Write(count)
	for i, addr := range am.Addresses {
		buf.Write(encoding.WriteUint32LE(am.Times[i]))
		buf.Write(addr.Serialize())
	}
	return buf.Bytes(), nil
}

func (am AddrMessage) Command() string { return "addr" }
