package network

import (
	"bytes"
	"net"

	"spvnode/internal/encoding"
)

// NetAddr is the peer-address structure embedded in version/addr
// messages: services bitmask, IPv6 (or IPv4-mapped) address, and port
// (big-endian on the wire, unlike every other integer field).
type NetAddr struct {
	Services uint64
	Address  [16]byte
	Port     uint16
}

func NewNetAddr(services uint64, address [16]byte, port uint16) NetAddr {
	return NetAddr{Services: services, Address: address, Port: port}
}

func (na NetAddr) String() string {
	return net.IP(na.Address[:]).String()
}

func (na *NetAddr) Serialize() []byte {
	buf := make([]byte, 0, 26)
	buf = append(buf, encoding.WriteUint64LE(na.Services)...)
	buf = append(buf, na.Address[:]...)
	buf = append(buf, byte(na.Port>>8), byte(na.Port))
	return buf
}

func ParseNetAddr(r *bytes.Reader) (NetAddr, error) {
	services, err := encoding.ReadUint64LE(r)
	if err != nil {
		return NetAddr{}, err
	}
	addrBytes, err := encoding.ReadFixed(r, 16)
	if err != nil {
		return NetAddr{}, err
	}
	portBytes, err := encoding.ReadFixed(r, 2)
	if err != nil {
		return NetAddr{}, err
	}
	var na NetAddr
	na.Services = services
	copy(na.Address[:], addrBytes)
	na.Port = uint16(portBytes[0])<<8 | uint16(portBytes[1])
	return na, nil
}

// VersionMessage is the first message each side of a handshake sends;
// acceptance depends on ProtocolVersion and Services matching settings
// (see the handshake package).
type VersionMessage struct {
	ProtocolVersion int32
	Services        uint64
	Timestamp       int64
	ReceiverAddr    NetAddr
	SenderAddr      NetAddr
	Nonce           uint64
	UserAgent       string
	StartHeight     int32
	Relay           bool
}

func (vm *VersionMessage) Serialize() ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(encoding.WriteInt32LE(vm.ProtocolVersion))
	buf.Write(encoding.WriteUint64LE(vm.Services))
	buf.Write(encoding.WriteInt64LE(vm.Timestamp))
	buf.Write(vm.ReceiverAddr.Serialize())
	buf.Write(vm.SenderAddr.Serialize())
	buf.Write(encoding.WriteUint64LE(vm.Nonce))

	userAgentLen, err := encoding.EncodeVarInt(uint64(len(vm.UserAgent)))
	if err != nil {
		return nil, err
	}
	buf.Write(userAgentLen)
	buf.WriteString(vm.UserAgent)

	buf.Write(encoding.WriteInt32LE(vm.StartHeight))
	if vm.Relay {
		buf.WriteByte(0x01)
	} else {
		buf.WriteByte(0x00)
	}

	return buf.Bytes(), nil
}

func ParseVersionMessage(payload []byte) (VersionMessage, error) {
	r := bytes.NewReader(payload)

	protocolVersion, err := encoding.ReadInt32LE(r)
	if err != nil {
		return VersionMessage{}, err
	}
	services, err := encoding.ReadUint64LE(r)
	if err != nil {
		return VersionMessage{}, err
	}
	timestamp, err := encoding.ReadInt64LE(r)
	if err != nil {
		return VersionMessage{}, err
	}
	receiver, err := ParseNetAddr(r)
	if err != nil {
		return VersionMessage{}, err
	}
	sender, err := ParseNetAddr(r)
	if err != nil {
		return VersionMessage{}, err
	}
	nonce, err := encoding.ReadUint64LE(r)
	if err != nil {
		return VersionMessage{}, err
	}
	userAgentLen, err := encoding.ReadVarInt(r)
	if err != nil {
		return VersionMessage{}, err
	}
	userAgentBytes, err := encoding.ReadFixed(r, int(userAgentLen))
	if err != nil {
		return VersionMessage{}, err
	}
	startHeight, err := encoding.ReadInt32LE(r)
	if err != nil {
		return VersionMessage{}, err
	}
	relayByte, err := encoding.ReadUint8(r)
	if err != nil {
		return VersionMessage{}, err
	}

	return VersionMessage{
		ProtocolVersion: protocolVersion,
		Services:        services,
		Timestamp:       timestamp,
		ReceiverAddr:    receiver,
		SenderAddr:      sender,
		Nonce:           nonce,
		UserAgent:       string(userAgentBytes),
		StartHeight:     startHeight,
		Relay:           relayByte != 0,
	}, nil
}

func (vm VersionMessage) Command() string { return "version" }
