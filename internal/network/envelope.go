// Package network implements the Bitcoin P2P wire codec: message
// framing and per-command payload encoders/decoders.
package network

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"spvnode/internal/encoding"
)

// Message is any payload that knows its own command name and how to
// serialize itself into a NetworkEnvelope's payload.
type Message interface {
	Serialize() ([]byte, error)
	Command() string
}

// TestnetMagic is the standard testnet3 network magic (the same bytes
// settings.Magic falls back to).
var TestnetMagic = [4]byte{0x0b, 0x11, 0x09, 0x07}

// NetworkEnvelope is the 24-byte frame header plus payload that wraps
// every P2P message: magic, 12-byte zero-padded command, payload
// length, and a checksum over the payload.
type NetworkEnvelope struct {
	Magic           [4]byte
	Command         string // unpadded
	PayloadLen      uint32
	PayloadChecksum [4]byte
	Payload         []byte
}

func NewNetworkEnvelope(command string, payload []byte, magic [4]byte) (NetworkEnvelope, error) {
	if len(command) > 12 {
		return NetworkEnvelope{}, fmt.Errorf("command too long: %d bytes (max 12)", len(command))
	}

	hash := encoding.Hash256(payload)
	var checksum [4]byte
	copy(checksum[:], hash[:4])

	return NetworkEnvelope{
		Magic:           magic,
		Command:         command,
		PayloadLen:      uint32(len(payload)),
		PayloadChecksum: checksum,
		Payload:         payload,
	}, nil
}

func (n NetworkEnvelope) String() string {
	return fmt.Sprintf("%s: %x", n.Command, n.Payload)
}

func (n *NetworkEnvelope) commandBytes() [12]byte {
	var cmd [12]byte
	copy(cmd[:], n.Command)
	return cmd
}

// ParseNetworkEnvelope reads one frame from r: the caller is
// responsible for looping and dispatching by Command.
func ParseNetworkEnvelope(r io.Reader) (NetworkEnvelope, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return NetworkEnvelope{}, fmt.Errorf("envelope parse error (magic): %w", err)
	}

	commandBytes := make([]byte, 12)
	if _, err := io.ReadFull(r, commandBytes); err != nil {
		return NetworkEnvelope{}, fmt.Errorf("envelope parse error (command): %w", err)
	}
	command := string(bytes.TrimRight(commandBytes, "\x00"))

	payloadLen, err := encoding.ReadUint32LE(r)
	if err != nil {
		return NetworkEnvelope{}, fmt.Errorf("envelope parse error (length): %w", err)
	}

	var checksum [4]byte
	if _, err := io.ReadFull(r, checksum[:]); err != nil {
		return NetworkEnvelope{}, fmt.Errorf("envelope parse error (checksum): %w", err)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return NetworkEnvelope{}, fmt.Errorf("envelope parse error (payload): %w", err)
	}

	hash := encoding.Hash256(payload)
	if !bytes.Equal(hash[:4], checksum[:]) {
		return NetworkEnvelope{}, fmt.Errorf("envelope checksum mismatch on %q: got %x, want %x", command, checksum, hash[:4])
	}

	return NetworkEnvelope{
		Magic:           magic,
		Command:         command,
		PayloadLen:      payloadLen,
		PayloadChecksum: checksum,
		Payload:         payload,
	}, nil
}

// ExpectCommand returns a ProtocolError-flavored error when the
// envelope's command doesn't match what a decoder expected.
func (n *NetworkEnvelope) ExpectCommand(want string) error {
	if n.Command != want {
		return fmt.Errorf("expected %q message, got %q", want, n.Command)
	}
	return nil
}

func (n *NetworkEnvelope) Serialize() ([]byte, error) {
	buf := make([]byte, 4+12+4+4+int(n.PayloadLen))

	copy(buf[0:4], n.Magic[:])

	commandBytes := n.commandBytes()
	copy(buf[4:16], commandBytes[:])

	binary.LittleEndian.PutUint32(buf[16:20], n.PayloadLen)
	copy(buf[20:24], n.PayloadChecksum[:])

	if len(buf[24:]) < int(n.PayloadLen) {
		return nil, fmt.Errorf("not enough space left in buffer: %d bytes (need %d bytes)", len(buf[24:]), n.PayloadLen)
	}
	copy(buf[24:], n.Payload)
	return buf, nil
}
