package encoding

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// ReadUint32LE, WriteUint32LE and friends give every message codec the same
// small vocabulary the teacher's hand-written Serialize/Parse pairs used
// ad hoc per file; factoring them here keeps command codecs (version,
// getheaders, ...) terse and consistent.

func ReadUint8(r io.Reader) (uint8, error) {
	buf := make([]byte, 1)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, fmt.Errorf("read u8: %w", err)
	}
	return buf[0], nil
}

func ReadUint16LE(r io.Reader) (uint16, error) {
	buf := make([]byte, 2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, fmt.Errorf("read u16: %w", err)
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func ReadUint32LE(r io.Reader) (uint32, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, fmt.Errorf("read u32: %w", err)
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func ReadInt32LE(r io.Reader) (int32, error) {
	v, err := ReadUint32LE(r)
	return int32(v), err
}

func ReadUint64LE(r io.Reader) (uint64, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, fmt.Errorf("read u64: %w", err)
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func ReadInt64LE(r io.Reader) (int64, error) {
	v, err := ReadUint64LE(r)
	return int64(v), err
}

func WriteUint32LE(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

func WriteInt32LE(v int32) []byte { return WriteUint32LE(uint32(v)) }

func WriteUint64LE(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

func WriteInt64LE(v int64) []byte { return WriteUint64LE(uint64(v)) }

// ReadFixed reads exactly n bytes, wrapping short reads as ReadFromBytes
// failures per the compact-size/fixed-array contract of spec §4.1.
func ReadFixed(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("ReadFromBytes: short read of %d bytes: %w", n, err)
	}
	return buf, nil
}

// ReadIPv6 reads a big-endian 16-byte IPv6 address (or IPv4-mapped IPv6).
func ReadIPv6(r io.Reader) (net.IP, error) {
	buf, err := ReadFixed(r, 16)
	if err != nil {
		return nil, err
	}
	return net.IP(buf), nil
}

// WriteIPv6 writes a 16-byte big-endian IPv6 address, mapping IPv4 addresses
// into the ::ffff:0:0/96 range as the wire format requires.
func WriteIPv6(ip net.IP) []byte {
	v6 := ip.To16()
	if v6 == nil {
		v6 = make([]byte, 16)
	}
	out := make([]byte, 16)
	copy(out, v6)
	return out
}

// ReadCommandName reads a 12-byte null-padded ASCII command name.
func ReadCommandName(r io.Reader) (string, error) {
	buf, err := ReadFixed(r, 12)
	if err != nil {
		return "", err
	}
	end := len(buf)
	for end > 0 && buf[end-1] == 0x00 {
		end--
	}
	for _, b := range buf[:end] {
		if b < 0x20 || b > 0x7e {
			return "", fmt.Errorf("command name contains invalid byte 0x%02x", b)
		}
	}
	return string(buf[:end]), nil
}

// WriteCommandName null-pads a command name to 12 bytes.
func WriteCommandName(command string) ([12]byte, error) {
	var out [12]byte
	if len(command) > 12 {
		return out, fmt.Errorf("command too long: %d bytes (max 12)", len(command))
	}
	copy(out[:], command)
	return out, nil
}
