package script

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"spvnode/internal/encoding"
)

// ScriptCommand is either a single opcode or a data push, matching
// Bitcoin's script command stream.
type ScriptCommand struct {
	Opcode byte
	Data   []byte
	IsData bool // true if Data is set, false if it's an Opcode
}

// Script is a parsed command stream. This node never executes a script
// (full script interpretation is out of scope) — it only parses, builds,
// and pattern-matches scriptPubKey/scriptSig shapes for P2PKH and P2WPKH.
type Script struct {
	CommandStack []ScriptCommand
}

func NewScript(cmds []ScriptCommand) Script {
	return Script{
		CommandStack: cmds,
	}
}

// ParseScript reads a compact-size-prefixed script and decodes its command
// stream.
func ParseScript(r io.Reader) (Script, error) {
	raw, err := ReadScriptBytes(r)
	if err != nil {
		return Script{}, err
	}
	return parseScriptBody(raw)
}

// ReadScriptBytes reads a compact-size-prefixed script and returns its raw
// bytes without decoding commands — used by scriptSig/witness fields where
// callers just need to re-serialize or re-parse on demand.
func ReadScriptBytes(r io.Reader) ([]byte, error) {
	length, err := encoding.ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("script length: %w", err)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("script body: %w", err)
	}
	return buf, nil
}

func parseScriptBody(raw []byte) (Script, error) {
	s := NewScript([]ScriptCommand{})
	r := bytes.NewReader(raw)

	for r.Len() > 0 {
		currentByte, err := r.ReadByte()
		if err != nil {
			return Script{}, fmt.Errorf("script parsing error: %w", err)
		}

		switch {
		case currentByte >= 1 && currentByte <= 75:
			elemLen := int(currentByte)
			buf := make([]byte, elemLen)
			if _, err := io.ReadFull(r, buf); err != nil {
				return Script{}, fmt.Errorf("script parsing error (push %d): %w", elemLen, err)
			}
			s.CommandStack = append(s.CommandStack, ScriptCommand{Data: buf, IsData: true})
		case currentByte == OP_PUSHDATA1:
			lenByte, err := r.ReadByte()
			if err != nil {
				return Script{}, fmt.Errorf("script parsing error: OP_PUSHDATA1: %w", err)
			}
			buf := make([]byte, int(lenByte))
			if _, err := io.ReadFull(r, buf); err != nil {
				return Script{}, fmt.Errorf("script parsing error: OP_PUSHDATA1: %w", err)
			}
			s.CommandStack = append(s.CommandStack, ScriptCommand{Data: buf, IsData: true})
		case currentByte == OP_PUSHDATA2:
			lenBuf := make([]byte, 2)
			if _, err := io.ReadFull(r, lenBuf); err != nil {
				return Script{}, fmt.Errorf("script parsing error: OP_PUSHDATA2: %w", err)
			}
			buf := make([]byte, binary.LittleEndian.Uint16(lenBuf))
			if _, err := io.ReadFull(r, buf); err != nil {
				return Script{}, fmt.Errorf("script parsing error: OP_PUSHDATA2: %w", err)
			}
			s.CommandStack = append(s.CommandStack, ScriptCommand{Data: buf, IsData: true})
		case currentByte == OP_PUSHDATA4:
			lenBuf := make([]byte, 4)
			if _, err := io.ReadFull(r, lenBuf); err != nil {
				return Script{}, fmt.Errorf("script parsing error: OP_PUSHDATA4: %w", err)
			}
			buf := make([]byte, binary.LittleEndian.Uint32(lenBuf))
			if _, err := io.ReadFull(r, buf); err != nil {
				return Script{}, fmt.Errorf("script parsing error: OP_PUSHDATA4: %w", err)
			}
			s.CommandStack = append(s.CommandStack, ScriptCommand{Data: buf, IsData: true})
		default:
			s.CommandStack = append(s.CommandStack, ScriptCommand{Opcode: currentByte, IsData: false})
		}
	}
	return s, nil
}

// RawBytes serializes the command stream without the leading compact-size
// length prefix — the form BIP-143 scriptCode and legacy sighash need.
func (s *Script) RawBytes() ([]byte, error) {
	var result bytes.Buffer

	for _, cmd := range s.CommandStack {
		if !cmd.IsData {
			if err := result.WriteByte(cmd.Opcode); err != nil {
				return nil, err
			}
			continue
		}

		dataLen := len(cmd.Data)
		switch {
		case dataLen <= 75:
			if err := result.WriteByte(byte(dataLen)); err != nil {
				return nil, err
			}
		case dataLen <= 0xff:
			if err := result.WriteByte(OP_PUSHDATA1); err != nil {
				return nil, err
			}
			if err := result.WriteByte(byte(dataLen)); err != nil {
				return nil, err
			}
		case dataLen <= 0xffff:
			if err := result.WriteByte(OP_PUSHDATA2); err != nil {
				return nil, err
			}
			lenBytes := make([]byte, 2)
			binary.LittleEndian.PutUint16(lenBytes, uint16(dataLen))
			if _, err := result.Write(lenBytes); err != nil {
				return nil, err
			}
		default:
			if err := result.WriteByte(OP_PUSHDATA4); err != nil {
				return nil, err
			}
			lenBytes := make([]byte, 4)
			binary.LittleEndian.PutUint32(lenBytes, uint32(dataLen))
			if _, err := result.Write(lenBytes); err != nil {
				return nil, err
			}
		}
		if _, err := result.Write(cmd.Data); err != nil {
			return nil, err
		}
	}
	return result.Bytes(), nil
}

// Serialize returns the compact-size-prefixed wire form of the script.
func (s *Script) Serialize() ([]byte, error) {
	raw, err := s.RawBytes()
	if err != nil {
		return nil, err
	}
	length, err := encoding.EncodeVarInt(uint64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("script serialization error: varint length: %w", err)
	}
	return append(length, raw...), nil
}

func (s Script) Combine(scriptPubKey Script) Script {
	combined := make([]ScriptCommand, 0, len(s.CommandStack)+len(scriptPubKey.CommandStack))
	combined = append(combined, s.CommandStack...)
	combined = append(combined, scriptPubKey.CommandStack...)
	return Script{CommandStack: combined}
}

// EncodeNum converts a Go int64 to Bitcoin Script's little-endian signed
// integer format.
func EncodeNum(n int64) []byte {
	if n == 0 {
		return []byte{}
	}
	absN := n
	negative := n < 0
	if negative {
		absN = -n
	}

	result := []byte{}
	for absN > 0 {
		result = append(result, byte(absN&0xff))
		absN >>= 8
	}

	if result[len(result)-1]&0x80 != 0 {
		if negative {
			result = append(result, 0x80)
		} else {
			result = append(result, 0x00)
		}
	} else if negative {
		result[len(result)-1] |= 0x80
	}

	return result
}

// DecodeNum converts Bitcoin Script's little-endian signed integer format
// to a Go int64.
func DecodeNum(data []byte) int64 {
	if len(data) == 0 {
		return 0
	}

	negative := data[len(data)-1]&0x80 != 0

	var result int64
	for i := len(data) - 1; i >= 0; i-- {
		result <<= 8
		if i == len(data)-1 {
			result |= int64(data[i] & 0x7f)
		} else {
			result |= int64(data[i])
		}
	}

	if negative {
		return -result
	}
	return result
}

// P2pkhScript builds the scriptPubKey `OP_DUP OP_HASH160 <h160> OP_EQUALVERIFY OP_CHECKSIG`.
func P2pkhScript(h160 []byte) Script {
	return NewScript([]ScriptCommand{
		{Opcode: OP_DUP},
		{Opcode: OP_HASH160},
		{IsData: true, Data: h160},
		{Opcode: OP_EQUALVERIFY},
		{Opcode: OP_CHECKSIG},
	})
}

// P2wpkhScript builds the scriptPubKey `OP_0 <20-byte-hash>`.
func P2wpkhScript(h160 []byte) Script {
	return NewScript([]ScriptCommand{
		{Opcode: OP_0},
		{IsData: true, Data: h160},
	})
}

// IsP2pkhScriptPubKey reports whether cmds matches the five-command P2PKH
// pattern.
func IsP2pkhScriptPubKey(cmds []ScriptCommand) bool {
	return len(cmds) == 5 &&
		!cmds[0].IsData && cmds[0].Opcode == OP_DUP &&
		!cmds[1].IsData && cmds[1].Opcode == OP_HASH160 &&
		cmds[2].IsData && len(cmds[2].Data) == 20 &&
		!cmds[3].IsData && cmds[3].Opcode == OP_EQUALVERIFY &&
		!cmds[4].IsData && cmds[4].Opcode == OP_CHECKSIG
}

// IsP2wpkhScriptPubKey reports whether cmds matches `OP_0 <20 bytes>`.
func IsP2wpkhScriptPubKey(cmds []ScriptCommand) bool {
	return len(cmds) == 2 &&
		!cmds[0].IsData && cmds[0].Opcode == OP_0 &&
		cmds[1].IsData && len(cmds[1].Data) == 20
}

// IsP2shScriptPubKey reports whether cmds matches `OP_HASH160 <20 bytes> OP_EQUAL`.
func IsP2shScriptPubKey(cmds []ScriptCommand) bool {
	return len(cmds) == 3 &&
		!cmds[0].IsData && cmds[0].Opcode == OP_HASH160 &&
		cmds[1].IsData && len(cmds[1].Data) == 20 &&
		!cmds[2].IsData && cmds[2].Opcode == OP_EQUAL
}

func P2pkhAddress(h160 []byte, testNet bool) string {
	prefix := 0x00
	if testNet {
		prefix = 0x6f
	}
	return encoding.EncodeBase58Checksum(append([]byte{byte(prefix)}, h160...))
}

func P2shAddress(h160 []byte, testNet bool) string {
	prefix := 0x05
	if testNet {
		prefix = 0xc4
	}
	return encoding.EncodeBase58Checksum(append([]byte{byte(prefix)}, h160...))
}
