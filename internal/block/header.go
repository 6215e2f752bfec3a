// Package block implements the 80-byte block header, proof-of-work
// checking, and the full-block container with its Merkle-root and
// witness-commitment invariants.
package block

import (
	"bytes"
	"fmt"
	"io"
	"math/big"
	"slices"
	"time"

	"spvnode/internal/encoding"
)

const (
	// LowestBits is the maximum target (minimum difficulty) on mainnet;
	// testnet regularly drops back to it between difficulty-1 blocks.
	LowestBits uint32 = 0x1d00ffff

	bitsCoeffMask    uint32 = 0x00ffffff
	bitsHighBitMask  byte   = 0x7f
	headerSize              = 80
)

// TestnetGenesisHeader is the 80-byte serialization of the testnet3
// genesis block header: version=1, prev=zeros,
// merkle=0x3ba3edfd...4a, time=1296688602, nbits=486604799,
// nonce=414098458.
var TestnetGenesisHeader = [headerSize]byte{
	0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x3b, 0xa3, 0xed, 0xfd,
	0x7a, 0x7b, 0x12, 0xb2, 0x7a, 0xc7, 0x2c, 0x3e,
	0x67, 0x76, 0x8f, 0x61, 0x7f, 0xc8, 0x1b, 0xc3,
	0x88, 0x8a, 0x51, 0x32, 0x3a, 0x9f, 0xb8, 0xaa,
	0x4b, 0x1e, 0x5e, 0x4a, 0xda, 0xe5, 0x49, 0x4d,
	0xff, 0xff, 0x00, 0x1d, 0x1a, 0xa4, 0xae, 0x18,
}

// Header is a parsed 80-byte Bitcoin block header. Headers are
// immutable once constructed.
type Header struct {
	Version    int32
	PrevBlock  [32]byte // internal byte order (as transmitted, not reversed)
	MerkleRoot [32]byte
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

func NewHeader(version int32, prevBlock, merkleRoot [32]byte, timestamp, bits, nonce uint32) Header {
	return Header{
		Version:    version,
		PrevBlock:  prevBlock,
		MerkleRoot: merkleRoot,
		Timestamp:  timestamp,
		Bits:       bits,
		Nonce:      nonce,
	}
}

func ParseHeader(r io.Reader) (Header, error) {
	version, err := encoding.ReadInt32LE(r)
	if err != nil {
		return Header{}, fmt.Errorf("header parse error (version): %w", err)
	}

	prevBlock, err := encoding.ReadFixed(r, 32)
	if err != nil {
		return Header{}, fmt.Errorf("header parse error (prev block): %w", err)
	}

	merkleRoot, err := encoding.ReadFixed(r, 32)
	if err != nil {
		return Header{}, fmt.Errorf("header parse error (merkle root): %w", err)
	}

	timestamp, err := encoding.ReadUint32LE(r)
	if err != nil {
		return Header{}, fmt.Errorf("header parse error (time): %w", err)
	}

	bits, err := encoding.ReadUint32LE(r)
	if err != nil {
		return Header{}, fmt.Errorf("header parse error (bits): %w", err)
	}

	nonce, err := encoding.ReadUint32LE(r)
	if err != nil {
		return Header{}, fmt.Errorf("header parse error (nonce): %w", err)
	}

	h := Header{Timestamp: timestamp, Bits: bits, Nonce: nonce}
	h.Version = version
	copy(h.PrevBlock[:], prevBlock)
	copy(h.MerkleRoot[:], merkleRoot)
	return h, nil
}

func (h *Header) Serialize() []byte {
	buf := make([]byte, 0, headerSize)
	buf = append(buf, encoding.WriteInt32LE(h.Version)...)
	buf = append(buf, h.PrevBlock[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	buf = append(buf, encoding.WriteUint32LE(h.Timestamp)...)
	buf = append(buf, encoding.WriteUint32LE(h.Bits)...)
	buf = append(buf, encoding.WriteUint32LE(h.Nonce)...)
	return buf
}

// Hash is sha256d(serialization), in internal (little-endian) byte order.
func (h *Header) Hash() [32]byte {
	sum := encoding.Hash256(h.Serialize())
	var out [32]byte
	copy(out[:], sum)
	return out
}

// ID is the big-endian hex display form used by block explorers and
// the wallet RPC wire format.
func (h *Header) ID() string {
	hash := h.Hash()
	reversed := hash[:]
	slices.Reverse(reversed)
	return fmt.Sprintf("%x", reversed)
}

func (h *Header) Time() time.Time {
	return time.Unix(int64(h.Timestamp), 0)
}

func (h *Header) bitsToTarget() *big.Int {
	exponent := h.Bits >> 24
	coeff := h.Bits & bitsCoeffMask

	target := big.NewInt(int64(coeff))
	if exponent <= 3 {
		target.Rsh(target, uint(8*(3-exponent)))
	} else {
		target.Lsh(target, uint(8*(exponent-3)))
	}
	return target
}

// TargetToBits packs a target integer back into compact-bits form.
func TargetToBits(target *big.Int) uint32 {
	rawBytes := target.Bytes()
	if len(rawBytes) > 0 && rawBytes[0] > bitsHighBitMask {
		rawBytes = append([]byte{0x00}, rawBytes...)
	}
	exponent := uint32(len(rawBytes))

	var coefficient uint32
	if len(rawBytes) >= 1 {
		coefficient |= uint32(rawBytes[0]) << 16
	}
	if len(rawBytes) >= 2 {
		coefficient |= uint32(rawBytes[1]) << 8
	}
	if len(rawBytes) >= 3 {
		coefficient |= uint32(rawBytes[2])
	}
	return (exponent << 24) | coefficient
}

// ProofOfWork reports whether the little-endian-reversed header hash,
// read as a big integer, is below the nbits-decoded target.
func (h *Header) ProofOfWork() bool {
	hash := h.Hash()
	reversed := hash[:]
	slices.Reverse(reversed)
	proof := new(big.Int).SetBytes(reversed)
	return proof.Cmp(h.bitsToTarget()) < 0
}

func (h Header) Equal(other Header) bool {
	return bytes.Equal(h.Serialize(), other.Serialize())
}
