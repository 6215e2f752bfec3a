package encoding

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160"
)

const SIGHASH_ALL uint32 = 0x01

// Hash256 is sha256d: sha256(sha256(data)).
func Hash256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

func Hash160(data []byte) []byte {
	h1 := sha256.Sum256(data)

	hasher := ripemd160.New()
	hasher.Write(h1[:])
	return hasher.Sum(nil)
}

func BytesToBitField(data []byte) []byte {
	flagBits := make([]byte, 0, len(data)*8)
	for _, b := range data {
		for i := 0; i < 8; i++ {
			flagBits = append(flagBits, b&1)
			b >>= 1
		}
	}
	return flagBits
}

func BitFieldToBytes(bitField []byte) ([]byte, error) {
	if len(bitField)%8 != 0 {
		// pad with zero bits to the next byte boundary
		padded := make([]byte, len(bitField), ((len(bitField)/8)+1)*8)
		copy(padded, bitField)
		bitField = padded[:cap(padded)]
	}
	result := make([]byte, len(bitField)/8)
	for i, bit := range bitField {
		byteIndex := i / 8
		bitIndex := i % 8
		if bit != byte(0x00) {
			result[byteIndex] |= (1 << byte(bitIndex))
		}
	}
	return result, nil
}
