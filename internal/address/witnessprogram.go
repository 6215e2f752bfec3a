package address

import "fmt"

// WitnessProgram is a parsed segwit scriptPubKey's version + program, per
// spec §3/§4.5. Only version 0 with a 20-byte program (P2WPKH) validates —
// this node never pays to P2WSH or taproot outputs.
type WitnessProgram struct {
	Version byte
	Program []byte
}

// NewWitnessProgram validates and builds a WitnessProgram.
func NewWitnessProgram(version byte, program []byte) (WitnessProgram, error) {
	wp := WitnessProgram{Version: version, Program: program}
	if err := wp.Validate(); err != nil {
		return WitnessProgram{}, err
	}
	return wp, nil
}

// Validate accepts only version 0 with a 20-byte program, matching spec §4.5
// and §3 (P2WPKH only; 32-byte P2WSH programs are rejected by this node).
func (wp WitnessProgram) Validate() error {
	if wp.Version != 0 {
		return fmt.Errorf("unsupported witness version: %d", wp.Version)
	}
	if len(wp.Program) != 20 {
		return fmt.Errorf("invalid witness program length: %d (want 20)", len(wp.Program))
	}
	return nil
}

// ToAddress renders the Bech32 address for this program on the given
// network (always "tb" for TESTNET, per spec §4.5's testnet-only scope).
func (wp WitnessProgram) ToAddress(net Network) (string, error) {
	if err := wp.Validate(); err != nil {
		return "", err
	}
	return encodeBech32(wp.Version, wp.Program, net.Bech32HRP())
}

// PkScript returns the P2WPKH scriptPubKey `OP_0 <20-byte-hash>` for this
// program: 0x00 0x14 <program>.
func (wp WitnessProgram) PkScript() []byte {
	out := make([]byte, 0, 2+len(wp.Program))
	out = append(out, 0x00, byte(len(wp.Program)))
	out = append(out, wp.Program...)
	return out
}

// FromAddress decodes a Bech32 testnet P2WPKH address ("tb1..."/"TB1...")
// into its WitnessProgram, per spec §4.5: length 8-90, prefix tb/TB,
// consistent case, valid charset, valid polymod checksum, and a version-0
// 20-byte program.
func FromAddress(addr string) (WitnessProgram, error) {
	version, program, hrp, err := DecodeSegwitAddress(addr)
	if err != nil {
		return WitnessProgram{}, fmt.Errorf("bech32 decode: %w", err)
	}
	if hrp != "tb" {
		return WitnessProgram{}, fmt.Errorf("unsupported hrp %q (want testnet \"tb\")", hrp)
	}
	return NewWitnessProgram(version, program)
}

// PkScriptFromAddress decodes a testnet Bech32 address directly into its
// P2WPKH scriptPubKey bytes — the common case callers want.
func PkScriptFromAddress(addr string) ([]byte, error) {
	wp, err := FromAddress(addr)
	if err != nil {
		return nil, err
	}
	return wp.PkScript(), nil
}
