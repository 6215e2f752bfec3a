package block

import (
	"bytes"
	"testing"
)

func TestGenesisHeaderProofOfWork(t *testing.T) {
	header, err := ParseHeader(bytes.NewReader(TestnetGenesisHeader[:]))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if header.Timestamp != 1296688602 {
		t.Fatalf("timestamp = %d, want 1296688602", header.Timestamp)
	}
	if header.Bits != 486604799 {
		t.Fatalf("bits = %d, want 486604799", header.Bits)
	}
	if header.Nonce != 414098458 {
		t.Fatalf("nonce = %d, want 414098458", header.Nonce)
	}
	if !header.ProofOfWork() {
		t.Fatal("expected genesis header to pass proof-of-work check")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	header, err := ParseHeader(bytes.NewReader(TestnetGenesisHeader[:]))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	serialized := header.Serialize()
	if len(serialized) != headerSize {
		t.Fatalf("serialized length = %d, want %d", len(serialized), headerSize)
	}
	if !bytes.Equal(serialized, TestnetGenesisHeader[:]) {
		t.Fatalf("round trip mismatch:\n got  % x\n want % x", serialized, TestnetGenesisHeader[:])
	}
}

func TestTargetToBitsInvertsDecoding(t *testing.T) {
	header, _ := ParseHeader(bytes.NewReader(TestnetGenesisHeader[:]))
	target := header.bitsToTarget()
	if got := TargetToBits(target); got != header.Bits {
		t.Fatalf("TargetToBits round trip = %#x, want %#x", got, header.Bits)
	}
}
