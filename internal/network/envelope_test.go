package network

import (
	"bytes"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	payload := []byte("hello")
	env, err := NewNetworkEnvelope("ping", payload, TestnetMagic)
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}

	serialized, err := env.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	parsed, err := ParseNetworkEnvelope(bytes.NewReader(serialized))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Command != "ping" {
		t.Fatalf("command = %q, want ping", parsed.Command)
	}
	if !bytes.Equal(parsed.Payload, payload) {
		t.Fatalf("payload = %q, want %q", parsed.Payload, payload)
	}
}

func TestEnvelopeRejectsBadChecksum(t *testing.T) {
	env, _ := NewNetworkEnvelope("ping", []byte("hello"), TestnetMagic)
	serialized, _ := env.Serialize()
	serialized[len(serialized)-1] ^= 0xff

	if _, err := ParseNetworkEnvelope(bytes.NewReader(serialized)); err == nil {
		t.Fatal("expected checksum mismatch to be rejected")
	}
}

func TestVersionMessageRoundTrip(t *testing.T) {
	vm := VersionMessage{
		ProtocolVersion: 70016,
		Services:        1033,
		Timestamp:       1700000000,
		ReceiverAddr:    NewNetAddr(0, [16]byte{}, 18333),
		SenderAddr:      NewNetAddr(0, [16]byte{}, 18333),
		Nonce:           123456789,
		UserAgent:       "/spvnode:0.1/",
		StartHeight:     100,
		Relay:           true,
	}

	payload, err := vm.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	parsed, err := ParseVersionMessage(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.ProtocolVersion != vm.ProtocolVersion || parsed.Services != vm.Services {
		t.Fatalf("round trip mismatch: %+v vs %+v", parsed, vm)
	}
	if parsed.UserAgent != vm.UserAgent {
		t.Fatalf("user agent = %q, want %q", parsed.UserAgent, vm.UserAgent)
	}
	if parsed.Relay != vm.Relay {
		t.Fatal("relay flag lost in round trip")
	}
}

func TestGetHeadersMessageSerializeLength(t *testing.T) {
	locators := [][32]byte{{1}, {2}}
	msg := NewGetHeadersMessage(70016, locators, [32]byte{})
	data, err := msg.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	want := 4 + 1 + 32*2 + 32
	if len(data) != want {
		t.Fatalf("serialized length = %d, want %d", len(data), want)
	}
}
