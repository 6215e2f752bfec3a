package address

import (
	"reflect"
	"testing"
)

func TestFromAddressKnownVector(t *testing.T) {
	pkScript, err := PkScriptFromAddress("tb1qnhm3x5sndagu8v6yq3jqn4cw38szgvxdydxxtc")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	want := []byte{0, 20, 157, 247, 19, 82, 19, 111, 81, 195, 179, 68, 4, 100, 9, 215, 14, 137, 224, 36, 48, 205}
	if !reflect.DeepEqual(pkScript, want) {
		t.Errorf("got % x\nwant % x", pkScript, want)
	}
}

func TestFromAddressRejectsWrongNetwork(t *testing.T) {
	if _, err := FromAddress("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"); err == nil {
		t.Fatal("expected mainnet address to be rejected")
	}
}

func TestFromAddressRoundTrip(t *testing.T) {
	addr := "tb1qnhm3x5sndagu8v6yq3jqn4cw38szgvxdydxxtc"
	wp, err := FromAddress(addr)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := wp.ToAddress(TESTNET)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got != addr {
		t.Errorf("round trip mismatch: got %s want %s", got, addr)
	}
}

func TestWitnessProgramValidateRejectsWrongLength(t *testing.T) {
	if _, err := NewWitnessProgram(0, make([]byte, 32)); err == nil {
		t.Fatal("expected 32-byte program to be rejected (P2WSH not accepted)")
	}
	if _, err := NewWitnessProgram(1, make([]byte, 20)); err == nil {
		t.Fatal("expected non-zero witness version to be rejected")
	}
}
