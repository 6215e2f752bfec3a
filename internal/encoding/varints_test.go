package encoding

import (
	"bytes"
	"testing"
)

func TestCompactSizeBoundaries(t *testing.T) {
	cases := []struct {
		value uint64
		want  []byte
	}{
		{252, []byte{0xfc}},
		{253, []byte{0xfd, 0xfd, 0x00}},
		{0xffff, []byte{0xfd, 0xff, 0xff}},
		{0x10000, []byte{0xfe, 0x00, 0x00, 0x01, 0x00}},
		{0xffffffff, []byte{0xfe, 0xff, 0xff, 0xff, 0xff}},
		{0x100000000, []byte{0xff, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}},
	}
	for _, c := range cases {
		got, err := EncodeVarInt(c.value)
		if err != nil {
			t.Fatalf("encode(%d): %v", c.value, err)
		}
		if !bytes.Equal(got, c.want) {
			t.Errorf("encode(%d) = % x, want % x", c.value, got, c.want)
		}
		roundTrip, err := ReadVarInt(bytes.NewReader(got))
		if err != nil {
			t.Fatalf("decode(%x): %v", got, err)
		}
		if roundTrip != c.value {
			t.Errorf("round trip %d: got %d", c.value, roundTrip)
		}
	}
}

func TestCompactSizeShortRead(t *testing.T) {
	if _, err := ReadVarInt(bytes.NewReader([]byte{0xfd, 0x01})); err == nil {
		t.Fatal("expected short-read error")
	}
}
