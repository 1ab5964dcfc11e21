package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestPack7RoundTrip(t *testing.T) {
	testCases := [][]byte{
		{},
		{0x00},
		{0x7F},
		{0x80},
		{0xFF},
		{0x01, 0x02, 0x03},
		{0xF0, 0xF7, 0x80, 0x7F}, // marker bytes must survive packing
		{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		bytes.Repeat([]byte{0xA5}, 20),
	}

	for i, want := range testCases {
		packed := pack7(want)
		for j, b := range packed {
			if b&0x80 != 0 {
				t.Errorf("case %d: packed byte %d is %#02x, not 7-bit clean", i, j, b)
			}
		}
		got, err := unpack7(packed)
		if err != nil {
			t.Errorf("case %d: unpack failed: %v", i, err)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("case %d: round trip gave % X, want % X", i, got, want)
		}
	}
}

func TestUnpack7Malformed(t *testing.T) {
	testCases := []struct {
		name   string
		packed []byte
	}{
		{"dangling header", []byte{0x01}},
		{"high bit in header", []byte{0x80, 0x01}},
		{"high bit in payload", []byte{0x00, 0x81}},
		{"header past group end", []byte{0x04, 0x01, 0x02}},
	}

	for _, tc := range testCases {
		if _, err := unpack7(tc.packed); !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("%s: got %v, want ErrMalformedFrame", tc.name, err)
		}
	}
}

func TestChecksum7(t *testing.T) {
	if got := checksum7(nil); got != 0 {
		t.Errorf("empty checksum = %#02x, want 0", got)
	}
	if got := checksum7([]byte{0x7F, 0x01}); got != 0x00 {
		t.Errorf("wraparound checksum = %#02x, want 0", got)
	}
	if got := checksum7([]byte{0x10, 0x20, 0x03}); got != 0x33 {
		t.Errorf("checksum = %#02x, want 0x33", got)
	}
}
