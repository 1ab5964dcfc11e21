package wire

import "fmt"

// pack7 rewrites arbitrary bytes into 7-bit-clean form: each group of up
// to seven data bytes is preceded by one byte holding their high bits
// (bit i for group member i). Nothing in the output can collide with a
// frame marker.
func pack7(data []byte) []byte {
	out := make([]byte, 0, len(data)+(len(data)+6)/7)
	for len(data) > 0 {
		n := len(data)
		if n > 7 {
			n = 7
		}
		var msb byte
		for i := 0; i < n; i++ {
			if data[i]&0x80 != 0 {
				msb |= 1 << uint(i)
			}
		}
		out = append(out, msb)
		for i := 0; i < n; i++ {
			out = append(out, data[i]&0x7F)
		}
		data = data[n:]
	}
	return out
}

// unpack7 reverses pack7. Any byte with its high bit set, or a group
// header with bits for bytes that never arrive, is a packing error.
func unpack7(packed []byte) ([]byte, error) {
	out := make([]byte, 0, len(packed))
	for len(packed) > 0 {
		msb := packed[0]
		packed = packed[1:]
		if msb&0x80 != 0 {
			return nil, fmt.Errorf("group header %#02x not 7-bit clean: %w", msb, ErrMalformedFrame)
		}
		n := len(packed)
		if n > 7 {
			n = 7
		}
		if n == 0 {
			return nil, fmt.Errorf("dangling group header: %w", ErrMalformedFrame)
		}
		if msb>>uint(n) != 0 {
			return nil, fmt.Errorf("group header %#02x refers past group end: %w", msb, ErrMalformedFrame)
		}
		for i := 0; i < n; i++ {
			b := packed[i]
			if b&0x80 != 0 {
				return nil, fmt.Errorf("payload byte %#02x not 7-bit clean: %w", b, ErrMalformedFrame)
			}
			if msb&(1<<uint(i)) != 0 {
				b |= 0x80
			}
			out = append(out, b)
		}
		packed = packed[n:]
	}
	return out, nil
}

// checksum7 sums the on-wire bytes between the start marker and the
// checksum cell, truncated to seven bits.
func checksum7(body []byte) byte {
	var sum byte
	for _, b := range body {
		sum += b
	}
	return sum & 0x7F
}
