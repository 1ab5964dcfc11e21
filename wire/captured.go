package wire

// Captured configuration messages, sniffed off the vendor's own editor.
// Their interior is the vendor's 0x01 preset format and carries its own
// checksums, so they are replayed verbatim rather than built through
// encodeFrame. The standalone/tether pairs are named by their flag byte;
// which flag means what only shows in the send order below.

var standalone0 = []byte{
	0xF0, 0x00, 0x1B, 0x48, 0x7A, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x09, 0x00, 0x0B,
	0x2B, 0x3A, 0x00, 0x10, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x17, 0x1F, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF7,
}

var standalone1 = []byte{
	0xF0, 0x00, 0x1B, 0x48, 0x7A, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x09, 0x00, 0x0B,
	0x2B, 0x3A, 0x00, 0x10, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x2F, 0x7E, 0x00, 0x00, 0x00, 0x00, 0x02, 0xF7,
}

var tether0 = []byte{
	0xF0, 0x00, 0x1B, 0x48, 0x7A, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x09, 0x00, 0x0B,
	0x2B, 0x3A, 0x00, 0x10, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x50, 0x07, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF7,
}

var tether1 = []byte{
	0xF0, 0x00, 0x1B, 0x48, 0x7A, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x09, 0x00, 0x0B,
	0x2B, 0x3A, 0x00, 0x10, 0x03, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x68, 0x66, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF7,
}

var backlightOff = []byte{
	0xF0, 0x00, 0x1B, 0x48, 0x7A, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x04, 0x00, 0x05,
	0x08, 0x25, 0x00, 0x20, 0x00, 0x00, 0x4C, 0x1C, 0x00, 0x00, 0x00,
	0x0C, 0xF7,
}

var backlightOn = []byte{
	0xF0, 0x00, 0x1B, 0x48, 0x7A, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x04, 0x00, 0x05,
	0x08, 0x25, 0x01, 0x20, 0x00, 0x00, 0x7B, 0x2C, 0x00, 0x00, 0x00,
	0x0C, 0xF7,
}

// EncodeBacklight returns the captured message toggling the LCD
// backlight.
func EncodeBacklight(on bool) []byte {
	if on {
		return clone(backlightOn)
	}
	return clone(backlightOff)
}

// EncodeModeSelect returns the captured message pair switching the
// device between standalone and hosted operation. Both messages must be
// sent, in order.
func EncodeModeSelect(standalone bool) [][]byte {
	if standalone {
		return [][]byte{clone(standalone0), clone(tether1)}
	}
	return [][]byte{clone(standalone1), clone(tether0)}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
