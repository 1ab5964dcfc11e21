package wire

import (
	"bytes"
	"fmt"
)

// Decode parses one complete on-wire message into a typed record. The
// input must be exactly one message as a transport delivers it: a single
// control change, a recognized register burst, or a framed command.
func Decode(msg []byte) (Record, error) {
	if len(msg) == 0 {
		return nil, fmt.Errorf("empty message: %w", ErrMalformedFrame)
	}
	if msg[0] == FrameStart {
		return decodeFrame(msg)
	}
	if msg[0]&0xF0 == ccStatus {
		return decodeControl(msg)
	}
	return nil, fmt.Errorf("unexpected status byte %#02x: %w", msg[0], ErrMalformedFrame)
}

func decodeControl(msg []byte) (Record, error) {
	switch len(msg) {
	case 3:
		if msg[1] > 127 || msg[2] > 127 {
			return nil, fmt.Errorf("data byte out of range: %w", ErrMalformedFrame)
		}
		return ControlValue{Channel: msg[0] & 0x0F, Controller: msg[1], Value: msg[2]}, nil
	case 18:
		return decodeLedBurst(msg)
	case 12:
		return decodeDisplayBurst(msg)
	}
	return nil, fmt.Errorf("control sequence of %d bytes: %w", len(msg), ErrMalformedFrame)
}

func decodeLedBurst(msg []byte) (Record, error) {
	regs := [6]byte{RegLedSelect, RegLedColor, RegLedMode, 0, 0, 0}
	vals := [6]byte{}
	for i := 0; i < 6; i++ {
		if msg[3*i] != ccStatus || msg[3*i+1] != regs[i] {
			return nil, fmt.Errorf("not an led burst: %w", ErrMalformedFrame)
		}
		vals[i] = msg[3*i+2]
	}
	c := LedCommand{Led: int(vals[0]), Color: Color(vals[1]), Mode: LedMode(vals[2])}
	if c.Led >= LedCount || c.Color > Yellow || c.Mode > Flash {
		return nil, fmt.Errorf("led burst out of range: %w", ErrMalformedFrame)
	}
	return c, nil
}

func decodeDisplayBurst(msg []byte) (Record, error) {
	cells := make([]byte, DisplayCols)
	for i := 0; i < DisplayCols; i++ {
		if msg[3*i] != ccStatus || msg[3*i+1] != RegDisplayBase+byte(i) {
			return nil, fmt.Errorf("not a display burst: %w", ErrMalformedFrame)
		}
		c := msg[3*i+2]
		if c > 127 {
			return nil, fmt.Errorf("display cell out of range: %w", ErrMalformedFrame)
		}
		cells[i] = c
	}
	return DisplayText{Text: string(cells)}, nil
}

func decodeFrame(msg []byte) (Record, error) {
	if len(msg) < 8 {
		return nil, fmt.Errorf("frame of %d bytes truncated: %w", len(msg), ErrMalformedFrame)
	}
	if msg[len(msg)-1] != FrameEnd {
		return nil, fmt.Errorf("frame not terminated: %w", ErrMalformedFrame)
	}
	if !bytes.Equal(msg[1:4], ManufacturerID[:]) {
		return nil, fmt.Errorf("foreign manufacturer % X: %w", msg[1:4], ErrMalformedFrame)
	}
	if msg[4] != DeviceID {
		return nil, fmt.Errorf("foreign device %#02x: %w", msg[4], ErrMalformedFrame)
	}
	body := msg[4 : len(msg)-2]
	if got, want := msg[len(msg)-2], checksum7(body); got != want {
		return nil, fmt.Errorf("checksum %#02x, computed %#02x: %w", got, want, ErrMalformedFrame)
	}
	cmd := msg[5]
	payload, err := unpack7(msg[6 : len(msg)-2])
	if err != nil {
		return nil, err
	}

	switch cmd {
	case CmdRequestStatus:
		if len(payload) != 0 {
			return nil, fmt.Errorf("status request carries payload: %w", ErrMalformedFrame)
		}
		return StatusRequest{}, nil

	case CmdStatusReport:
		if len(payload) != 4 {
			return nil, fmt.Errorf("status report of %d bytes: %w", len(payload), ErrMalformedFrame)
		}
		return StatusReport{
			FirmwareMajor: payload[0],
			FirmwareMinor: payload[1],
			Model:         payload[2],
			PadCount:      payload[3],
		}, nil

	case CmdSetCalibration:
		if len(payload) != 5 {
			return nil, fmt.Errorf("calibration of %d bytes: %w", len(payload), ErrMalformedFrame)
		}
		return CalibrationSet{
			Pad:      int(payload[0]),
			Baseline: uint16(payload[1])<<8 | uint16(payload[2]),
			Scale:    uint16(payload[3])<<8 | uint16(payload[4]),
		}, nil

	case CmdPressureBatch:
		if len(payload) < 3 {
			return nil, fmt.Errorf("batch header truncated: %w", ErrMalformedFrame)
		}
		count := int(payload[2])
		if len(payload) != 3+4*count {
			return nil, fmt.Errorf("batch of %d pads in %d bytes: %w", count, len(payload), ErrMalformedFrame)
		}
		b := PressureBatch{
			Frame:   uint16(payload[0])<<8 | uint16(payload[1]),
			Sensors: make([][4]uint8, count),
		}
		for i := 0; i < count; i++ {
			copy(b.Sensors[i][:], payload[3+4*i:])
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown command %#02x: %w", cmd, ErrMalformedFrame)
}
