package wire

import "fmt"

// Encode renders a record into the exact bytes the device expects.
// Register groups (LEDs, display) become control-change bursts; the
// configuration commands become framed messages.
func Encode(r Record) ([]byte, error) {
	switch v := r.(type) {
	case ControlValue:
		return encodeControl(v)
	case LedCommand:
		return EncodeLed(v)
	case DisplayText:
		return EncodeDisplay(v.Text), nil
	case CalibrationSet:
		return EncodeCalibration(v)
	case StatusRequest:
		return EncodeStatusRequest(), nil
	case StatusReport:
		return encodeFrame(CmdStatusReport, []byte{
			v.FirmwareMajor, v.FirmwareMinor, v.Model, v.PadCount,
		}), nil
	case PressureBatch:
		return EncodePressureBatch(v)
	}
	return nil, fmt.Errorf("unencodable record %T: %w", r, ErrMalformedFrame)
}

func encodeControl(c ControlValue) ([]byte, error) {
	if c.Channel > 15 || c.Controller > 127 || c.Value > 127 {
		return nil, fmt.Errorf("control value out of range: %w", ErrMalformedFrame)
	}
	return []byte{ccStatus | c.Channel, c.Controller, c.Value}, nil
}

// EncodeLed renders one LED write as the six-message register burst the
// firmware wants: select, color, mode, then three zero writes.
func EncodeLed(c LedCommand) ([]byte, error) {
	if c.Led < 0 || c.Led >= LedCount {
		return nil, fmt.Errorf("led index %d out of range: %w", c.Led, ErrMalformedFrame)
	}
	if c.Color > Yellow {
		return nil, fmt.Errorf("led color %d out of range: %w", c.Color, ErrMalformedFrame)
	}
	if c.Mode > Flash {
		return nil, fmt.Errorf("led mode %d out of range: %w", c.Mode, ErrMalformedFrame)
	}
	return []byte{
		ccStatus, RegLedSelect, byte(c.Led),
		ccStatus, RegLedColor, byte(c.Color),
		ccStatus, RegLedMode, byte(c.Mode),
		ccStatus, 0, 0,
		ccStatus, 0, 0,
		ccStatus, 0, 0,
	}, nil
}

// EncodeDisplay renders text into the four character-cell registers.
// Input is fitted first, so any string is safe to pass.
func EncodeDisplay(text string) []byte {
	text = FitDisplay(text)
	out := make([]byte, 0, 3*DisplayCols)
	for i := 0; i < DisplayCols; i++ {
		out = append(out, ccStatus, RegDisplayBase+byte(i), text[i])
	}
	return out
}

// FitDisplay normalizes text for the LCD: truncated to four characters,
// space padded, anything outside printable ASCII replaced by a space.
func FitDisplay(text string) string {
	cells := []byte("    ")
	for i := 0; i < len(text) && i < DisplayCols; i++ {
		c := text[i]
		if c < 0x20 || c > 0x7E {
			c = ' '
		}
		cells[i] = c
	}
	return string(cells)
}

// EncodeCalibration frames a calibration push for one pad.
func EncodeCalibration(c CalibrationSet) ([]byte, error) {
	if c.Pad < 0 || c.Pad > 127 {
		return nil, fmt.Errorf("pad index %d out of range: %w", c.Pad, ErrMalformedFrame)
	}
	return encodeFrame(CmdSetCalibration, []byte{
		byte(c.Pad),
		byte(c.Baseline >> 8), byte(c.Baseline),
		byte(c.Scale >> 8), byte(c.Scale),
	}), nil
}

// EncodeStatusRequest frames an empty status query.
func EncodeStatusRequest() []byte {
	return encodeFrame(CmdRequestStatus, nil)
}

// EncodePressureBatch frames a bulk sensor report.
func EncodePressureBatch(b PressureBatch) ([]byte, error) {
	if len(b.Sensors) > 32 {
		return nil, fmt.Errorf("batch of %d pads too large: %w", len(b.Sensors), ErrMalformedFrame)
	}
	payload := make([]byte, 0, 3+4*len(b.Sensors))
	payload = append(payload, byte(b.Frame>>8), byte(b.Frame), byte(len(b.Sensors)))
	for _, s := range b.Sensors {
		payload = append(payload, s[0], s[1], s[2], s[3])
	}
	return encodeFrame(CmdPressureBatch, payload), nil
}

// encodeFrame wraps a command and payload in the vendor envelope:
// start marker, manufacturer, device, command, 7-bit packed payload,
// checksum, end marker.
func encodeFrame(cmd byte, payload []byte) []byte {
	packed := pack7(payload)
	msg := make([]byte, 0, len(packed)+8)
	msg = append(msg, FrameStart)
	msg = append(msg, ManufacturerID[:]...)
	msg = append(msg, DeviceID, cmd)
	msg = append(msg, packed...)
	msg = append(msg, checksum7(msg[4:]))
	msg = append(msg, FrameEnd)
	return msg
}
