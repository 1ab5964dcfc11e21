// Package wire implements the SoftStep message codec: the control-change
// vocabulary the device speaks natively and the framed system-exclusive
// envelope used for configuration traffic.
package wire

import "errors"

// ErrMalformedFrame reports input that cannot be decoded: bad markers, a
// truncated frame, the wrong manufacturer or device ID, a checksum
// mismatch, or broken payload packing. Callers count these and resync;
// a malformed frame never carries partial data.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame markers and the vendor envelope.
const (
	FrameStart = 0xF0
	FrameEnd   = 0xF7

	DeviceID = 0x7A
)

// ManufacturerID is the three-byte vendor prefix carried by every framed
// message (Keith McMillen Instruments).
var ManufacturerID = [3]byte{0x00, 0x1B, 0x48}

// Framed command IDs. The 0x01 family is reserved by the vendor's own
// configuration dumps (see captured.go); these stay clear of it.
const (
	CmdRequestStatus  = 0x10
	CmdStatusReport   = 0x11
	CmdSetCalibration = 0x14
	CmdPressureBatch  = 0x20
)

// Control-change registers. The select/color/mode group is write-only;
// reads on the same numbers are pressure reports from the first pads.
const (
	ccStatus = 0xB0 // control change, channel 0

	RegLedSelect = 40
	RegLedColor  = 41
	RegLedMode   = 42

	RegDisplayBase = 50 // four character cells, 50..53

	RegPadBase  = 40 // pad sensor CCs: base + 4*pad slot, offsets 0..3
	RegNavBase  = 80 // nav cluster: left, right, up, down
	RegPedalCC  = 86 // expression pedal, value inverted by the hardware
	DisplayCols = 4
	LedCount    = 10
)

// Color selects one of the tri-color LED elements.
type Color uint8

const (
	Green  Color = 0
	Red    Color = 1
	Yellow Color = 2
)

func (c Color) String() string {
	switch c {
	case Green:
		return "green"
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	}
	return "invalid"
}

// LedMode selects the LED animation program.
type LedMode uint8

const (
	Off       LedMode = 0
	On        LedMode = 1
	Blink     LedMode = 2
	FastBlink LedMode = 3
	Flash     LedMode = 4
)

func (m LedMode) String() string {
	switch m {
	case Off:
		return "off"
	case On:
		return "on"
	case Blink:
		return "blink"
	case FastBlink:
		return "fastblink"
	case Flash:
		return "flash"
	}
	return "invalid"
}

// Record is a decoded wire message.
type Record interface {
	record()
}

// ControlValue is a single control-change message: a raw sensor report on
// input, or a bare register write on output.
type ControlValue struct {
	Channel    uint8
	Controller uint8
	Value      uint8
}

// LedCommand addresses one pad LED. Led indices are zero-based on the
// wire even though the printed pad labels start at 1.
type LedCommand struct {
	Led   int
	Color Color
	Mode  LedMode
}

// DisplayText carries the four character cells of the LCD.
type DisplayText struct {
	Text string
}

// CalibrationSet pushes a pad's zero offset and gain to the device.
// Scale is Q8.8 fixed point.
type CalibrationSet struct {
	Pad      int
	Baseline uint16
	Scale    uint16
}

// StatusRequest asks the device to report firmware and model info.
type StatusRequest struct{}

// StatusReport is the device's answer to StatusRequest.
type StatusReport struct {
	FirmwareMajor uint8
	FirmwareMinor uint8
	Model         uint8
	PadCount      uint8
}

// PressureBatch is the firmware's bulk reporting mode: one frame counter
// plus all four sensor values for every pad, in pad-slot order.
type PressureBatch struct {
	Frame   uint16
	Sensors [][4]uint8
}

func (ControlValue) record()   {}
func (LedCommand) record()     {}
func (DisplayText) record()    {}
func (CalibrationSet) record() {}
func (StatusRequest) record()  {}
func (StatusReport) record()   {}
func (PressureBatch) record()  {}
