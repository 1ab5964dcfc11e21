// Package device finds and opens SoftStep endpoints. The controller
// normally shows up as a USB MIDI port pair, but a raw serial path works
// too for DIN-wired or bridged setups.
package device

import (
	"errors"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
	"go.bug.st/serial"

	"softstep/debug"
)

var (
	// ErrDeviceNotFound means no endpoint matched the selector.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrDisconnected means the endpoint is closed or the device went
	// away. Receive returns it forever once it happens.
	ErrDisconnected = errors.New("device disconnected")
	// ErrIO marks a send that failed without losing the endpoint.
	ErrIO = errors.New("device i/o error")
)

// DefaultName is the port name the controller registers over USB.
const DefaultName = "SSCOM"

const serialPrefix = "serial:"

// Transport moves complete wire messages to and from one device.
type Transport interface {
	// Send writes one complete message. Safe for concurrent use.
	Send(msg []byte) error
	// Receive blocks until the next complete message arrives. At most
	// one goroutine may call it. After Close, or once the device is
	// gone, every call returns ErrDisconnected.
	Receive() ([]byte, error)
	// Close releases the endpoint and unblocks a pending Receive.
	// Closing twice is harmless.
	Close() error
	// String names the endpoint for logs.
	String() string
}

// PortInfo describes one openable endpoint.
type PortInfo struct {
	Name     string // port name or device path
	Selector string // value to hand to Open
	Serial   bool
	Likely   bool // name suggests it is the controller
}

// List enumerates candidate endpoints: MIDI input ports first, then raw
// serial ports. A serial listing failure still returns the MIDI half.
func List() ([]PortInfo, error) {
	var out []PortInfo
	for _, in := range gomidi.GetInPorts() {
		name := in.String()
		out = append(out, PortInfo{Name: name, Selector: name, Likely: likelyName(name)})
	}
	paths, err := serial.GetPortsList()
	if err != nil {
		debug.Log("device", "serial listing failed: %v", err)
		return out, nil
	}
	for _, p := range paths {
		out = append(out, PortInfo{Name: p, Selector: serialPrefix + p, Serial: true})
	}
	return out, nil
}

// Open resolves a selector to a transport. A "serial:" prefix opens the
// named path as a raw byte stream; anything else is a case-insensitive
// substring match on MIDI port names. An empty selector matches the
// controller's usual port name.
func Open(selector string) (Transport, error) {
	if selector == "" {
		selector = DefaultName
	}
	if path, ok := strings.CutPrefix(selector, serialPrefix); ok {
		return openSerial(path)
	}
	return openMIDI(selector)
}

func likelyName(name string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(DefaultName))
}

func matchesPort(name, selector string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(selector))
}
