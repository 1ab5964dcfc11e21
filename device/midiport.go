package device

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"softstep/debug"
	"softstep/wire"
)

// midiTransport speaks to the controller through a USB MIDI port pair.
// The driver hands us complete messages, so no scanner sits on this
// path.
type midiTransport struct {
	name     string
	send     func(msg gomidi.Message) error
	stopFunc func()

	recv chan []byte
	done chan struct{}

	sendMu    sync.Mutex
	closeOnce sync.Once
}

func openMIDI(selector string) (Transport, error) {
	inPort, outPort, err := findPorts(selector)
	if err != nil {
		return nil, err
	}

	t := &midiTransport{
		name: inPort.String(),
		recv: make(chan []byte, 256),
		done: make(chan struct{}),
	}

	send, err := gomidi.SendTo(outPort)
	if err != nil {
		return nil, fmt.Errorf("open output %q: %w", outPort.String(), err)
	}
	t.send = send

	stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
		b := make([]byte, len(msg))
		copy(b, msg)
		select {
		case t.recv <- b:
		default:
			debug.Log("device", "receive queue full, dropping %d bytes", len(b))
		}
	}, gomidi.UseSysEx(), gomidi.SysExBufferSize(1024), gomidi.HandleError(func(listenErr error) {
		debug.Log("device", "listen error on %q: %v", t.name, listenErr)
	}))
	if err != nil {
		return nil, fmt.Errorf("open input %q: %w", inPort.String(), err)
	}
	t.stopFunc = stop

	debug.Log("device", "opened midi pair %q", t.name)
	return t, nil
}

// findPorts resolves the input port matching the selector and its
// output twin. The controller names both directions identically, so an
// exact name match is tried before falling back to the selector.
func findPorts(selector string) (drivers.In, drivers.Out, error) {
	var inPort drivers.In
	for _, in := range gomidi.GetInPorts() {
		if matchesPort(in.String(), selector) {
			inPort = in
			break
		}
	}
	if inPort == nil {
		return nil, nil, fmt.Errorf("no input port matching %q: %w", selector, ErrDeviceNotFound)
	}

	var outPort drivers.Out
	for _, out := range gomidi.GetOutPorts() {
		if out.String() == inPort.String() {
			outPort = out
			break
		}
		if outPort == nil && matchesPort(out.String(), selector) {
			outPort = out
		}
	}
	if outPort == nil {
		return nil, nil, fmt.Errorf("no output port matching %q: %w", selector, ErrDeviceNotFound)
	}
	return inPort, outPort, nil
}

func (t *midiTransport) Send(msg []byte) error {
	select {
	case <-t.done:
		return ErrDisconnected
	default:
	}

	t.sendMu.Lock()
	defer t.sendMu.Unlock()
	// Register bursts are several channel messages back to back; the
	// driver wants them one at a time.
	for _, part := range splitWire(msg) {
		if err := t.send(gomidi.Message(part)); err != nil {
			return fmt.Errorf("midi send: %w: %w", ErrIO, err)
		}
	}
	return nil
}

func (t *midiTransport) Receive() ([]byte, error) {
	select {
	case <-t.done:
		return nil, ErrDisconnected
	default:
	}
	select {
	case msg := <-t.recv:
		return msg, nil
	case <-t.done:
		return nil, ErrDisconnected
	}
}

func (t *midiTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		if t.stopFunc != nil {
			t.stopFunc()
		}
		debug.Log("device", "closed midi pair %q", t.name)
	})
	return nil
}

func (t *midiTransport) String() string {
	return t.name
}

// splitWire cuts a wire message into driver-sized sends: frames go
// whole, channel message runs go three bytes at a time.
func splitWire(msg []byte) [][]byte {
	if len(msg) == 0 || msg[0] == wire.FrameStart || len(msg) <= 3 {
		return [][]byte{msg}
	}
	parts := make([][]byte, 0, len(msg)/3)
	for len(msg) >= 3 {
		parts = append(parts, msg[:3])
		msg = msg[3:]
	}
	if len(msg) > 0 {
		parts = append(parts, msg)
	}
	return parts
}
