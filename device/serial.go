package device

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.bug.st/serial"

	"softstep/debug"
	"softstep/wire"
)

// dinBaudRate is the classic five-pin MIDI rate.
const dinBaudRate = 31250

// serialTransport reads the controller as a raw byte stream and runs
// its own scanner, so partial messages, garbage and running status on
// the line are all handled here.
type serialTransport struct {
	path    string
	port    serial.Port
	scanner wire.Scanner
	queue   [][]byte
	readBuf []byte

	closed    atomic.Bool
	sendMu    sync.Mutex
	closeOnce sync.Once
}

func openSerial(path string) (Transport, error) {
	port, err := serial.Open(path, &serial.Mode{BaudRate: dinBaudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial %q: %w: %w", path, ErrDeviceNotFound, err)
	}
	debug.Log("device", "opened serial %q at %d baud", path, dinBaudRate)
	return &serialTransport{
		path:    path,
		port:    port,
		readBuf: make([]byte, 256),
	}, nil
}

func (t *serialTransport) Send(msg []byte) error {
	if t.closed.Load() {
		return ErrDisconnected
	}
	t.sendMu.Lock()
	defer t.sendMu.Unlock()
	if _, err := t.port.Write(msg); err != nil {
		return fmt.Errorf("serial write: %w: %w", ErrIO, err)
	}
	return nil
}

func (t *serialTransport) Receive() ([]byte, error) {
	for {
		if len(t.queue) > 0 {
			msg := t.queue[0]
			t.queue = t.queue[1:]
			return msg, nil
		}
		if t.closed.Load() {
			return nil, ErrDisconnected
		}

		n, err := t.port.Read(t.readBuf)
		if err != nil {
			if t.closed.Load() {
				return nil, ErrDisconnected
			}
			// A dead read means the cable or adapter went away.
			return nil, fmt.Errorf("serial read: %w: %w", ErrDisconnected, err)
		}
		t.queue = append(t.queue, t.scanner.Feed(t.readBuf[:n])...)
	}
}

func (t *serialTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.port.Close()
		stats := t.scanner.Stats()
		debug.Log("device", "closed serial %q: %d messages, %d bytes discarded, %d frames abandoned",
			t.path, stats.Messages, stats.Discarded, stats.Abandoned)
	})
	return nil
}

func (t *serialTransport) String() string {
	return t.path
}
