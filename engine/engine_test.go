package engine

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"softstep/config"
	"softstep/device"
	"softstep/wire"
)

// fakeTransport stands in for a controller: scripted input, captured
// output.
type fakeTransport struct {
	mu      sync.Mutex
	sent    [][]byte
	in      chan []byte
	closed  chan struct{}
	once    sync.Once
	sendErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:     make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (t *fakeTransport) Send(msg []byte) error {
	if t.sendErr != nil {
		return t.sendErr
	}
	cp := append([]byte(nil), msg...)
	t.mu.Lock()
	t.sent = append(t.sent, cp)
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) Receive() ([]byte, error) {
	select {
	case msg, ok := <-t.in:
		if !ok {
			return nil, device.ErrDisconnected
		}
		return msg, nil
	case <-t.closed:
		return nil, device.ErrDisconnected
	}
}

func (t *fakeTransport) Close() error {
	t.once.Do(func() { close(t.closed) })
	return nil
}

func (t *fakeTransport) String() string { return "fake" }

func (t *fakeTransport) feed(msg []byte) { t.in <- msg }

func (t *fakeTransport) take() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.sent
	t.sent = nil
	return out
}

// testProfile is SoftStep 2 thresholds with holds pushed out of the
// way, so event tests never race the hold clock.
func testProfile() *config.Profile {
	p := config.SoftStep2()
	p.Thresholds.HoldAfter = time.Hour
	return &p
}

func openTestEngine(t *testing.T, fake *fakeTransport, profile *config.Profile) *Engine {
	t.Helper()
	e, err := Open(Options{Transport: fake, Profile: profile})
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	return e
}

func waitEvent(t *testing.T, ch <-chan PadEvent) PadEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a pad event")
		return PadEvent{}
	}
}

func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestEngineOpenPaintsDevice(t *testing.T) {
	fake := newFakeTransport()
	e := openTestEngine(t, fake, testProfile())
	defer e.Close()

	sent := fake.take()
	want := 2 + 1 + 2*wire.LedCount // mode select pair, banner, all LEDs off
	if len(sent) != want {
		t.Fatalf("open wrote %d messages, want %d", len(sent), want)
	}

	pair := wire.EncodeModeSelect(false)
	if !bytes.Equal(sent[0], pair[0]) || !bytes.Equal(sent[1], pair[1]) {
		t.Errorf("open did not start with the tethered mode pair")
	}

	var banner string
	leds := 0
	for _, msg := range sent[2:] {
		rec, err := wire.Decode(msg)
		if err != nil {
			t.Fatalf("open wrote an undecodable message: %v", err)
		}
		switch rec := rec.(type) {
		case wire.DisplayText:
			banner = rec.Text
		case wire.LedCommand:
			if rec.Mode != wire.Off {
				t.Errorf("open lit led %d", rec.Led)
			}
			leds++
		default:
			t.Errorf("unexpected open message %T", rec)
		}
	}
	if banner != "HELO" {
		t.Errorf("banner = %q, want HELO", banner)
	}
	if leds != 2*wire.LedCount {
		t.Errorf("open cleared %d led writes, want %d", leds, 2*wire.LedCount)
	}
}

func TestEngineExclusiveSession(t *testing.T) {
	fake := newFakeTransport()
	e := openTestEngine(t, fake, testProfile())

	if _, err := Open(Options{Transport: newFakeTransport(), Profile: testProfile()}); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second open error = %v, want ErrSessionActive", err)
	}

	e.Close()

	e2 := openTestEngine(t, newFakeTransport(), testProfile())
	e2.Close()
}

func TestEngineOpenFailureReleasesSession(t *testing.T) {
	broken := newFakeTransport()
	broken.sendErr = errors.New("cable fell out")

	if _, err := Open(Options{Transport: broken, Profile: testProfile()}); err == nil {
		t.Fatalf("open succeeded over a dead transport")
	}

	e := openTestEngine(t, newFakeTransport(), testProfile())
	e.Close()
}

func TestEnginePressEvents(t *testing.T) {
	fake := newFakeTransport()
	e := openTestEngine(t, fake, testProfile())
	defer e.Close()

	events := make(chan PadEvent, 64)
	e.Subscribe(HandlerFunc(func(ev PadEvent) { events <- ev }))

	// pad "1", top sensor, 80/127 of full scale
	fake.feed([]byte{0xB0, 44, 80})

	press := float64(80) / 127
	first := waitEvent(t, events)
	if first.Type != Pressed || first.Pad != 0 || first.Direction != Center || !near(first.Pressure, press) {
		t.Fatalf("first event = %+v, want center press on pad 0", first)
	}
	second := waitEvent(t, events)
	if second.Type != Pressed || second.Direction != Up || !near(second.Pressure, press) {
		t.Fatalf("second event = %+v, want up press on pad 0", second)
	}

	if got := e.Pressure(0, Up); !near(got, press) {
		t.Errorf("Pressure(0, up) = %v, want %v", got, press)
	}
	if got := e.PadPhase(0, Center); got != PhasePressed {
		t.Errorf("PadPhase(0, center) = %v, want pressed", got)
	}

	fake.feed([]byte{0xB0, 44, 0})
	third := waitEvent(t, events)
	fourth := waitEvent(t, events)
	if third.Type != Released || third.Direction != Center {
		t.Fatalf("third event = %+v, want center release", third)
	}
	if fourth.Type != Released || fourth.Direction != Up {
		t.Fatalf("fourth event = %+v, want up release", fourth)
	}

	if got := e.PadPhase(0, Center); got != PhaseIdle {
		t.Errorf("PadPhase(0, center) after release = %v, want idle", got)
	}
}

func TestEngineBatchEvents(t *testing.T) {
	fake := newFakeTransport()
	e := openTestEngine(t, fake, testProfile())
	defer e.Close()

	events := make(chan PadEvent, 64)
	e.Subscribe(HandlerFunc(func(ev PadEvent) { events <- ev }))

	msg, err := wire.EncodePressureBatch(wire.PressureBatch{
		Frame:   7,
		Sensors: [][4]uint8{{0, 0, 0, 0}, {90, 0, 0, 0}},
	})
	if err != nil {
		t.Fatalf("encode batch: %v", err)
	}
	fake.feed(msg)

	first := waitEvent(t, events)
	if first.Type != Pressed || first.Pad != 1 || first.Direction != Center {
		t.Fatalf("first batch event = %+v, want center press on pad 1", first)
	}
	second := waitEvent(t, events)
	if second.Type != Pressed || second.Pad != 1 || second.Direction != Up {
		t.Fatalf("second batch event = %+v, want up press on pad 1", second)
	}
}

func TestEngineHoldPromotion(t *testing.T) {
	profile := testProfile()
	profile.Thresholds.HoldAfter = 30 * time.Millisecond

	fake := newFakeTransport()
	e, err := Open(Options{Transport: fake, Profile: profile, HoldTick: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	defer e.Close()

	events := make(chan PadEvent, 64)
	e.Subscribe(HandlerFunc(func(ev PadEvent) { events <- ev }))

	fake.feed([]byte{0xB0, 44, 80})
	waitEvent(t, events) // center press
	waitEvent(t, events) // up press

	// the press is steady - no more samples - so only the ticker can
	// promote it
	held := waitEvent(t, events)
	if held.Type != Held || held.Direction != Center {
		t.Fatalf("event after steady press = %+v, want center hold", held)
	}
	held = waitEvent(t, events)
	if held.Type != Held || held.Direction != Up {
		t.Fatalf("second hold event = %+v, want up hold", held)
	}
	if got := e.PadPhase(0, Center); got != PhaseHeld {
		t.Errorf("PadPhase(0, center) = %v, want held", got)
	}
}

func TestEngineMalformedCounted(t *testing.T) {
	fake := newFakeTransport()
	e := openTestEngine(t, fake, testProfile())
	defer e.Close()

	events := make(chan PadEvent, 64)
	e.Subscribe(HandlerFunc(func(ev PadEvent) { events <- ev }))

	fake.feed([]byte{0xB0, 44}) // truncated control change

	eventually(t, func() bool { return e.Stats().Malformed == 1 }, "malformed counter")
	if got := e.Stats().Frames; got != 1 {
		t.Errorf("frames = %d, want 1", got)
	}
	select {
	case ev := <-events:
		t.Errorf("malformed input produced event %+v", ev)
	default:
	}
}

func TestEngineStatusReport(t *testing.T) {
	fake := newFakeTransport()
	e := openTestEngine(t, fake, testProfile())
	defer e.Close()

	if err := e.RequestStatus(); err != nil {
		t.Fatalf("request status: %v", err)
	}
	sent := fake.take()
	if len(sent) != 1 {
		t.Fatalf("request wrote %d messages, want 1", len(sent))
	}
	if rec, err := wire.Decode(sent[0]); err != nil {
		t.Fatalf("decode status request: %v", err)
	} else if _, ok := rec.(wire.StatusRequest); !ok {
		t.Fatalf("request decoded as %T", rec)
	}

	report := wire.StatusReport{FirmwareMajor: 2, FirmwareMinor: 1, Model: 1, PadCount: 10}
	msg, err := wire.Encode(report)
	if err != nil {
		t.Fatalf("encode status report: %v", err)
	}
	fake.feed(msg)

	eventually(t, func() bool { _, ok := e.Status(); return ok }, "status report")
	if got, _ := e.Status(); got != report {
		t.Errorf("status = %+v, want %+v", got, report)
	}
}

func TestEngineDisconnect(t *testing.T) {
	fake := newFakeTransport()
	e := openTestEngine(t, fake, testProfile())

	close(fake.in) // the device vanishes mid-session

	select {
	case <-e.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session never noticed the disconnect")
	}
	if err := e.Err(); !errors.Is(err, device.ErrDisconnected) {
		t.Errorf("Err() = %v, want ErrDisconnected", err)
	}

	// Close after a disconnect releases the session for the next open
	e.Close()
	e2 := openTestEngine(t, newFakeTransport(), testProfile())
	e2.Close()
}

func TestEngineCloseRestoresStandalone(t *testing.T) {
	fake := newFakeTransport()
	e, err := Open(Options{Transport: fake, Profile: testProfile(), RestoreStandalone: true})
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	fake.take()

	e.Close()
	sent := fake.take()
	if len(sent) < 3 {
		t.Fatalf("close wrote %d messages, want farewell plus mode pair", len(sent))
	}

	var farewell string
	for _, msg := range sent {
		if rec, err := wire.Decode(msg); err == nil {
			if text, ok := rec.(wire.DisplayText); ok {
				farewell = text.Text
			}
		}
	}
	if farewell != "Bye " {
		t.Errorf("farewell display = %q, want \"Bye \"", farewell)
	}

	pair := wire.EncodeModeSelect(true)
	n := len(sent)
	if !bytes.Equal(sent[n-2], pair[0]) || !bytes.Equal(sent[n-1], pair[1]) {
		t.Errorf("close did not end with the standalone mode pair")
	}
}

func TestEngineCalibrationPush(t *testing.T) {
	fake := newFakeTransport()
	e := openTestEngine(t, fake, testProfile())
	defer e.Close()
	fake.take()

	if err := e.SetRange(14, 0.25, 0.75); err != nil {
		t.Fatalf("SetRange: %v", err)
	}
	sent := fake.take()
	if len(sent) != 1 {
		t.Fatalf("SetRange wrote %d messages, want 1", len(sent))
	}
	rec, err := wire.Decode(sent[0])
	if err != nil {
		t.Fatalf("decode calibration push: %v", err)
	}
	cal, ok := rec.(wire.CalibrationSet)
	if !ok {
		t.Fatalf("push decoded as %T", rec)
	}
	if cal.Pad != 14 {
		t.Errorf("pushed pad %d, want 14", cal.Pad)
	}
	if cal.Baseline != 64 { // 0.25 in 8.8 fixed point
		t.Errorf("pushed baseline %d, want 64", cal.Baseline)
	}
	if cal.Scale != 512 { // gain 2 in 8.8 fixed point
		t.Errorf("pushed scale %d, want 512", cal.Scale)
	}

	if err := e.SetRange(99, 0, 1); !errors.Is(err, ErrInvalidCalibration) {
		t.Errorf("out of range pad error = %v, want ErrInvalidCalibration", err)
	}
}

func TestEngineCalibrationPushFailure(t *testing.T) {
	fake := newFakeTransport()
	e := openTestEngine(t, fake, testProfile())
	defer e.Close()
	fake.take()

	wireDown := errors.New("wire down")
	fake.sendErr = wireDown
	if err := e.SetSensitivity(3, 2); !errors.Is(err, wireDown) {
		t.Fatalf("push over a dead wire returned %v, want the send error", err)
	}

	// the gain took effect host-side; a retry pushes the same values
	fake.sendErr = nil
	if err := e.SetSensitivity(3, 2); err != nil {
		t.Fatalf("retry push: %v", err)
	}
	sent := fake.take()
	if len(sent) != 1 {
		t.Fatalf("retry wrote %d messages, want 1", len(sent))
	}
	rec, err := wire.Decode(sent[0])
	if err != nil {
		t.Fatalf("decode retry push: %v", err)
	}
	if cal, ok := rec.(wire.CalibrationSet); !ok || cal.Pad != 3 || cal.Scale != 512 {
		t.Errorf("retry pushed %#v, want pad 3 at gain 2", rec)
	}
}
