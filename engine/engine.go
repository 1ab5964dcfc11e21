package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"softstep/config"
	"softstep/debug"
	"softstep/device"
	"softstep/wire"
)

// ErrSessionActive means another engine already owns the controller.
// The hardware is a single shared surface; two sessions would fight
// over LEDs and calibration.
var ErrSessionActive = errors.New("controller session already active")

// defaultHoldTick is how often steady presses are re-checked for hold
// promotion between incoming samples.
const defaultHoldTick = 50 * time.Millisecond

var sessionActive int32

// Options configures a session. Zero values fall back to sane
// defaults; Transport is only set by tests.
type Options struct {
	Selector          string
	Profile           *config.Profile
	Banner            string
	RestoreStandalone bool
	HoldTick          time.Duration

	Transport device.Transport
}

// Stats counts session traffic.
type Stats struct {
	Frames    uint64
	Malformed uint64
	Events    uint64
	LedSends  uint64
}

type sensorRef struct {
	pad    int
	sensor int
}

type dirView struct {
	pressure float64
	phase    Phase
}

// Engine owns one controller session: it decodes the inbound stream,
// normalizes pressure, runs the per-pad gesture machines and fans
// events out to subscribers - all on a single loop goroutine, so
// every subscriber sees events in the order they happened.
type Engine struct {
	opts      Options
	profile   *config.Profile
	th        config.Thresholds
	transport device.Transport

	cal  *Calibrator
	disp *Dispatcher
	fb   *Feedback

	pads      []*padState
	ccIndex   map[uint8]sensorRef
	mainIndex []int

	samples chan []byte
	done    chan struct{}

	closing   atomic.Bool
	closeOnce sync.Once

	mu       sync.RWMutex
	err      error
	status   wire.StatusReport
	statusOK bool
	view     [][directionCount]dirView
	rawView  [][4]float64

	frames    uint64
	malformed uint64
	events    uint64
}

// Open claims the controller and starts the session. The device is
// switched to tethered mode, greeted on the display and its LEDs
// cleared; any failure there aborts the open, because a device that
// cannot be written to is not worth listening to.
func Open(opts Options) (*Engine, error) {
	if !atomic.CompareAndSwapInt32(&sessionActive, 0, 1) {
		return nil, ErrSessionActive
	}

	profile := opts.Profile
	if profile == nil {
		p := config.SoftStep1()
		profile = &p
	}
	if opts.Banner == "" {
		opts.Banner = "HELO"
	}
	if opts.HoldTick <= 0 {
		opts.HoldTick = defaultHoldTick
	}

	transport := opts.Transport
	if transport == nil {
		var err error
		transport, err = device.Open(opts.Selector)
		if err != nil {
			atomic.StoreInt32(&sessionActive, 0)
			return nil, err
		}
	}

	e := &Engine{
		opts:      opts,
		profile:   profile,
		th:        profile.Thresholds,
		transport: transport,
		cal:       newCalibrator(len(profile.Pads)),
		disp:      newDispatcher(),
		samples:   make(chan []byte, 64),
		done:      make(chan struct{}),
		pads:      make([]*padState, len(profile.Pads)),
		ccIndex:   make(map[uint8]sensorRef),
		view:      make([][directionCount]dirView, len(profile.Pads)),
		rawView:   make([][4]float64, len(profile.Pads)),
	}
	e.fb = newFeedback(transport.Send)

	for i, spec := range profile.Pads {
		e.pads[i] = newPadState(spec)
		for s := 0; s < spec.Sensors; s++ {
			e.ccIndex[spec.BaseCC+uint8(s)] = sensorRef{pad: i, sensor: s}
		}
		if spec.Kind == config.PadMain {
			e.mainIndex = append(e.mainIndex, i)
		}
	}

	if err := e.hello(); err != nil {
		transport.Close()
		atomic.StoreInt32(&sessionActive, 0)
		return nil, err
	}

	go e.read()
	go e.run()

	debug.Log("engine", "session open on %s, profile %s", transport.String(), profile.Name)
	return e, nil
}

// hello puts the device in tethered mode and paints the known-good
// startup state.
func (e *Engine) hello() error {
	for _, msg := range wire.EncodeModeSelect(false) {
		if err := e.transport.Send(msg); err != nil {
			return fmt.Errorf("enter tethered mode: %w", err)
		}
	}
	e.fb.SetDisplay(e.opts.Banner)
	e.fb.ResetLeds()
	if err := e.fb.Flush(); err != nil {
		return fmt.Errorf("initial feedback flush: %w", err)
	}
	return nil
}

// Close paints the farewell state, optionally hands the device back to
// standalone mode and tears the session down. Write errors during
// farewell are ignored - the cable may already be gone.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closing.Store(true)

		e.fb.SetDisplay("Bye")
		e.fb.ResetLeds()
		if err := e.fb.Flush(); err != nil {
			debug.Log("engine", "farewell flush: %v", err)
		}
		if e.opts.RestoreStandalone {
			for _, msg := range wire.EncodeModeSelect(true) {
				if err := e.transport.Send(msg); err != nil {
					debug.Log("engine", "restore standalone: %v", err)
					break
				}
			}
		}

		e.transport.Close()
		<-e.done
		atomic.StoreInt32(&sessionActive, 0)
		debug.Log("engine", "session closed, %d frames, %d events", atomic.LoadUint64(&e.frames), atomic.LoadUint64(&e.events))
	})
	return nil
}

// Done is closed when the session loop has stopped, whether by Close
// or by losing the device.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Err reports why the session stopped. It is nil after a clean Close
// and stable once Done is closed.
func (e *Engine) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

// read pumps the transport into the loop. A receive error ends the
// session unless we caused it ourselves by closing.
func (e *Engine) read() {
	for {
		msg, err := e.transport.Receive()
		if err != nil {
			if !e.closing.Load() {
				e.mu.Lock()
				e.err = err
				e.mu.Unlock()
				debug.Log("engine", "receive failed: %v", err)
			}
			close(e.samples)
			return
		}
		e.samples <- msg
	}
}

func (e *Engine) run() {
	defer close(e.done)
	ticker := time.NewTicker(e.opts.HoldTick)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-e.samples:
			if !ok {
				return
			}
			e.handleMessage(msg, time.Now())
		case now := <-ticker.C:
			e.tickHolds(now)
		}
	}
}

func (e *Engine) handleMessage(msg []byte, now time.Time) {
	atomic.AddUint64(&e.frames, 1)
	rec, err := wire.Decode(msg)
	if err != nil {
		atomic.AddUint64(&e.malformed, 1)
		debug.Hex("engine", "unparsed message", msg)
		return
	}

	switch rec := rec.(type) {
	case wire.ControlValue:
		e.handleControl(rec, now)
	case wire.PressureBatch:
		e.handleBatch(rec, now)
	case wire.StatusReport:
		e.mu.Lock()
		e.status = rec
		e.statusOK = true
		e.mu.Unlock()
		debug.Log("engine", "status: fw %d.%d model %d pads %d", rec.FirmwareMajor, rec.FirmwareMinor, rec.Model, rec.PadCount)
	default:
		// our own output echoed back, nothing to do
	}
}

func (e *Engine) handleControl(cv wire.ControlValue, now time.Time) {
	if cv.Channel != 0 {
		return
	}
	ref, ok := e.ccIndex[cv.Controller]
	if !ok {
		debug.LogEvery(100, "engine", "unmapped controller %d", cv.Controller)
		return
	}
	ps := e.pads[ref.pad]
	ps.raw[ref.sensor] = e.cal.normalize(ref.pad, ref.sensor, cv.Value, ps.spec.Invert)
	e.feedPad(ref.pad, now)
}

// handleBatch applies one full-surface pressure frame, main pads in
// profile order.
func (e *Engine) handleBatch(pb wire.PressureBatch, now time.Time) {
	for row, sensors := range pb.Sensors {
		if row >= len(e.mainIndex) {
			break
		}
		i := e.mainIndex[row]
		ps := e.pads[i]
		for s := 0; s < ps.spec.Sensors && s < len(sensors); s++ {
			ps.raw[s] = e.cal.normalize(i, s, sensors[s], ps.spec.Invert)
		}
		e.feedPad(i, now)
	}
}

// feedPad reruns the gesture machines for one pad after its raw state
// changed. The pressure view is refreshed before events go out, so a
// handler reading back through the engine sees the state that caused
// its event.
func (e *Engine) feedPad(i int, now time.Time) {
	ps := e.pads[i]
	var out []PadEvent
	for _, dir := range ps.directions() {
		p := ps.pressure(dir, e.profile.Corners)
		for _, tr := range ps.gestures[dir].feed(p, now, e.th) {
			out = append(out, PadEvent{Type: tr.Type, Pad: i, Direction: dir, Pressure: tr.Pressure, Time: now})
		}
	}
	e.updateView(i)
	for _, ev := range out {
		e.emit(ev)
	}
}

// tickHolds promotes steady presses to holds even when the device goes
// quiet between samples.
func (e *Engine) tickHolds(now time.Time) {
	for i, ps := range e.pads {
		var out []PadEvent
		for _, dir := range ps.directions() {
			if tr, ok := ps.gestures[dir].tick(now, e.th); ok {
				out = append(out, PadEvent{Type: tr.Type, Pad: i, Direction: dir, Pressure: tr.Pressure, Time: now})
			}
		}
		if len(out) == 0 {
			continue
		}
		e.updateView(i)
		for _, ev := range out {
			e.emit(ev)
		}
	}
}

func (e *Engine) emit(ev PadEvent) {
	atomic.AddUint64(&e.events, 1)
	e.disp.dispatch(ev)
}

func (e *Engine) updateView(i int) {
	ps := e.pads[i]
	e.mu.Lock()
	for _, dir := range ps.directions() {
		g := ps.gestures[dir]
		e.view[i][dir] = dirView{pressure: g.current, phase: g.phase}
	}
	e.rawView[i] = ps.raw
	e.mu.Unlock()
}

// Subscribe registers a handler for every pad event, in subscription
// order.
func (e *Engine) Subscribe(h Handler) SubscriptionID { return e.disp.Subscribe(h) }

// Unsubscribe removes a handler. Unknown IDs are ignored.
func (e *Engine) Unsubscribe(id SubscriptionID) { e.disp.Unsubscribe(id) }

// Feedback exposes the LED, display and backlight state for this
// session.
func (e *Engine) Feedback() *Feedback { return e.fb }

// Profile reports the pad layout the session was opened with.
func (e *Engine) Profile() *config.Profile { return e.profile }

// Pressure reports the current derived pressure of one pad direction.
func (e *Engine) Pressure(pad int, dir Direction) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if pad < 0 || pad >= len(e.view) || dir < 0 || int(dir) >= directionCount {
		return 0
	}
	return e.view[pad][dir].pressure
}

// PadPhase reports where one pad direction is in its gesture cycle.
func (e *Engine) PadPhase(pad int, dir Direction) Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if pad < 0 || pad >= len(e.view) || dir < 0 || int(dir) >= directionCount {
		return PhaseIdle
	}
	return e.view[pad][dir].phase
}

// Stats reports session counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Frames:    atomic.LoadUint64(&e.frames),
		Malformed: atomic.LoadUint64(&e.malformed),
		Events:    atomic.LoadUint64(&e.events),
		LedSends:  LedSendCount(),
	}
}

// RequestStatus asks the device to report firmware and model info. The
// answer arrives asynchronously; poll Status for it.
func (e *Engine) RequestStatus() error {
	return e.transport.Send(wire.EncodeStatusRequest())
}

// Status reports the last status answer received, if any.
func (e *Engine) Status() (wire.StatusReport, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status, e.statusOK
}

// SetBaseline captures the current raw reading of a pad as its resting
// level. Call it with the foot off the pad.
func (e *Engine) SetBaseline(pad int) error {
	if pad < 0 || pad >= len(e.pads) {
		return fmt.Errorf("%w: pad %d", ErrInvalidCalibration, pad)
	}
	e.mu.RLock()
	raw := e.rawView[pad]
	e.mu.RUnlock()

	// raw holds normalized values; undo the active calibration to get
	// back to the sensor's own scale before storing it as baseline.
	snap := e.cal.snapshot(pad)
	var base [4]float64
	for s := range base {
		base[s] = snap.baseline[s] + raw[s]/snap.scale
	}
	e.cal.setBaseline(pad, base)
	return e.pushCalibration(pad)
}

// SetSensitivity adjusts a pad's gain. Scale multiplies the reading
// above baseline; it must be positive.
func (e *Engine) SetSensitivity(pad int, scale float64) error {
	if pad < 0 || pad >= len(e.pads) {
		return fmt.Errorf("%w: pad %d", ErrInvalidCalibration, pad)
	}
	if err := e.cal.setScale(pad, scale); err != nil {
		return err
	}
	return e.pushCalibration(pad)
}

// SetRange maps a raw window onto the full pressure range: lo reads as
// zero, hi as full press.
func (e *Engine) SetRange(pad int, lo, hi float64) error {
	if pad < 0 || pad >= len(e.pads) {
		return fmt.Errorf("%w: pad %d", ErrInvalidCalibration, pad)
	}
	if err := e.cal.setRange(pad, lo, hi); err != nil {
		return err
	}
	return e.pushCalibration(pad)
}

// pushCalibration mirrors the host-side calibration to the device, so
// standalone mode behaves the same after we let go. A push failure is
// returned for retry; the host-side math has already taken effect and
// is not rolled back.
func (e *Engine) pushCalibration(pad int) error {
	snap := e.cal.snapshot(pad)
	var base float64
	for _, b := range snap.baseline {
		base += b
	}
	base /= 4

	msg, err := wire.EncodeCalibration(wire.CalibrationSet{
		Pad:      pad,
		Baseline: toQ88(base),
		Scale:    toQ88(snap.scale),
	})
	if err != nil {
		return fmt.Errorf("calibration encode for pad %d: %w", pad, err)
	}
	if err := e.transport.Send(msg); err != nil {
		debug.Log("engine", "calibration push for pad %d: %v", pad, err)
		return fmt.Errorf("calibration push for pad %d: %w", pad, err)
	}
	return nil
}

// toQ88 converts to the device's unsigned 8.8 fixed point.
func toQ88(v float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 255.996 {
		return 0xFFFF
	}
	return uint16(v * 256)
}
