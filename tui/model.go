package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"softstep/config"
	"softstep/device"
	"softstep/engine"
	"softstep/theme"
	"softstep/widgets"
	"softstep/wire"
)

const eventLogDepth = 8

type Model struct {
	Watcher *device.Watcher
	Theme   *theme.Theme
	Config  config.Config

	eng      *engine.Engine
	events   chan engine.PadEvent
	log      []string
	portName string
	errLine  string
	quitting bool
	showLog  bool
	showHelp bool
	backlit  bool
}

type TickMsg time.Time

type PadEventMsg engine.PadEvent

type DeviceEventMsg device.Event

func NewModel(watcher *device.Watcher, th *theme.Theme, cfg config.Config) Model {
	return Model{
		Watcher: watcher,
		Theme:   th,
		Config:  cfg,
		showLog: cfg.UI.ShowRaw,
		backlit: cfg.UI.Backlit,
	}
}

func ListenForDevices(watcher *device.Watcher) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-watcher.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func ListenForPads(events <-chan engine.PadEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return PadEventMsg(ev)
	}
}

// tick drives the meter refresh; pressure moves between pad events.
func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForDevices(m.Watcher),
		tick(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if m.eng != nil {
				m.eng.Close()
			}
			return m, tea.Quit

		case "?":
			m.showHelp = !m.showHelp

		case "e":
			m.showLog = !m.showLog

		case "b":
			if m.eng != nil {
				m.backlit = !m.backlit
				m.eng.Feedback().SetBacklight(m.backlit)
				m.flush()
			}

		case "c":
			if m.eng != nil {
				for i := range m.eng.Profile().Pads {
					if err := m.eng.SetBaseline(i); err != nil {
						m.errLine = fmt.Sprintf("calibrate: %v", err)
						break
					}
				}
			}

		case "s":
			if m.eng != nil {
				if err := m.eng.RequestStatus(); err != nil {
					m.errLine = fmt.Sprintf("status: %v", err)
				}
			}
		}

	case TickMsg:
		return m, tick()

	case PadEventMsg:
		ev := engine.PadEvent(msg)
		m.log = append(m.log, m.formatEvent(ev))
		if len(m.log) > eventLogDepth {
			m.log = m.log[len(m.log)-eventLogDepth:]
		}
		return m, ListenForPads(m.events)

	case DeviceEventMsg:
		event := device.Event(msg)
		switch event.Type {
		case device.Connected:
			if m.eng == nil {
				cmd := m.connect(event.Name)
				return m, tea.Batch(ListenForDevices(m.Watcher), cmd)
			}
		case device.Disconnected:
			if m.eng != nil {
				m.eng.Close()
				m.eng = nil
				m.events = nil
				m.portName = ""
			}
		}
		return m, ListenForDevices(m.Watcher)
	}

	return m, nil
}

// connect opens a session on a freshly arrived controller.
func (m *Model) connect(name string) tea.Cmd {
	profile, err := config.ProfileFor(m.Config.Device.Model)
	if err != nil {
		m.errLine = err.Error()
		return nil
	}
	profile.Thresholds = m.Config.Thresholds.Merge(profile.Thresholds)

	eng, err := engine.Open(engine.Options{
		Selector:          name,
		Profile:           &profile,
		Banner:            m.Config.Device.Banner,
		RestoreStandalone: m.Config.Device.RestoreStandalone,
	})
	if err != nil {
		m.errLine = fmt.Sprintf("open %s: %v", name, err)
		return nil
	}

	events := make(chan engine.PadEvent, 128)
	eng.Subscribe(engine.HandlerFunc(func(ev engine.PadEvent) {
		// never stall the engine loop behind a slow redraw
		select {
		case events <- ev:
		default:
		}
	}))

	if m.backlit {
		eng.Feedback().SetBacklight(true)
	}

	m.eng = eng
	m.events = events
	m.portName = name
	m.errLine = ""
	return ListenForPads(events)
}

func (m *Model) flush() {
	if err := m.eng.Feedback().Flush(); err != nil {
		m.errLine = fmt.Sprintf("flush: %v", err)
	}
}

func (m Model) formatEvent(ev engine.PadEvent) string {
	label := fmt.Sprintf("pad %d", ev.Pad)
	if p := m.eng; p != nil && ev.Pad < len(p.Profile().Pads) {
		label = "pad " + p.Profile().Pads[ev.Pad].Label
	}
	return fmt.Sprintf("%s  %-7s %-7s %-8s %.2f",
		ev.Time.Format("15:04:05"), label, ev.Direction, ev.Type, ev.Pressure)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(m.headerLine()))
	out.WriteString("\n\n")

	if m.eng == nil {
		out.WriteString(dimStyle.Render("  waiting for a controller..."))
		out.WriteString("\n")
	} else {
		out.WriteString(m.surfaceView())
	}

	if m.showLog && len(m.log) > 0 {
		out.WriteString("\n")
		for _, line := range m.log {
			out.WriteString(dimStyle.Render("  " + line))
			out.WriteString("\n")
		}
	}

	if m.errLine != "" {
		out.WriteString("\n")
		out.WriteString(warnStyle.Render("  " + m.errLine))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	if m.showHelp {
		out.WriteString(m.helpView())
	} else {
		out.WriteString(dimStyle.Render("c:calibrate  b:backlight  s:status  e:events  ?:help  q:quit"))
	}

	return out.String()
}

func (m Model) headerLine() string {
	if m.eng == nil {
		return "softstep  ○ disconnected"
	}
	line := fmt.Sprintf("softstep  ● %s", m.portName)
	if st, ok := m.eng.Status(); ok {
		line += fmt.Sprintf("  fw %d.%d", st.FirmwareMajor, st.FirmwareMinor)
	}
	return line
}

// surfaceView draws the controller as it sits on the floor: the two
// main rows, the nav cluster, the pedal, the display and the LED
// mirror.
func (m Model) surfaceView() string {
	profile := m.eng.Profile()
	ramp := m.Theme.Symbols.Meter

	// Main pads print in physical order: 6-0 on the top row, 1-5 on
	// the bottom.
	rows := [2][]widgets.PadView{}
	for i, spec := range profile.Pads {
		if spec.Kind != config.PadMain {
			continue
		}
		rows[spec.Row] = append(rows[spec.Row], m.padView(i, spec.Label))
	}

	var out strings.Builder
	out.WriteString("  ")
	out.WriteString(widgets.RenderPadRow(rows[0], ramp))
	out.WriteString("\n  ")
	out.WriteString(widgets.RenderPadRow(rows[1], ramp))
	out.WriteString("\n\n  ")

	out.WriteString(m.navView())
	out.WriteString("\n\n  ")

	fb := m.eng.Feedback()
	display := lipgloss.NewStyle().Foreground(m.Theme.Active()).Render(
		fmt.Sprintf("[%-4s]", fb.Display()))
	out.WriteString("lcd ")
	out.WriteString(display)
	out.WriteString("   leds ")
	out.WriteString(widgets.RenderLedStrip(m.ledViews()))
	out.WriteString("\n\n  ")

	stats := m.eng.Stats()
	out.WriteString(lipgloss.NewStyle().Foreground(m.Theme.Muted()).Render(
		fmt.Sprintf("frames %d  events %d  malformed %d  led writes %d",
			stats.Frames, stats.Events, stats.Malformed, stats.LedSends)))
	out.WriteString("\n")

	return out.String()
}

func (m Model) padView(i int, label string) widgets.PadView {
	p := m.eng.Pressure(i, engine.Center)
	phase := m.eng.PadPhase(i, engine.Center)
	return widgets.PadView{
		Label:    label,
		Pressure: p,
		Glyph:    m.Theme.PhaseGlyph(phase == engine.PhaseHeld, phase == engine.PhasePressed),
		Color:    m.Theme.RGB(padColorNorm(p)),
	}
}

func (m Model) navView() string {
	profile := m.eng.Profile()
	arrows := map[string]string{
		"nav-left": "←", "nav-right": "→", "nav-up": "↑", "nav-down": "↓",
	}

	var out strings.Builder
	out.WriteString("nav ")
	for i, spec := range profile.Pads {
		arrow, ok := arrows[spec.Label]
		if !ok {
			continue
		}
		p := m.eng.Pressure(i, engine.Center)
		phase := m.eng.PadPhase(i, engine.Center)
		style := lipgloss.NewStyle().Foreground(m.Theme.Color(padColorNorm(p)))
		glyph := m.Theme.PhaseGlyph(phase == engine.PhaseHeld, phase == engine.PhasePressed)
		out.WriteString(style.Render(fmt.Sprintf("%s%c ", arrow, glyph)))
	}

	for i, spec := range profile.Pads {
		if spec.Kind != config.PadPedal {
			continue
		}
		p := m.eng.Pressure(i, engine.Center)
		style := lipgloss.NewStyle().Foreground(m.Theme.Color(padColorNorm(p)))
		out.WriteString("  pedal ")
		out.WriteString(style.Render(widgets.RenderMeterBar(m.Theme.Symbols.Meter, p, 10)))
		out.WriteString(fmt.Sprintf(" %.2f", p))
	}
	return out.String()
}

func (m Model) ledViews() []widgets.LedView {
	fb := m.eng.Feedback()
	views := make([]widgets.LedView, wire.LedCount)
	for led := range views {
		color, mode := fb.Led(led)
		views[led] = widgets.LedView{
			Glyph: m.Theme.LedGlyph(mode),
			Color: m.Theme.LedRGB(color, mode),
		}
	}
	return views
}

func (m Model) helpView() string {
	s := m.Theme.Symbols
	keys := widgets.RenderKeyHelp([]widgets.KeySection{
		{Title: "Session", Keys: []widgets.KeyBinding{
			{Key: "c", Desc: "capture baselines (feet off the pads)"},
			{Key: "b", Desc: "toggle backlight"},
			{Key: "s", Desc: "request firmware status"},
		}},
		{Title: "View", Keys: []widgets.KeyBinding{
			{Key: "e", Desc: "toggle the event log"},
			{Key: "?", Desc: "toggle this help"},
			{Key: "q", Desc: "quit"},
		}},
	})
	legend := strings.Join([]string{
		widgets.RenderLegendItem(m.Theme.RGB(theme.RoleMuted), s.PadIdle, "idle", "no pressure"),
		widgets.RenderLegendItem(m.Theme.RGB(theme.RoleActive), s.PadPressed, "pressed", "past the on threshold"),
		widgets.RenderLegendItem(m.Theme.RGB(theme.RoleAlert), s.PadHeld, "held", "kept down"),
	}, "\n")
	return keys + "\n\nLegend\n" + legend
}

// padColorNorm keeps resting pads visible but dim, and spreads the
// rest of the ramp over the working range.
func padColorNorm(p float64) float64 {
	if p <= 0 {
		return theme.RoleMuted
	}
	return theme.RoleMuted + p*(1-theme.RoleMuted)
}
