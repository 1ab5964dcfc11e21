package engine

import (
	"sync"
	"time"

	"softstep/debug"
	"softstep/wire"
)

// marqueeGap separates the end of the text from its next pass.
const marqueeGap = "   "

// marqueeTick is the scroll rate.
const marqueeTick = 200 * time.Millisecond

// Marquee scrolls text that does not fit the four-character display.
// Short text is shown as-is; longer text loops with a gap, wrapping
// seamlessly back to its own head.
type Marquee struct {
	fb *Feedback

	mu       sync.Mutex
	text     string
	composed string
	pos      int
	running  bool
	quit     chan struct{}
}

// NewMarquee builds a marquee over the session's display.
func NewMarquee(fb *Feedback, text string) *Marquee {
	m := &Marquee{fb: fb}
	m.SetText(text)
	return m
}

// SetText swaps the text and restarts the scroll from its head.
func (m *Marquee) SetText(text string) {
	m.mu.Lock()
	m.text = text
	m.pos = 0
	if len(text) <= wire.DisplayCols {
		m.composed = text
	} else {
		// append the head so the window can wrap without a seam
		m.composed = text + marqueeGap + text[:wire.DisplayCols]
	}
	m.mu.Unlock()
}

// Start begins scrolling. The first window is painted immediately, the
// rest on a fixed tick. Short text paints once and the diffing flush
// keeps the ticks free.
func (m *Marquee) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.quit = make(chan struct{})
	quit := m.quit
	m.mu.Unlock()

	m.paint()
	go func() {
		ticker := time.NewTicker(marqueeTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.step()
				m.paint()
			case <-quit:
				return
			}
		}
	}()
}

// Stop halts scrolling, leaving the last window on the display.
func (m *Marquee) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.quit)
	m.mu.Unlock()
}

// step advances the window one column. The wrap modulus is the text
// length plus the gap, so the looped head lines up exactly with the
// real head.
func (m *Marquee) step() {
	m.mu.Lock()
	if len(m.text) > wire.DisplayCols {
		m.pos = (m.pos + 1) % (len(m.text) + len(marqueeGap))
	}
	m.mu.Unlock()
}

// window reports the four characters currently visible.
func (m *Marquee) window() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.text) <= wire.DisplayCols {
		return m.text
	}
	return m.composed[m.pos : m.pos+wire.DisplayCols]
}

func (m *Marquee) paint() {
	m.fb.SetDisplay(m.window())
	if err := m.fb.Flush(); err != nil {
		debug.Log("marquee", "flush: %v", err)
	}
}
