package wire

// maxFrameLen bounds an unterminated frame so garbage on the line cannot
// grow the partial buffer forever.
const maxFrameLen = 512

// ScanStats counts what a Scanner has seen since creation.
type ScanStats struct {
	Messages  uint64 // complete messages delivered
	Discarded uint64 // bytes dropped while hunting for a status byte
	Abandoned uint64 // partial messages cut short or overgrown
}

// Scanner splits a raw byte stream into complete wire messages. It
// tolerates garbage: on any framing violation it drops what it has and
// hunts for the next status byte, so a stream that turns bad recovers at
// the next well-formed message. Running status on channel messages is
// expanded, and realtime bytes interleaved mid-message are ignored.
//
// A Scanner is not safe for concurrent use; each transport reader owns
// its own.
type Scanner struct {
	stats   ScanStats
	partial []byte
	want    int
	inFrame bool
	running byte
}

// Feed consumes a chunk of raw bytes and returns the complete messages
// it finished, in arrival order. Partial state carries over to the next
// call, so chunk boundaries can fall anywhere.
func (s *Scanner) Feed(p []byte) [][]byte {
	var out [][]byte
	for _, b := range p {
		if b >= 0xF8 {
			continue
		}
		if s.inFrame {
			switch {
			case b == FrameEnd:
				out = append(out, append(s.partial, FrameEnd))
				s.stats.Messages++
				s.partial = nil
				s.inFrame = false
			case b < 0x80:
				if len(s.partial) >= maxFrameLen {
					s.stats.Abandoned++
					s.partial = nil
					s.inFrame = false
					continue
				}
				s.partial = append(s.partial, b)
			default:
				s.stats.Abandoned++
				s.partial = nil
				s.inFrame = false
				s.feedStatus(b)
			}
			continue
		}
		if b >= 0x80 {
			s.feedStatus(b)
			continue
		}
		if len(s.partial) > 0 {
			s.pushData(b, &out)
			continue
		}
		if s.running != 0 {
			s.partial = append(s.partial, s.running)
			s.want = channelLen(s.running)
			s.pushData(b, &out)
			continue
		}
		s.stats.Discarded++
	}
	return out
}

// Stats returns a snapshot of the scanner's counters.
func (s *Scanner) Stats() ScanStats {
	return s.stats
}

// Reset drops any partial state. Counters survive; a transport calls
// this after reopening a port.
func (s *Scanner) Reset() {
	s.partial = nil
	s.want = 0
	s.inFrame = false
	s.running = 0
}

func (s *Scanner) feedStatus(b byte) {
	if len(s.partial) > 0 {
		s.stats.Abandoned++
		s.partial = nil
	}
	switch {
	case b == FrameStart:
		s.inFrame = true
		s.partial = append(s.partial, FrameStart)
		s.running = 0
	case b < 0xF0:
		s.partial = append(s.partial, b)
		s.want = channelLen(b)
	default:
		// system common we do not speak; also cancels running status
		s.stats.Discarded++
		s.running = 0
	}
}

func (s *Scanner) pushData(b byte, out *[][]byte) {
	s.partial = append(s.partial, b)
	if len(s.partial) == s.want {
		*out = append(*out, s.partial)
		s.stats.Messages++
		s.running = s.partial[0]
		s.partial = nil
	}
}

func channelLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 2
	}
	return 3
}
