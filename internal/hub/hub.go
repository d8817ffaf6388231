// Package hub fans out mind events (log appended, dream completed, learning
// approved or rejected) to dashboard SSE subscribers, keyed by agent. It
// buffers recent events per agent so late-joining clients receive catchup
// output before live streaming.
package hub

import "sync"

const defaultBufferCap = 200

// stream holds the state for a single agent's event stream.
type stream struct {
	buf     []string // circular buffer
	pos     int      // next write position
	clients map[chan string]struct{}
}

// lines returns the buffered lines in order from oldest to newest.
func (s *stream) lines() []string {
	n := len(s.buf)
	if n == 0 || s.pos == 0 {
		// Buffer is empty or pos just wrapped to 0, so buf[:n] is already
		// in order. A partially filled buffer has pos == n and takes the
		// copy path below, which yields the same order.
		return s.buf
	}
	out := make([]string, n)
	copy(out, s.buf[s.pos:])
	copy(out[n-s.pos:], s.buf[:s.pos])
	return out
}

// append adds a line to the circular buffer. O(1) regardless of size.
func (s *stream) append(line string) {
	if len(s.buf) < cap(s.buf) {
		s.buf = append(s.buf, line)
	} else {
		s.buf[s.pos] = line
	}
	s.pos = (s.pos + 1) % cap(s.buf)
}

// Hub multiplexes per-agent event streams.
type Hub struct {
	mu      sync.Mutex
	streams map[string]*stream
}

// New creates a Hub ready for use.
func New() *Hub {
	return &Hub{streams: make(map[string]*stream)}
}

// getOrCreate returns the stream for an agent, creating it if needed.
// Caller must hold h.mu.
func (h *Hub) getOrCreate(agent string) *stream {
	s, ok := h.streams[agent]
	if !ok {
		s = &stream{
			buf:     make([]string, 0, defaultBufferCap),
			clients: make(map[chan string]struct{}),
		}
		h.streams[agent] = s
	}
	return s
}

// Publish sends a line to all current subscribers of the agent's stream and
// appends it to the catchup buffer. Slow subscribers drop lines rather than
// block the publisher.
func (h *Hub) Publish(agent, line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.getOrCreate(agent)
	s.append(line)
	for ch := range s.clients {
		select {
		case ch <- line:
		default:
		}
	}
}

// Subscribe returns a channel of event lines for an agent, primed with the
// buffered catchup lines, plus a cancel function that must be called when
// the subscriber goes away.
func (h *Hub) Subscribe(agent string) (<-chan string, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.getOrCreate(agent)
	ch := make(chan string, defaultBufferCap+16)
	for _, line := range s.lines() {
		ch <- line
	}
	s.clients[ch] = struct{}{}

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := s.clients[ch]; ok {
			delete(s.clients, ch)
			close(ch)
		}
	}
	return ch, cancel
}
