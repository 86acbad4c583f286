package fakeprod

import "sync"

// maxRequestLog bounds the in-memory request history.
const maxRequestLog = 1000

// RequestEntry is one recorded request, as exposed by /inspect and the
// /inspect/stream websocket feed.
type RequestEntry struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Status int    `json:"status"`
	TimeMS int64  `json:"time_ms"`
}

// requestLog keeps the recent request history and fans new entries out to
// websocket subscribers. Slow subscribers drop entries rather than block the
// request path.
type requestLog struct {
	mu      sync.Mutex
	entries []RequestEntry
	subs    map[chan RequestEntry]struct{}
}

func newRequestLog() *requestLog {
	return &requestLog{subs: make(map[chan RequestEntry]struct{})}
}

func (l *requestLog) Add(entry RequestEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if len(l.entries) > maxRequestLog {
		l.entries = l.entries[len(l.entries)-maxRequestLog:]
	}

	for ch := range l.subs {
		select {
		case ch <- entry:
		default:
		}
	}
}

// Recent returns up to limit of the most recent entries, oldest first.
func (l *requestLog) Recent(limit int) []RequestEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := 0
	if limit > 0 && len(l.entries) > limit {
		start = len(l.entries) - limit
	}
	out := make([]RequestEntry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// Subscribe registers a live feed of new entries. The returned cancel
// function must be called exactly once when the subscriber is done.
func (l *requestLog) Subscribe() (<-chan RequestEntry, func()) {
	ch := make(chan RequestEntry, 64)

	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		delete(l.subs, ch)
		l.mu.Unlock()
	}
	return ch, cancel
}
