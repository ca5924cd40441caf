package watch

import (
	"fmt"
	"sync"
	"time"
)

// event is one timestamped dashboard event.
type event struct {
	At   time.Time
	Text string
}

// EventLog is a fixed-size circular buffer of recent dashboard events.
// Feed callbacks append from the stream goroutine, so it is thread-safe.
type EventLog struct {
	mu   sync.RWMutex
	buf  []event
	cap  int
	pos  int // next write position
	full bool
}

// NewEventLog creates an event log with the given capacity.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = 200
	}
	return &EventLog{
		buf: make([]event, capacity),
		cap: capacity,
	}
}

// Add appends a formatted event, overwriting the oldest entry when full.
func (l *EventLog) Add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf[l.pos] = event{At: time.Now(), Text: fmt.Sprintf(format, args...)}
	l.pos = (l.pos + 1) % l.cap
	if l.pos == 0 && !l.full {
		l.full = true
	}
}

// Recent returns up to n events, newest first.
func (l *EventLog) Recent(n int) []event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := l.len()
	if n > count {
		n = count
	}
	out := make([]event, 0, n)
	for i := 0; i < n; i++ {
		// Walk backwards from the most recent write.
		idx := (l.pos - 1 - i + l.cap*2) % l.cap
		out = append(out, l.buf[idx])
	}
	return out
}

// Len returns the number of events currently held.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.len()
}

func (l *EventLog) len() int {
	if l.full {
		return l.cap
	}
	return l.pos
}
