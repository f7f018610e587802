package session

import (
	"strings"
	"sync"
	"time"

	"github.com/samaelod/aileron/types"
)

const DefaultLogCapacity = 1000

// Entry is a telemetry frame ready for display. Type and Body hold sanitized
// text. Detail is a locally decoded MAVLink header breakdown of a raw frame.
type Entry struct {
	Seq       uint64
	At        time.Time
	Direction types.Direction
	Type      string
	Body      string
	Decoded   bool
	Detail    string
}

// Text renders the entry as a labeled block when a decoded breakdown exists,
// or the raw string otherwise.
func (e Entry) Text() string {
	if !e.Decoded {
		return e.Body
	}
	var sb strings.Builder
	sb.WriteString(e.Type)
	sb.WriteByte('\n')
	sb.WriteString(e.Body)
	return sb.String()
}

// BoundedLog keeps the most recent entries up to a fixed capacity. The oldest
// entry is evicted when a push overflows it.
type BoundedLog struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	head     int
	count    int
	pushed   uint64
	evicted  uint64
}

func NewBoundedLog(capacity int) *BoundedLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &BoundedLog{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Push inserts e at the head. It reports whether a tail entry was evicted.
func (l *BoundedLog) Push(e Entry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pushed++
	e.Seq = l.pushed

	l.entries[l.head] = e
	l.head = (l.head + 1) % l.capacity
	if l.count < l.capacity {
		l.count++
		return false
	}
	l.evicted++
	return true
}

// Entries returns a copy, most recent first.
func (l *BoundedLog) Entries() []Entry {
	return l.Recent(-1)
}

// Recent returns up to n entries, most recent first. n < 0 means all.
func (l *BoundedLog) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n < 0 || n > l.count {
		n = l.count
	}
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		idx := (l.head - 1 - i + l.capacity) % l.capacity
		out[i] = l.entries[idx]
	}
	return out
}

func (l *BoundedLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func (l *BoundedLog) Cap() int { return l.capacity }

// Pushed is the number of entries ever inserted.
func (l *BoundedLog) Pushed() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pushed
}

func (l *BoundedLog) Evicted() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.evicted
}
