package relay

import (
	"sync"
	"time"
)

// LogEntry is one line of the relay debug trace.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Log is a bounded in-memory ring of gateway trace lines, exposed through the
// HTTP debug endpoint.
type Log struct {
	mu      sync.Mutex
	max     int
	entries []LogEntry
}

// NewLog creates a log keeping at most max entries.
func NewLog(max int) *Log {
	if max <= 0 {
		max = 200
	}
	return &Log{max: max}
}

// Append records a trace line, evicting the oldest when full.
func (l *Log) Append(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Time: time.Now(), Message: message})
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// Entries returns a copy of the current trace, oldest first.
func (l *Log) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
