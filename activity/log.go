// Package activity is the operator-facing event feed: a bounded, append-only
// ring of human-readable entries. It is purely observational; decision logic
// never reads it.
package activity

import (
	"sync"
	"time"

	"cryptobot/internal/id"
)

type Severity string

const (
	Info    Severity = "INFO"
	Success Severity = "SUCCESS"
	Warning Severity = "WARNING"
	Error   Severity = "ERROR"
)

// Capacity bounds the ring; the oldest entry is evicted first.
const Capacity = 100

type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Instrument string    `json:"instrument,omitempty"`
}

// Log is a fixed-capacity FIFO ring of entries.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time

	// optional fan-out for each appended entry
	notify func(Entry)
}

func NewLog() *Log {
	return &Log{now: time.Now}
}

// SetNotify installs a callback invoked for every appended entry, used to
// stream entries to connected operator clients. The callback must not call
// back into the log.
func (l *Log) SetNotify(fn func(Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notify = fn
}

// Append adds an entry, evicting the oldest once capacity is reached.
func (l *Log) Append(severity Severity, message, instrument string) Entry {
	l.mu.Lock()
	e := Entry{
		ID:         id.New(),
		Timestamp:  l.now(),
		Severity:   severity,
		Message:    message,
		Instrument: instrument,
	}
	l.entries = append(l.entries, e)
	if len(l.entries) > Capacity {
		l.entries = l.entries[len(l.entries)-Capacity:]
	}
	notify := l.notify
	l.mu.Unlock()

	if notify != nil {
		notify(e)
	}
	return e
}

// Entries returns a copy, newest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

// Len returns the current entry count.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear drops all entries.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
