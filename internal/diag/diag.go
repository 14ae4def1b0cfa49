// Package diag keeps a small, bounded log of connection events so the user
// can see why a session dropped without digging through process logs.
package diag

import (
	"sync"
	"time"
)

const DefaultCapacity = 20

type Entry struct {
	At     time.Time
	Event  string
	Detail string
}

// Log is a fixed-capacity ring: when full, the oldest entry is dropped.
type Log struct {
	mu  sync.Mutex
	cap int
	buf []Entry
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{cap: capacity}
}

func (l *Log) Append(event, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = append(l.buf, Entry{At: time.Now(), Event: event, Detail: detail})
	if len(l.buf) > l.cap {
		l.buf = l.buf[len(l.buf)-l.cap:]
	}
}

// Entries returns a copy, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.buf...)
}
