// Package activity keeps the panel's append-only activity history.
package activity

import (
	"html"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TimeFormat is the hours:minutes:seconds stamp shown next to each entry.
const TimeFormat = "15:04:05"

// Entry is one line of the activity history.
type Entry struct {
	ID      string    `json:"id"`
	Time    string    `json:"time"`
	Message string    `json:"message"` // HTML-escaped
	At      time.Time `json:"-"`
}

// Text returns the line as displayed: "15:04:05 Move robot (left)".
func (e Entry) Text() string {
	return e.Time + " " + e.Message
}

// Log is an unbounded, ordered, append-only list of entries.
// It is safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time

	subMu  sync.RWMutex
	subs   map[int]func(Entry)
	nextID int
}

// New creates an empty log stamped with the local wall clock.
func New() *Log {
	return &Log{
		now:  time.Now,
		subs: make(map[int]func(Entry)),
	}
}

// SetClock replaces the time source (tests).
func (l *Log) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Add stamps text with the current time, escapes it as plain text and appends it.
// Subscribers are notified in append order.
func (l *Log) Add(text string) Entry {
	l.mu.Lock()
	at := l.now()
	entry := Entry{
		ID:      uuid.NewString(),
		Time:    at.Format(TimeFormat),
		Message: html.EscapeString(text),
		At:      at,
	}
	l.entries = append(l.entries, entry)

	// Notify under the write lock so subscribers observe entries in order.
	l.subMu.RLock()
	for _, fn := range l.subs {
		fn(entry)
	}
	l.subMu.RUnlock()
	l.mu.Unlock()

	return entry
}

// Record implements arbiter.Journal.
func (l *Log) Record(message string) {
	l.Add(message)
}

// Entries returns a copy of every entry, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// After returns the entries appended after the entry with the given id.
// An unknown id returns the full history.
func (l *Log) After(id string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].ID == id {
			out := make([]Entry, len(l.entries)-i-1)
			copy(out, l.entries[i+1:])
			return out
		}
	}
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Subscribe registers fn to be called for every new entry. fn must not block
// or call back into the log. The returned function unsubscribes.
func (l *Log) Subscribe(fn func(Entry)) (cancel func()) {
	l.subMu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.subMu.Unlock()

	return func() {
		l.subMu.Lock()
		delete(l.subs, id)
		l.subMu.Unlock()
	}
}
