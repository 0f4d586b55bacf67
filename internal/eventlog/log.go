// Package eventlog keeps the console's bounded, newest-first history of
// human-readable event records.
package eventlog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of records kept when no capacity is given.
const DefaultCapacity = 20

// TimestampLayout renders the local wall-clock time of a record. It carries no
// date or zone, so ordering must never be derived from it.
const TimestampLayout = "15:04:05"

// Record is one line of the event log.
type Record struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Log is an append-only, capacity-bounded list ordered by insertion, newest first.
// Safe for concurrent use.
type Log struct {
	mu       sync.RWMutex
	records  []Record
	capacity int
	now      func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithNow overrides the time source used for ids and timestamps.
func WithNow(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// New creates a log holding at most capacity records. Non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int, opts ...Option) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	l := &Log{
		records:  make([]Record, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append prepends a new record and evicts the oldest beyond capacity.
func (l *Log) Append(recordType, message string) Record {
	now := l.now()
	rec := Record{
		ID:        newID(now),
		Type:      recordType,
		Message:   message,
		Timestamp: now.Local().Format(TimestampLayout),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]Record, 0, l.capacity)
	next = append(next, rec)
	next = append(next, l.records...)
	if len(next) > l.capacity {
		next = next[:l.capacity]
	}
	l.records = next

	return rec
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	l.records = make([]Record, 0, l.capacity)
	l.mu.Unlock()
}

// Records returns a copy of the records, newest first.
func (l *Log) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Capacity returns the maximum number of records held.
func (l *Log) Capacity() int {
	return l.capacity
}

// newID builds "<unix-millis>-<6 random chars>".
func newID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d-%s", now.UnixMilli(), random[:6])
}
