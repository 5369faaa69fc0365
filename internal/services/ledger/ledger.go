// Package ledger keeps a bounded, thread-safe record of recent
// detections backing the summary API.
package ledger

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the sliding window when no capacity is configured.
const DefaultCapacity = 20

// Entry is one recorded detection.
type Entry struct {
	Label      string
	Confidence float64
	Timestamp  time.Time
}

// Summary is a consistent point-in-time copy of the ledger state.
// Count is the lifetime total of recorded detections, not the window
// size; Detections holds at most the capacity, most recent first.
// A zero LastUpdated means nothing has ever been recorded.
type Summary struct {
	Count       uint64
	LastUpdated time.Time
	Detections  []Entry
}

// Ledger is the single shared mutable store of the pipeline. All access
// goes through one RWMutex; Record and Snapshot never hold the lock
// across I/O.
type Ledger struct {
	mu          sync.RWMutex
	entries     []Entry // oldest first
	capacity    int
	count       uint64
	lastUpdated time.Time
}

// New creates a ledger holding at most capacity entries.
func New(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{capacity: capacity}
}

// Record appends a batch of detections, evicting the oldest entries past
// capacity, and bumps the lifetime count and last-updated timestamp.
// An empty batch is a no-op: cycles without qualifying detections do not
// advance last_updated.
func (l *Ledger) Record(entries []Entry, timestamp time.Time) {
	if len(entries) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entries...)
	if overflow := len(l.entries) - l.capacity; overflow > 0 {
		l.entries = append(l.entries[:0], l.entries[overflow:]...)
	}
	l.count += uint64(len(entries))
	l.lastUpdated = timestamp
}

// Snapshot returns a copy of the current state, most recent entry first.
// A concurrent Record never produces a torn summary.
func (l *Ledger) Snapshot() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	detections := make([]Entry, len(l.entries))
	for i, entry := range l.entries {
		detections[len(l.entries)-1-i] = entry
	}

	return Summary{
		Count:       l.count,
		LastUpdated: l.lastUpdated,
		Detections:  detections,
	}
}

// Len returns the current window size, never more than the capacity.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
