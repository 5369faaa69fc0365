// Package stream holds the latest-frame bus and the viewer multiplexer.
//
// The bus keeps exactly one frame: the most recent publish wins and
// readers never queue behind the capture loop. Viewers that cannot keep
// up simply observe fewer frames.
package stream

import (
	"sync"
	"time"
)

// Frame is one published video frame. Data is JPEG-encoded and must not
// be mutated after Publish; every reader shares the same backing slice.
type Frame struct {
	Data      []byte
	Seq       uint64
	Timestamp time.Time
}

// Bus is a single-slot latest-value store. Publish replaces the current
// frame atomically; Latest returns it without consuming. Lock-held time
// is a reference swap, independent of frame size.
type Bus struct {
	mu       sync.RWMutex
	frame    Frame
	hasFrame bool
	seq      uint64
}

// NewBus returns an empty bus. Sequence numbers start at 1.
func NewBus() *Bus {
	return &Bus{}
}

// Publish stores data as the newest frame and returns its sequence number.
// Ownership of data transfers to the bus; the caller must not modify it.
// Publish never blocks on readers.
func (b *Bus) Publish(data []byte, timestamp time.Time) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	b.frame = Frame{Data: data, Seq: b.seq, Timestamp: timestamp}
	b.hasFrame = true
	return b.seq
}

// Latest returns the most recent published frame without consuming it.
// The second return value is false while nothing has been published.
func (b *Bus) Latest() (Frame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frame, b.hasFrame
}

// Seq returns the sequence number of the last published frame.
func (b *Bus) Seq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}
