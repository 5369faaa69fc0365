// Package storage buffers detection events in memory and flushes them to
// the repository in batches, off the capture loop's critical path.
package storage

import (
	"sync"
	"time"

	"birdcam/internal/logger"
	"birdcam/internal/repository"
)

const (
	queueDepth = 100
	// maxPending forces a flush before the ticker fires during bursts.
	maxPending = 200
)

// HistoryWriter accepts detection events from the capture loop without
// blocking it and persists them on its own goroutine.
type HistoryWriter struct {
	repo   repository.EventRepository
	logger *logger.Logger

	queue   chan []repository.Event
	pending []repository.Event

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewHistoryWriter creates a writer over the given repository.
func NewHistoryWriter(repo repository.EventRepository, log *logger.Logger) *HistoryWriter {
	return &HistoryWriter{
		repo:    repo,
		logger:  log,
		queue:   make(chan []repository.Event, queueDepth),
		stopped: make(chan struct{}),
	}
}

// Run drains the queue and flushes pending events every flushInterval
// seconds. Call in its own goroutine; returns after Stop.
func (w *HistoryWriter) Run(flushInterval int) {
	if flushInterval <= 0 {
		flushInterval = 30
	}
	ticker := time.NewTicker(time.Duration(flushInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case events, ok := <-w.queue:
			if !ok {
				w.flush()
				close(w.stopped)
				return
			}
			w.pending = append(w.pending, events...)
			if len(w.pending) >= maxPending {
				w.flush()
			}
		case <-ticker.C:
			w.flush()
		}
	}
}

// Enqueue hands a batch of events to the writer. Never blocks: when the
// queue is full the batch is dropped with a warning.
func (w *HistoryWriter) Enqueue(events []repository.Event) {
	if len(events) == 0 {
		return
	}
	select {
	case w.queue <- events:
	default:
		w.logger.Warning("history queue full, dropping %d events", len(events))
	}
}

// Stop closes the queue and waits for the final flush.
func (w *HistoryWriter) Stop() {
	w.stopOnce.Do(func() {
		close(w.queue)
		<-w.stopped
	})
}

func (w *HistoryWriter) flush() {
	if len(w.pending) == 0 {
		return
	}
	if err := w.repo.InsertBatch(w.pending); err != nil {
		w.logger.Error("history flush failed: %v", err)
		return
	}
	w.pending = w.pending[:0]
}
