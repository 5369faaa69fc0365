// Package repository defines the persistence contracts for detection
// event history. Only detection events are stored; video and frame data
// never touch disk.
package repository

import "time"

// Event is one persisted detection occurrence.
type Event struct {
	ID         int64     `json:"id"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	DetectedAt time.Time `json:"detected_at"`
}

// EventFilter narrows history queries.
type EventFilter struct {
	Label string
	Since time.Time
	Limit int
}

// EventRepository stores and queries detection events.
type EventRepository interface {
	// InsertBatch persists a batch of events in one transaction.
	InsertBatch(events []Event) error

	// Recent returns matching events, newest first.
	Recent(filter EventFilter) ([]Event, error)

	// CountByLabel returns lifetime totals per label.
	CountByLabel() (map[string]int64, error)
}
