package sqlite

import (
	"fmt"

	"birdcam/internal/repository"
)

// EventRepository implements repository.EventRepository for SQLite.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// InsertBatch adds detection events in a single transaction.
func (r *EventRepository) InsertBatch(events []repository.Event) error {
	if len(events) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO detection_events (label, confidence, detected_at)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		if _, err := stmt.Exec(event.Label, event.Confidence, event.DetectedAt); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	return tx.Commit()
}

// Recent returns matching events, newest first.
func (r *EventRepository) Recent(filter repository.EventFilter) ([]repository.Event, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT id, label, confidence, detected_at
		FROM detection_events
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.Label != "" {
		query += " AND label = ?"
		args = append(args, filter.Label)
	}
	if !filter.Since.IsZero() {
		query += " AND detected_at >= ?"
		args = append(args, filter.Since)
	}

	query += " ORDER BY detected_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []repository.Event
	for rows.Next() {
		var event repository.Event
		if err := rows.Scan(&event.ID, &event.Label, &event.Confidence, &event.DetectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// CountByLabel returns lifetime totals per label.
func (r *EventRepository) CountByLabel() (map[string]int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT label, COUNT(*) FROM detection_events GROUP BY label
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var label string
		var count int64
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[label] = count
	}

	return counts, rows.Err()
}
