package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"birdcam/internal/repository"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEventRepository_InsertAndRecent(t *testing.T) {
	repo := NewEventRepository(openTestDB(t))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := []repository.Event{
		{Label: "bird", Confidence: 0.8, DetectedAt: base},
		{Label: "cat", Confidence: 0.6, DetectedAt: base.Add(1 * time.Minute)},
		{Label: "bird", Confidence: 0.9, DetectedAt: base.Add(2 * time.Minute)},
	}
	if err := repo.InsertBatch(events); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := repo.Recent(repository.EventFilter{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	// Newest first.
	if got[0].Label != "bird" || got[0].Confidence != 0.9 {
		t.Errorf("expected newest bird@0.9 first, got %s@%.2f", got[0].Label, got[0].Confidence)
	}
	if got[2].Confidence != 0.8 {
		t.Errorf("expected oldest event last, got %+v", got[2])
	}
	if got[0].ID == 0 {
		t.Error("scanned event should carry its row id")
	}
}

func TestEventRepository_InsertEmptyBatch(t *testing.T) {
	repo := NewEventRepository(openTestDB(t))
	if err := repo.InsertBatch(nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}

func TestEventRepository_RecentFilters(t *testing.T) {
	repo := NewEventRepository(openTestDB(t))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var events []repository.Event
	for i := 0; i < 5; i++ {
		events = append(events, repository.Event{
			Label: "bird", Confidence: 0.5, DetectedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	events = append(events, repository.Event{Label: "cat", Confidence: 0.7, DetectedAt: base})
	if err := repo.InsertBatch(events); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	byLabel, err := repo.Recent(repository.EventFilter{Label: "cat"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(byLabel) != 1 || byLabel[0].Label != "cat" {
		t.Errorf("label filter returned %+v", byLabel)
	}

	since, err := repo.Recent(repository.EventFilter{Since: base.Add(3 * time.Minute)})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(since) != 2 {
		t.Errorf("since filter expected 2 events, got %d", len(since))
	}

	limited, err := repo.Recent(repository.EventFilter{Limit: 2})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit 2 returned %d events", len(limited))
	}
}

func TestEventRepository_CountByLabel(t *testing.T) {
	repo := NewEventRepository(openTestDB(t))

	now := time.Now().UTC()
	err := repo.InsertBatch([]repository.Event{
		{Label: "bird", Confidence: 0.8, DetectedAt: now},
		{Label: "bird", Confidence: 0.9, DetectedAt: now},
		{Label: "cat", Confidence: 0.7, DetectedAt: now},
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	counts, err := repo.CountByLabel()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if counts["bird"] != 2 || counts["cat"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
