package services

import (
	"context"
	"testing"
	"time"
)

func TestIngestScan(t *testing.T) {
	tr, store, queue := newTestTracker()
	now := mar(15)

	created, err := tr.IngestScan(context.Background(), "Apple 45.00\nBread - 30.5\ngarbled###line\nMilk 20", now)
	if err != nil {
		t.Fatalf("IngestScan: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created %d expenses, want 3", len(created))
	}

	for i, want := range []struct {
		name  string
		cents int64
	}{{"Apple", 4500}, {"Bread", 3050}, {"Milk", 2000}} {
		e := created[i]
		if e.Name != want.name || e.Amount.Cents != want.cents {
			t.Fatalf("item %d = (%q, %d), want (%q, %d)", i, e.Name, e.Amount.Cents, want.name, want.cents)
		}
		if e.Emoji != "🧾" || e.Note != "Scanned from bill" {
			t.Fatalf("item %d missing scan markers: %+v", i, e)
		}
		if !e.Date.Equal(now) {
			t.Fatalf("item %d date = %v, want %v", i, e.Date, now)
		}
		if e.ID == "" {
			t.Fatalf("item %d has no id", i)
		}
	}

	if len(store.expenses) != 3 {
		t.Fatalf("stored %d expenses, want 3", len(store.expenses))
	}
	if len(queue.msgs) != 3 {
		t.Fatalf("published %d messages, want 3", len(queue.msgs))
	}
}

func TestIngestScanGarbledText(t *testing.T) {
	tr, store, _ := newTestTracker()

	created, err := tr.IngestScan(context.Background(), "####\n...\n", mar(15))
	if err != nil {
		t.Fatalf("IngestScan: %v", err)
	}
	if len(created) != 0 || len(store.expenses) != 0 {
		t.Fatalf("garbled scan created expenses: %+v", created)
	}
}

func TestIngestScanStoreFailure(t *testing.T) {
	tr, store, queue := newTestTracker()
	store.failInsert = true

	_, err := tr.IngestScan(context.Background(), "Apple 45.00", time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatalf("store failure swallowed")
	}
	if len(queue.msgs) != 0 {
		t.Fatalf("published despite failed save")
	}
}
