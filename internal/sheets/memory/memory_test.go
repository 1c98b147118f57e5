package memory

import (
	"context"
	"testing"

	"piggyflow/internal/sheets"
)

func TestUpsertReplaces(t *testing.T) {
	m := New()
	ctx := context.Background()

	row := sheets.RecordRow{ID: "a", Kind: "expense", Title: "Food", AmountCents: 4500}
	if err := m.Upsert(ctx, row); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	row.AmountCents = 9900
	if err := m.Upsert(ctx, row); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (upsert must replace)", m.Len())
	}
	got, ok := m.Get("expense", "a")
	if !ok || got.AmountCents != 9900 {
		t.Fatalf("Get = %+v ok=%v, want replaced row", got, ok)
	}
}

func TestKindsDoNotCollide(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.Upsert(ctx, sheets.RecordRow{ID: "a", Kind: "expense"})
	m.Upsert(ctx, sheets.RecordRow{ID: "a", Kind: "income"})

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (same id, different kinds)", m.Len())
	}
}

func TestDelete(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.Upsert(ctx, sheets.RecordRow{ID: "a", Kind: "expense"})
	if err := m.Delete(ctx, "expense", "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := m.Get("expense", "a"); ok {
		t.Fatalf("row survived delete")
	}

	// Deleting a missing row stays quiet so replayed messages ack cleanly.
	if err := m.Delete(ctx, "expense", "missing"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}
