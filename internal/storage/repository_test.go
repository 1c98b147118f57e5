package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"piggyflow/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testExpense(id string, day int, cents int64) core.Expense {
	return core.Expense{
		ID:     id,
		Emoji:  "🍔",
		Name:   "Food",
		Amount: core.Money{Cents: cents},
		Date:   time.Date(2025, time.March, day, 12, 0, 0, 0, time.UTC),
		Note:   "lunch",
	}
}

func TestExpenseRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	want := testExpense("e1", 10, 4500)
	if err := repo.InsertExpense(ctx, want); err != nil {
		t.Fatalf("InsertExpense: %v", err)
	}

	got, err := repo.GetExpense(ctx, "e1")
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if got.Name != want.Name || got.Emoji != want.Emoji || got.Amount.Cents != want.Amount.Cents || got.Note != want.Note {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if !got.Date.Equal(want.Date) {
		t.Fatalf("date = %v, want %v", got.Date, want.Date)
	}
}

func TestExpenseListOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, e := range []core.Expense{
		testExpense("old", 1, 100),
		testExpense("new", 20, 200),
		testExpense("mid", 10, 300),
	} {
		if err := repo.InsertExpense(ctx, e); err != nil {
			t.Fatalf("InsertExpense: %v", err)
		}
	}

	got, err := repo.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d expenses, want 3", len(got))
	}
	for i, id := range []string{"new", "mid", "old"} {
		if got[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestExpenseUpdateAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := testExpense("e1", 10, 4500)
	if err := repo.InsertExpense(ctx, e); err != nil {
		t.Fatalf("InsertExpense: %v", err)
	}
	if err := repo.MarkSynced(ctx, core.KindExpense, "e1"); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	e.Name = "Groceries"
	e.Amount = core.Money{Cents: 9900}
	if err := repo.UpdateExpense(ctx, e); err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}

	got, err := repo.GetExpense(ctx, "e1")
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if got.Name != "Groceries" || got.Amount.Cents != 9900 {
		t.Fatalf("update not applied: %+v", got)
	}

	// The edit must re-enter the sync queue.
	pending, err := repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSync: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "e1" {
		t.Fatalf("edited record not pending: %+v", pending)
	}
	if pending[0].Version != 2 {
		t.Fatalf("version = %d, want 2 after one edit", pending[0].Version)
	}

	if err := repo.DeleteExpense(ctx, "e1"); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if _, err := repo.GetExpense(ctx, "e1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetExpense after delete: got %v, want ErrNotFound", err)
	}
}

func TestExpenseNotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetExpense(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetExpense: got %v, want ErrNotFound", err)
	}
	if err := repo.UpdateExpense(ctx, testExpense("missing", 1, 100)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateExpense: got %v, want ErrNotFound", err)
	}
	if err := repo.DeleteExpense(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteExpense: got %v, want ErrNotFound", err)
	}
}

func TestZeroDateRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := testExpense("e1", 10, 100)
	e.Date = time.Time{}
	if err := repo.InsertExpense(ctx, e); err != nil {
		t.Fatalf("InsertExpense: %v", err)
	}

	got, err := repo.GetExpense(ctx, "e1")
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if !got.Date.IsZero() {
		t.Fatalf("zero date came back as %v", got.Date)
	}
}

func TestIncomeRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	want := core.Income{
		ID:     "i1",
		Amount: core.Money{Cents: 250000},
		Date:   time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC),
		Note:   "salary",
	}
	if err := repo.InsertIncome(ctx, want); err != nil {
		t.Fatalf("InsertIncome: %v", err)
	}

	got, err := repo.GetIncome(ctx, "i1")
	if err != nil {
		t.Fatalf("GetIncome: %v", err)
	}
	if got.Amount.Cents != want.Amount.Cents || got.Note != want.Note || !got.Date.Equal(want.Date) {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	got.Note = "march salary"
	if err := repo.UpdateIncome(ctx, got); err != nil {
		t.Fatalf("UpdateIncome: %v", err)
	}
	if err := repo.DeleteIncome(ctx, "i1"); err != nil {
		t.Fatalf("DeleteIncome: %v", err)
	}
	if _, err := repo.GetIncome(ctx, "i1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetIncome after delete: got %v, want ErrNotFound", err)
	}
}

func TestUserCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, c := range []core.UserCategory{
		{ID: "c1", Name: "Coffee", Emoji: "☕"},
		{ID: "c2", Name: "Pets", Emoji: "🐈"},
		{ID: "c3", Name: "Coffee", Emoji: "☕"}, // duplicates allowed
	} {
		if err := repo.InsertUserCategory(ctx, c); err != nil {
			t.Fatalf("InsertUserCategory: %v", err)
		}
	}

	got, err := repo.ListUserCategories(ctx)
	if err != nil {
		t.Fatalf("ListUserCategories: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d categories, want 3", len(got))
	}
	for i, id := range []string{"c1", "c2", "c3"} {
		if got[i].ID != id {
			t.Fatalf("position %d = %s, want %s (insertion order)", i, got[i].ID, id)
		}
	}
}

func TestPendingSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.InsertExpense(ctx, testExpense("e1", 10, 100)); err != nil {
		t.Fatalf("InsertExpense: %v", err)
	}
	if err := repo.InsertIncome(ctx, core.Income{
		ID:     "i1",
		Amount: core.Money{Cents: 5000},
		Date:   time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("InsertIncome: %v", err)
	}

	pending, err := repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSync: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}

	if err := repo.MarkSynced(ctx, core.KindExpense, "e1"); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if err := repo.MarkSyncError(ctx, core.KindIncome, "i1"); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}

	pending, err = repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSync: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("got %d pending after marking, want 0", len(pending))
	}
}

func TestPendingSyncLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		if err := repo.InsertExpense(ctx, testExpense(id, i+1, 100)); err != nil {
			t.Fatalf("InsertExpense: %v", err)
		}
	}

	pending, err := repo.PendingSync(ctx, 2)
	if err != nil {
		t.Fatalf("PendingSync: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2 (limit)", len(pending))
	}
}

func TestMarkSyncedUnknownKind(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.MarkSynced(context.Background(), "bogus", "x"); err == nil {
		t.Fatalf("unknown kind accepted")
	}
}
