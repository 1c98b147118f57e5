package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"piggyflow/internal/core"
)

type fakeStore struct {
	expenses []core.Expense
	incomes  []core.Income

	failInsert bool
}

func (f *fakeStore) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return append([]core.Expense(nil), f.expenses...), nil
}

func (f *fakeStore) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	for _, e := range f.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, errors.New("not found")
}

func (f *fakeStore) InsertExpense(ctx context.Context, e core.Expense) error {
	if f.failInsert {
		return errors.New("disk full")
	}
	f.expenses = append(f.expenses, e)
	return nil
}

func (f *fakeStore) UpdateExpense(ctx context.Context, e core.Expense) error {
	for i := range f.expenses {
		if f.expenses[i].ID == e.ID {
			f.expenses[i] = e
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeStore) DeleteExpense(ctx context.Context, id string) error {
	for i := range f.expenses {
		if f.expenses[i].ID == id {
			f.expenses = append(f.expenses[:i], f.expenses[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeStore) ListIncomes(ctx context.Context) ([]core.Income, error) {
	return append([]core.Income(nil), f.incomes...), nil
}

func (f *fakeStore) GetIncome(ctx context.Context, id string) (core.Income, error) {
	for _, i := range f.incomes {
		if i.ID == id {
			return i, nil
		}
	}
	return core.Income{}, errors.New("not found")
}

func (f *fakeStore) InsertIncome(ctx context.Context, i core.Income) error {
	f.incomes = append(f.incomes, i)
	return nil
}

func (f *fakeStore) UpdateIncome(ctx context.Context, in core.Income) error {
	for i := range f.incomes {
		if f.incomes[i].ID == in.ID {
			f.incomes[i] = in
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeStore) DeleteIncome(ctx context.Context, id string) error {
	for i := range f.incomes {
		if f.incomes[i].ID == id {
			f.incomes = append(f.incomes[:i], f.incomes[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

type published struct {
	op, kind, id string
	version      int64
}

type fakeQueue struct {
	msgs []published
	fail bool
}

func (f *fakeQueue) PublishRecordSync(ctx context.Context, kind, id string, version int64) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.msgs = append(f.msgs, published{op: "sync", kind: kind, id: id, version: version})
	return nil
}

func (f *fakeQueue) PublishRecordDelete(ctx context.Context, kind, id string) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.msgs = append(f.msgs, published{op: "delete", kind: kind, id: id})
	return nil
}

func newTestTracker() (*Tracker, *fakeStore, *fakeQueue) {
	store := &fakeStore{}
	queue := &fakeQueue{}
	return NewTracker(store, queue, time.UTC), store, queue
}

func mar(day int) time.Time {
	return time.Date(2025, time.March, day, 12, 0, 0, 0, time.UTC)
}

func TestAddExpense(t *testing.T) {
	tr, store, queue := newTestTracker()

	e, err := tr.AddExpense(context.Background(), ExpenseInput{
		Emoji: "🍔", Name: "Food", Amount: "45.00", Date: mar(10), Note: "lunch",
	})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if e.ID == "" {
		t.Fatalf("new expense has no id")
	}
	if e.Amount.Cents != 4500 {
		t.Fatalf("amount = %d, want 4500", e.Amount.Cents)
	}
	if len(store.expenses) != 1 {
		t.Fatalf("expense not stored")
	}
	if len(queue.msgs) != 1 || queue.msgs[0].op != "sync" || queue.msgs[0].kind != core.KindExpense {
		t.Fatalf("sync message = %+v", queue.msgs)
	}
}

func TestAddExpenseInvalidAmountWritesNothing(t *testing.T) {
	tr, store, queue := newTestTracker()

	for _, amount := range []string{"", "abc", "-5", "1.2.3"} {
		_, err := tr.AddExpense(context.Background(), ExpenseInput{
			Emoji: "🍔", Name: "Food", Amount: amount, Date: mar(10),
		})
		if !IsValidation(err) {
			t.Fatalf("amount %q: got %v, want ValidationError", amount, err)
		}
	}
	if len(store.expenses) != 0 || len(queue.msgs) != 0 {
		t.Fatalf("invalid input reached store or queue")
	}
}

func TestAddExpenseInvalidFields(t *testing.T) {
	tr, _, _ := newTestTracker()

	cases := []struct {
		name string
		in   ExpenseInput
		want error
	}{
		{"blank name", ExpenseInput{Emoji: "🍔", Name: " ", Amount: "1", Date: mar(10)}, core.ErrEmptyName},
		{"blank emoji", ExpenseInput{Name: "Food", Amount: "1", Date: mar(10)}, core.ErrEmptyEmoji},
		{"zero date", ExpenseInput{Emoji: "🍔", Name: "Food", Amount: "1"}, core.ErrZeroDate},
	}
	for _, tc := range cases {
		_, err := tr.AddExpense(context.Background(), tc.in)
		if !IsValidation(err) || !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want ValidationError wrapping %v", tc.name, err, tc.want)
		}
	}
}

func TestAddExpenseStoreFailure(t *testing.T) {
	tr, store, queue := newTestTracker()
	store.failInsert = true

	_, err := tr.AddExpense(context.Background(), ExpenseInput{
		Emoji: "🍔", Name: "Food", Amount: "1", Date: mar(10),
	})
	if err == nil || IsValidation(err) {
		t.Fatalf("store failure: got %v, want non-validation error", err)
	}
	if len(queue.msgs) != 0 {
		t.Fatalf("sync published despite failed save")
	}
}

func TestUpdateExpense(t *testing.T) {
	tr, store, queue := newTestTracker()

	e, _ := tr.AddExpense(context.Background(), ExpenseInput{
		Emoji: "🍔", Name: "Food", Amount: "45.00", Date: mar(10),
	})

	got, err := tr.UpdateExpense(context.Background(), e.ID, ExpenseInput{
		Emoji: "🛒", Name: "Groceries", Amount: "99,00", Date: mar(11), Note: "weekly",
	})
	if err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	if got.ID != e.ID {
		t.Fatalf("update changed id: %s -> %s", e.ID, got.ID)
	}
	if store.expenses[0].Name != "Groceries" || store.expenses[0].Amount.Cents != 9900 {
		t.Fatalf("update not stored: %+v", store.expenses[0])
	}
	if len(queue.msgs) != 2 {
		t.Fatalf("expected add + update messages, got %+v", queue.msgs)
	}
}

func TestQueueFailureDoesNotFailWrite(t *testing.T) {
	tr, store, queue := newTestTracker()
	queue.fail = true

	_, err := tr.AddExpense(context.Background(), ExpenseInput{
		Emoji: "🍔", Name: "Food", Amount: "1", Date: mar(10),
	})
	if err != nil {
		t.Fatalf("AddExpense failed on broker error: %v", err)
	}
	if len(store.expenses) != 1 {
		t.Fatalf("record lost")
	}
}

func TestNilQueue(t *testing.T) {
	store := &fakeStore{}
	tr := NewTracker(store, nil, time.UTC)

	if _, err := tr.AddExpense(context.Background(), ExpenseInput{
		Emoji: "🍔", Name: "Food", Amount: "1", Date: mar(10),
	}); err != nil {
		t.Fatalf("AddExpense without queue: %v", err)
	}
}

func TestIncomeLifecycle(t *testing.T) {
	tr, store, queue := newTestTracker()

	i, err := tr.AddIncome(context.Background(), IncomeInput{
		Amount: "2500.00", Date: mar(1), Note: "salary",
	})
	if err != nil {
		t.Fatalf("AddIncome: %v", err)
	}
	if i.Amount.Cents != 250000 {
		t.Fatalf("amount = %d", i.Amount.Cents)
	}

	if _, err := tr.UpdateIncome(context.Background(), i.ID, IncomeInput{
		Amount: "2600.00", Date: mar(1), Note: "salary+bonus",
	}); err != nil {
		t.Fatalf("UpdateIncome: %v", err)
	}
	if store.incomes[0].Amount.Cents != 260000 {
		t.Fatalf("update not stored: %+v", store.incomes[0])
	}

	if err := tr.DeleteIncome(context.Background(), i.ID); err != nil {
		t.Fatalf("DeleteIncome: %v", err)
	}
	if len(store.incomes) != 0 {
		t.Fatalf("income survived delete")
	}
	if queue.msgs[len(queue.msgs)-1].op != "delete" {
		t.Fatalf("last message = %+v, want delete", queue.msgs[len(queue.msgs)-1])
	}
}

func TestLedgerMergeFilterSearch(t *testing.T) {
	tr, _, _ := newTestTracker()
	ctx := context.Background()

	tr.AddExpense(ctx, ExpenseInput{Emoji: "🍔", Name: "Food", Amount: "45.00", Date: mar(10), Note: "lunch"})
	tr.AddExpense(ctx, ExpenseInput{Emoji: "🚌", Name: "Transport", Amount: "3.00", Date: mar(12)})
	tr.AddExpense(ctx, ExpenseInput{Emoji: "🍔", Name: "Food", Amount: "12.00", Date: time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)})
	tr.AddIncome(ctx, IncomeInput{Amount: "2500.00", Date: mar(1), Note: "salary"})

	items, err := tr.Ledger(ctx, nil, time.Time{}, "")
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("got %d items, want 4", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].Date().After(items[i-1].Date()) {
			t.Fatalf("timeline not descending at %d", i)
		}
	}

	month := core.PeriodMonth
	items, err = tr.Ledger(ctx, &month, mar(12), "")
	if err != nil {
		t.Fatalf("Ledger month: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("march items = %d, want 3", len(items))
	}

	items, err = tr.Ledger(ctx, &month, mar(12), "food")
	if err != nil {
		t.Fatalf("Ledger search: %v", err)
	}
	if len(items) != 1 || items[0].Title() != "Food" {
		t.Fatalf("search results = %d", len(items))
	}
}

func TestDeleteTransaction(t *testing.T) {
	tr, store, _ := newTestTracker()
	ctx := context.Background()

	tr.AddExpense(ctx, ExpenseInput{Emoji: "🍔", Name: "Food", Amount: "45.00", Date: mar(10)})
	tr.AddIncome(ctx, IncomeInput{Amount: "2500.00", Date: mar(1)})

	items, _ := tr.Ledger(ctx, nil, time.Time{}, "")
	for _, item := range items {
		if err := tr.DeleteTransaction(ctx, item); err != nil {
			t.Fatalf("DeleteTransaction(%s): %v", item.Kind(), err)
		}
	}
	if len(store.expenses) != 0 || len(store.incomes) != 0 {
		t.Fatalf("records survived deletion")
	}
}

func TestTotalsAndMonthStats(t *testing.T) {
	tr, _, _ := newTestTracker()
	ctx := context.Background()

	tr.AddExpense(ctx, ExpenseInput{Emoji: "🍔", Name: "Food", Amount: "45.00", Date: mar(10)})
	tr.AddExpense(ctx, ExpenseInput{Emoji: "🚌", Name: "Transport", Amount: "3.00", Date: mar(12)})
	tr.AddIncome(ctx, IncomeInput{Amount: "2500.00", Date: mar(1)})

	totals, err := tr.Totals(ctx, core.PeriodMonth, mar(15))
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Expense.Cents != 4800 || totals.Income.Cents != 250000 {
		t.Fatalf("totals = %+v", totals)
	}

	monthTotals, breakdown, err := tr.MonthStats(ctx, 2025, time.March)
	if err != nil {
		t.Fatalf("MonthStats: %v", err)
	}
	if monthTotals != totals {
		t.Fatalf("month stats totals = %+v, want %+v", monthTotals, totals)
	}
	if len(breakdown) != 2 || breakdown[0].Name != "Food" {
		t.Fatalf("breakdown = %+v", breakdown)
	}
}

func TestDaily(t *testing.T) {
	tr, _, _ := newTestTracker()
	ctx := context.Background()

	tr.AddExpense(ctx, ExpenseInput{Emoji: "🍔", Name: "Food", Amount: "45.00", Date: mar(10)})
	tr.AddExpense(ctx, ExpenseInput{Emoji: "🍟", Name: "Snack", Amount: "2.00", Date: mar(10)})
	tr.AddExpense(ctx, ExpenseInput{Emoji: "🚌", Name: "Transport", Amount: "3.00", Date: mar(12)})

	points, err := tr.Daily(ctx)
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].Total.Cents != 4700 || points[1].Total.Cents != 300 {
		t.Fatalf("points = %+v", points)
	}
}
