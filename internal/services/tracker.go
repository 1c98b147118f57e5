// Package services orchestrates ledger operations across storage, the sync
// queue and the reporting core.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"piggyflow/internal/core"
)

// ValidationError marks input the caller can fix. HTTP handlers map it to a
// 400 instead of a 500.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Store is the slice of the repository the tracker needs.
type Store interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	InsertExpense(ctx context.Context, e core.Expense) error
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id string) error

	ListIncomes(ctx context.Context) ([]core.Income, error)
	GetIncome(ctx context.Context, id string) (core.Income, error)
	InsertIncome(ctx context.Context, i core.Income) error
	UpdateIncome(ctx context.Context, i core.Income) error
	DeleteIncome(ctx context.Context, id string) error
}

// Queue publishes change events for the mirror worker. A nil Queue disables
// publishing; records are then only stored locally.
type Queue interface {
	PublishRecordSync(ctx context.Context, kind, id string, version int64) error
	PublishRecordDelete(ctx context.Context, kind, id string) error
}

// Tracker is the ledger service: writes go to the store first, then a change
// event is published best-effort. Reads assemble the merged timeline and the
// statistics from the store.
type Tracker struct {
	store Store
	queue Queue
	loc   *time.Location
}

func NewTracker(store Store, queue Queue, loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{store: store, queue: queue, loc: loc}
}

// ExpenseInput is the raw form of an expense as entered by the user.
// Amount is the unparsed text so the parse failure surfaces as a
// ValidationError like every other field problem.
type ExpenseInput struct {
	Emoji  string
	Name   string
	Amount string
	Date   time.Time
	Note   string
}

// IncomeInput is the raw form of an income entry.
type IncomeInput struct {
	Amount string
	Date   time.Time
	Note   string
}

func (t *Tracker) buildExpense(id string, in ExpenseInput) (core.Expense, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Expense{}, &ValidationError{Err: fmt.Errorf("amount %q: %w", in.Amount, err)}
	}
	e := core.Expense{
		ID:     id,
		Emoji:  in.Emoji,
		Name:   in.Name,
		Amount: amount,
		Date:   in.Date,
		Note:   in.Note,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, &ValidationError{Err: err}
	}
	e.EnsureID()
	return e, nil
}

func (t *Tracker) buildIncome(id string, in IncomeInput) (core.Income, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Income{}, &ValidationError{Err: fmt.Errorf("amount %q: %w", in.Amount, err)}
	}
	i := core.Income{
		ID:     id,
		Amount: amount,
		Date:   in.Date,
		Note:   in.Note,
	}
	if err := i.Validate(); err != nil {
		return core.Income{}, &ValidationError{Err: err}
	}
	i.EnsureID()
	return i, nil
}

// AddExpense validates and stores a new expense. Nothing is written when
// validation fails.
func (t *Tracker) AddExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	e, err := t.buildExpense("", in)
	if err != nil {
		return core.Expense{}, err
	}
	if err := t.store.InsertExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	t.publishSync(ctx, core.KindExpense, e.ID, 1)
	return e, nil
}

// UpdateExpense replaces an existing expense with revalidated input.
func (t *Tracker) UpdateExpense(ctx context.Context, id string, in ExpenseInput) (core.Expense, error) {
	e, err := t.buildExpense(id, in)
	if err != nil {
		return core.Expense{}, err
	}
	if err := t.store.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	t.publishSync(ctx, core.KindExpense, e.ID, 0)
	return e, nil
}

// DeleteExpense removes an expense and notifies the mirror.
func (t *Tracker) DeleteExpense(ctx context.Context, id string) error {
	if err := t.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	t.publishDelete(ctx, core.KindExpense, id)
	return nil
}

// AddIncome validates and stores a new income entry.
func (t *Tracker) AddIncome(ctx context.Context, in IncomeInput) (core.Income, error) {
	i, err := t.buildIncome("", in)
	if err != nil {
		return core.Income{}, err
	}
	if err := t.store.InsertIncome(ctx, i); err != nil {
		return core.Income{}, fmt.Errorf("save income: %w", err)
	}
	t.publishSync(ctx, core.KindIncome, i.ID, 1)
	return i, nil
}

// UpdateIncome replaces an existing income entry.
func (t *Tracker) UpdateIncome(ctx context.Context, id string, in IncomeInput) (core.Income, error) {
	i, err := t.buildIncome(id, in)
	if err != nil {
		return core.Income{}, err
	}
	if err := t.store.UpdateIncome(ctx, i); err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	t.publishSync(ctx, core.KindIncome, i.ID, 0)
	return i, nil
}

// DeleteIncome removes an income entry and notifies the mirror.
func (t *Tracker) DeleteIncome(ctx context.Context, id string) error {
	if err := t.store.DeleteIncome(ctx, id); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	t.publishDelete(ctx, core.KindIncome, id)
	return nil
}

// DeleteTransaction removes whichever record backs the given item.
func (t *Tracker) DeleteTransaction(ctx context.Context, item core.TransactionItem) error {
	switch item.Kind() {
	case core.KindExpense:
		return t.DeleteExpense(ctx, item.ID())
	case core.KindIncome:
		return t.DeleteIncome(ctx, item.ID())
	default:
		return fmt.Errorf("unknown transaction kind %q", item.Kind())
	}
}

// Ledger returns the merged transaction timeline, newest first, optionally
// restricted to the period containing ref and filtered by a search query.
func (t *Tracker) Ledger(ctx context.Context, period *core.Period, ref time.Time, query string) ([]core.TransactionItem, error) {
	expenses, incomes, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	items := core.MergeTransactions(expenses, incomes)
	if period != nil {
		items = core.FilterByPeriod(items, *period, ref.In(t.loc))
	}
	return core.SearchTransactions(items, query), nil
}

// Totals returns income and expense sums for the period containing ref.
func (t *Tracker) Totals(ctx context.Context, period core.Period, ref time.Time) (core.PeriodTotals, error) {
	expenses, incomes, err := t.load(ctx)
	if err != nil {
		return core.PeriodTotals{}, err
	}
	return core.Totals(expenses, incomes, period, ref.In(t.loc)), nil
}

// Breakdown groups every stored expense by category name.
func (t *Tracker) Breakdown(ctx context.Context) ([]core.CategoryTotal, error) {
	expenses, err := t.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	return core.CategoryBreakdown(expenses), nil
}

// Daily returns per-day expense totals across the whole ledger.
func (t *Tracker) Daily(ctx context.Context) ([]core.DailyPoint, error) {
	expenses, err := t.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	return core.DailySeries(expenses, t.loc), nil
}

// MonthStats reports totals and the category breakdown for one calendar
// month, chosen by any reference date inside it.
func (t *Tracker) MonthStats(ctx context.Context, year int, month time.Month) (core.PeriodTotals, []core.CategoryTotal, error) {
	expenses, incomes, err := t.load(ctx)
	if err != nil {
		return core.PeriodTotals{}, nil, err
	}
	ref := time.Date(year, month, 1, 0, 0, 0, 0, t.loc)
	totals := core.Totals(expenses, incomes, core.PeriodMonth, ref)

	inMonth := make([]core.Expense, 0)
	for _, e := range expenses {
		if core.InPeriod(e.Date, core.PeriodMonth, ref) {
			inMonth = append(inMonth, e)
		}
	}
	return totals, core.CategoryBreakdown(inMonth), nil
}

func (t *Tracker) load(ctx context.Context) ([]core.Expense, []core.Income, error) {
	expenses, err := t.store.ListExpenses(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch expenses: %w", err)
	}
	incomes, err := t.store.ListIncomes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch incomes: %w", err)
	}
	return expenses, incomes, nil
}

// publishSync emits a change event. Publish failures never fail the request;
// the record is already safe locally and the worker's catch-up pass covers it.
func (t *Tracker) publishSync(ctx context.Context, kind, id string, version int64) {
	if t.queue == nil {
		return
	}
	if err := t.queue.PublishRecordSync(ctx, kind, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"kind", kind, "id", id, "error", err)
	}
}

func (t *Tracker) publishDelete(ctx context.Context, kind, id string) {
	if t.queue == nil {
		return
	}
	if err := t.queue.PublishRecordDelete(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"kind", kind, "id", id, "error", err)
	}
}

// IsValidation reports whether err stems from caller input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
