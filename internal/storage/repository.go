// Package storage persists ledger records and user categories in a local
// SQLite database. All dates are stored as RFC3339 UTC text; a record whose
// date could not be parsed on the way in is stored with an empty date and
// comes back with a zero time.Time.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"piggyflow/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("record not found")

// Sync states for the mirror queue.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

// PendingRecord identifies one record awaiting mirror sync.
type PendingRecord struct {
	Kind    string
	ID      string
	Version int64
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func encodeDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func decodeDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ListExpenses returns every stored expense, newest date first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, emoji, name, amount_cents, date, note FROM expenses ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var e core.Expense
		var date string
		if err := rows.Scan(&e.ID, &e.Emoji, &e.Name, &e.Amount.Cents, &date, &e.Note); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date = decodeDate(date)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// GetExpense retrieves a single expense by id.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	var e core.Expense
	var date string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, emoji, name, amount_cents, date, note FROM expenses WHERE id = ?`, id).
		Scan(&e.ID, &e.Emoji, &e.Name, &e.Amount.Cents, &date, &e.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	e.Date = decodeDate(date)
	return e, nil
}

// InsertExpense stores a new expense in pending sync state.
func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, emoji, name, amount_cents, date, note) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Emoji, e.Name, e.Amount.Cents, encodeDate(e.Date), e.Note)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"name", e.Name,
		"amount_cents", e.Amount.Cents)
	return nil
}

// UpdateExpense rewrites an existing expense, bumps its version and resets
// it to pending so the mirror picks the change up.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		 SET emoji = ?, name = ?, amount_cents = ?, date = ?, note = ?,
		     sync_state = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		e.Emoji, e.Name, e.Amount.Cents, encodeDate(e.Date), e.Note, SyncPending, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update expense %s: %w", e.ID, ErrNotFound)
	}
	return nil
}

// DeleteExpense removes an expense by id.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete expense %s: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

// ListIncomes returns every stored income, newest date first.
func (r *SQLiteRepository) ListIncomes(ctx context.Context) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, date, note FROM incomes ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var i core.Income
		var date string
		if err := rows.Scan(&i.ID, &i.Amount.Cents, &date, &i.Note); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		i.Date = decodeDate(date)
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incomes: %w", err)
	}
	return out, nil
}

// GetIncome retrieves a single income by id.
func (r *SQLiteRepository) GetIncome(ctx context.Context, id string) (core.Income, error) {
	var i core.Income
	var date string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, amount_cents, date, note FROM incomes WHERE id = ?`, id).
		Scan(&i.ID, &i.Amount.Cents, &date, &i.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, fmt.Errorf("get income %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("get income %s: %w", id, err)
	}
	i.Date = decodeDate(date)
	return i, nil
}

// InsertIncome stores a new income in pending sync state.
func (r *SQLiteRepository) InsertIncome(ctx context.Context, i core.Income) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (id, amount_cents, date, note) VALUES (?, ?, ?, ?)`,
		i.ID, i.Amount.Cents, encodeDate(i.Date), i.Note)
	if err != nil {
		return fmt.Errorf("insert income: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", i.ID,
		"amount_cents", i.Amount.Cents)
	return nil
}

// UpdateIncome rewrites an existing income and resets it to pending.
func (r *SQLiteRepository) UpdateIncome(ctx context.Context, i core.Income) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE incomes
		 SET amount_cents = ?, date = ?, note = ?,
		     sync_state = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		i.Amount.Cents, encodeDate(i.Date), i.Note, SyncPending, i.ID)
	if err != nil {
		return fmt.Errorf("update income: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update income %s: %w", i.ID, ErrNotFound)
	}
	return nil
}

// DeleteIncome removes an income by id.
func (r *SQLiteRepository) DeleteIncome(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete income %s: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Income deleted", "id", id)
	return nil
}

// ListUserCategories returns user categories in insertion order.
func (r *SQLiteRepository) ListUserCategories(ctx context.Context) ([]core.UserCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, emoji FROM user_categories ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list user categories: %w", err)
	}
	defer rows.Close()

	var out []core.UserCategory
	for rows.Next() {
		var c core.UserCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Emoji); err != nil {
			return nil, fmt.Errorf("scan user category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user categories: %w", err)
	}
	return out, nil
}

// InsertUserCategory appends a user category. Duplicate names are allowed.
func (r *SQLiteRepository) InsertUserCategory(ctx context.Context, c core.UserCategory) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_categories (id, name, emoji) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.Emoji)
	if err != nil {
		return fmt.Errorf("insert user category: %w", err)
	}
	return nil
}

// PendingSync returns up to limit records awaiting mirror sync, oldest first,
// expenses and incomes interleaved by creation time.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]PendingRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, id, version FROM (
		    SELECT ? AS kind, id, version, created_at FROM expenses WHERE sync_state = ?
		    UNION ALL
		    SELECT ? AS kind, id, version, created_at FROM incomes WHERE sync_state = ?
		 ) ORDER BY created_at LIMIT ?`,
		core.KindExpense, SyncPending, core.KindIncome, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync records: %w", err)
	}
	defer rows.Close()

	var out []PendingRecord
	for rows.Next() {
		var p PendingRecord
		if err := rows.Scan(&p.Kind, &p.ID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending record: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending records: %w", err)
	}
	return out, nil
}

// MarkSynced marks a record as mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, kind, id string) error {
	if err := r.setSyncState(ctx, kind, id, SyncSynced); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Record marked as synced", "kind", kind, "id", id)
	return nil
}

// MarkSyncError marks a record as failed to mirror.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, kind, id string) error {
	if err := r.setSyncState(ctx, kind, id, SyncError); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Record marked with sync error", "kind", kind, "id", id)
	return nil
}

func (r *SQLiteRepository) setSyncState(ctx context.Context, kind, id, state string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE `+table+` SET sync_state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, state, id)
	if err != nil {
		return fmt.Errorf("set sync state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set sync state for %s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

func tableFor(kind string) (string, error) {
	switch kind {
	case core.KindExpense:
		return "expenses", nil
	case core.KindIncome:
		return "incomes", nil
	default:
		return "", fmt.Errorf("unknown record kind %q", kind)
	}
}
