// Package worker mirrors local ledger records into the configured
// spreadsheet, driven by AMQP messages with a periodic catch-up pass for
// anything a lost message left behind.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"piggyflow/internal/amqp"
	"piggyflow/internal/core"
	"piggyflow/internal/sheets"
	"piggyflow/internal/storage"
)

// Store is the slice of the repository the worker needs.
type Store interface {
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	GetIncome(ctx context.Context, id string) (core.Income, error)
	PendingSync(ctx context.Context, limit int) ([]storage.PendingRecord, error)
	MarkSynced(ctx context.Context, kind, id string) error
	MarkSyncError(ctx context.Context, kind, id string) error
}

// SyncWorker pushes record changes to the mirror.
type SyncWorker struct {
	store     Store
	mirror    sheets.RecordMirror
	batchSize int
}

func NewSyncWorker(store Store, mirror sheets.RecordMirror, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     store,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleMessage dispatches one AMQP message to the matching operation.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	switch msg.Op {
	case amqp.OpSync:
		return w.HandleSyncMessage(ctx, msg)
	case amqp.OpDelete:
		return w.HandleDeleteMessage(ctx, msg)
	default:
		return fmt.Errorf("unknown message op %q", msg.Op)
	}
}

// HandleSyncMessage mirrors the current stored state of one record. A record
// deleted since the message was published is treated as done; the deletion
// message will handle the mirror row.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"kind", msg.Kind,
		"id", msg.ID,
		"version", msg.Version)

	row, err := w.loadRow(ctx, msg.Kind, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Record gone before sync, skipping", "kind", msg.Kind, "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}

	return w.mirrorRow(ctx, row)
}

// HandleDeleteMessage removes the record's row from the mirror.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing delete message",
		"kind", msg.Kind,
		"id", msg.ID)

	if err := w.mirror.Delete(ctx, msg.Kind, msg.ID); err != nil {
		return fmt.Errorf("delete mirrored record: %w", err)
	}
	return nil
}

// ProcessPending mirrors records still marked pending. This is the backup
// path for lost AMQP messages and worker downtime.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.PendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending records: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending records", "count", len(pending))

	for _, p := range pending {
		row, err := w.loadRow(ctx, p.Kind, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending record",
				"kind", p.Kind, "id", p.ID, "error", err)
			if markErr := w.store.MarkSyncError(ctx, p.Kind, p.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error",
					"kind", p.Kind, "id", p.ID, "error", markErr)
			}
			continue
		}
		if err := w.mirrorRow(ctx, row); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror pending record",
				"kind", p.Kind, "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck drains a larger pending batch once at worker startup.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.PendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending records for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending records found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending records on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, p := range pending {
		row, err := w.loadRow(ctx, p.Kind, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load record for startup sync",
				"kind", p.Kind, "id", p.ID, "error", err)
			if markErr := w.store.MarkSyncError(ctx, p.Kind, p.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error",
					"kind", p.Kind, "id", p.ID, "error", markErr)
			}
			errorCount++
			continue
		}
		if err := w.mirrorRow(ctx, row); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror record during startup",
				"kind", p.Kind, "id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) loadRow(ctx context.Context, kind, id string) (sheets.RecordRow, error) {
	switch kind {
	case core.KindExpense:
		e, err := w.store.GetExpense(ctx, id)
		if err != nil {
			return sheets.RecordRow{}, err
		}
		return ExpenseRow(e), nil
	case core.KindIncome:
		i, err := w.store.GetIncome(ctx, id)
		if err != nil {
			return sheets.RecordRow{}, err
		}
		return IncomeRow(i), nil
	default:
		return sheets.RecordRow{}, fmt.Errorf("unknown record kind %q", kind)
	}
}

func (w *SyncWorker) mirrorRow(ctx context.Context, row sheets.RecordRow) error {
	if err := w.mirror.Upsert(ctx, row); err != nil {
		if markErr := w.store.MarkSyncError(ctx, row.Kind, row.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"kind", row.Kind, "id", row.ID, "error", markErr)
		}
		return fmt.Errorf("upsert mirrored record: %w", err)
	}

	if err := w.store.MarkSynced(ctx, row.Kind, row.ID); err != nil {
		// The mirror write worked; the catch-up pass will retry the mark.
		slog.ErrorContext(ctx, "Failed to mark as synced",
			"kind", row.Kind, "id", row.ID, "error", err)
	}

	slog.InfoContext(ctx, "Record mirrored",
		"kind", row.Kind,
		"id", row.ID,
		"amount_cents", row.AmountCents)
	return nil
}

// ExpenseRow flattens an expense for the mirror. The derived display fields
// match what the ledger shows.
func ExpenseRow(e core.Expense) sheets.RecordRow {
	return sheets.RecordRow{
		ID:          e.ID,
		Kind:        core.KindExpense,
		Date:        encodeRowDate(e.Date),
		Title:       e.Name,
		Emoji:       e.Emoji,
		AmountCents: e.Amount.Cents,
		Note:        e.Note,
	}
}

// IncomeRow flattens an income entry with its fixed display identity.
func IncomeRow(i core.Income) sheets.RecordRow {
	item := core.IncomeItem(i)
	return sheets.RecordRow{
		ID:          i.ID,
		Kind:        core.KindIncome,
		Date:        encodeRowDate(i.Date),
		Title:       item.Title(),
		Emoji:       item.Emoji(),
		AmountCents: i.Amount.Cents,
		Note:        item.Note(),
	}
}

func encodeRowDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
