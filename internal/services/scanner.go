package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"piggyflow/internal/billscan"
	"piggyflow/internal/core"
)

// Markers stamped on expenses created from a scanned bill.
const (
	scanEmoji = "🧾"
	scanNote  = "Scanned from bill"
)

// IngestScan extracts line items from recognized bill text and stores each
// one as an expense dated now. A text with no usable lines is not an error;
// it simply creates nothing.
func (t *Tracker) IngestScan(ctx context.Context, text string, now time.Time) ([]core.Expense, error) {
	items := billscan.Extract(text)
	if len(items) == 0 {
		slog.InfoContext(ctx, "Scan produced no line items")
		return nil, nil
	}

	created := make([]core.Expense, 0, len(items))
	for _, item := range items {
		e := core.Expense{
			Emoji:  scanEmoji,
			Name:   item.Name,
			Amount: item.Price,
			Date:   now,
			Note:   scanNote,
		}
		e.EnsureID()
		if err := t.store.InsertExpense(ctx, e); err != nil {
			return created, fmt.Errorf("save scanned expense %q: %w", item.Name, err)
		}
		t.publishSync(ctx, core.KindExpense, e.ID, 1)
		created = append(created, e)
	}

	slog.InfoContext(ctx, "Scan ingested", "item_count", len(created))
	return created, nil
}
