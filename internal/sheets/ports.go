// Package sheets defines the outbound port for mirroring ledger records to
// a spreadsheet, plus the row shape the mirror speaks.
package sheets

import (
	"context"
)

// RecordRow is the flattened spreadsheet form of a ledger record. One row
// per record, keyed by ID.
type RecordRow struct {
	ID          string
	Kind        string
	Date        string // RFC3339 UTC, empty when the record has no date
	Title       string
	Emoji       string
	AmountCents int64
	Note        string
}

// RecordMirror is the port for outbound mirror adapters. Upsert must be
// idempotent per ID so the worker can replay messages safely.
type RecordMirror interface {
	Upsert(ctx context.Context, row RecordRow) error
	Delete(ctx context.Context, kind, id string) error
}
