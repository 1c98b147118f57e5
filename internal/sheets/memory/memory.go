// Package memory holds an in-process mirror used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"piggyflow/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows map[string]sheets.RecordRow
}

func New() *Mirror {
	return &Mirror{rows: make(map[string]sheets.RecordRow)}
}

func key(kind, id string) string {
	return kind + "/" + id
}

// Upsert stores or replaces the row for the record.
func (m *Mirror) Upsert(_ context.Context, row sheets.RecordRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[key(row.Kind, row.ID)] = row
	return nil
}

// Delete removes the row; deleting an absent row is a no-op.
func (m *Mirror) Delete(_ context.Context, kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, key(kind, id))
	return nil
}

// Get returns the stored row for a record, if any.
func (m *Mirror) Get(kind, id string) (sheets.RecordRow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[key(kind, id)]
	return row, ok
}

// Len returns the number of mirrored rows.
func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
