package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message operations.
const (
	OpSync   = "sync"
	OpDelete = "delete"
)

// RecordSyncMessage tells the worker that one ledger record changed.
// It carries only the record's identity; the worker fetches the current
// row from the database, so a stale message never writes stale data.
type RecordSyncMessage struct {
	Op        string    `json:"op"`
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSyncMessage builds an upsert notification for a record.
func NewSyncMessage(kind, id string, version int64) *RecordSyncMessage {
	return &RecordSyncMessage{
		Op:        OpSync,
		Kind:      kind,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// NewDeleteMessage builds a deletion notification for a record.
func NewDeleteMessage(kind, id string) *RecordSyncMessage {
	return &RecordSyncMessage{
		Op:        OpDelete,
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordSyncMessageFromJSON parses a message and rejects envelopes the
// worker could not act on.
func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Op != OpSync && msg.Op != OpDelete {
		return nil, fmt.Errorf("unknown message op %q", msg.Op)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message has no record id")
	}
	return &msg, nil
}
