package audit

import (
	"database/sql/driver"
	"errors"
	"time"

	json "github.com/bytedance/sonic"
)

// JSONMap stores arbitrary JSON objects in JSONB columns.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported type for JSONMap")
	}

	return json.Unmarshal(raw, m)
}

// Entry is a single append-only audit record. Entries are never mutated after
// insert.
type Entry struct {
	ID         string    `db:"id" json:"id"`
	Action     string    `db:"action" json:"action"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	ActorEmail string    `db:"actor_email" json:"actor_email"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	OldValue   JSONMap   `db:"old_value" json:"old_value,omitempty"`
	NewValue   JSONMap   `db:"new_value" json:"new_value,omitempty"`
	Metadata   JSONMap   `db:"metadata" json:"metadata"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Query filters the audit listing.
type Query struct {
	EntityType string
	ActorID    string
	Days       int
	Page       int
	Limit      int
}
