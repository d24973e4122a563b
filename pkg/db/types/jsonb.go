package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB stores a typed value in a jsonb (postgres) or text (sqlite) column.
type JSONB[T any] struct {
	Data T
}

// NewJSONB wraps v for persistence.
func NewJSONB[T any](v T) JSONB[T] {
	return JSONB[T]{Data: v}
}

// Scan implements sql.Scanner.
func (j *JSONB[T]) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		var zero T
		j.Data = zero
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("JSONB: unsupported Scan type %T", src)
	}
	if len(raw) == 0 {
		var zero T
		j.Data = zero
		return nil
	}
	return json.Unmarshal(raw, &j.Data)
}

// Value implements driver.Valuer. A string keeps pgx simple protocol happy.
func (j JSONB[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, fmt.Errorf("JSONB: marshal: %w", err)
	}
	return string(b), nil
}

// GormDataType tells gorm which column type to use for migrations.
func (JSONB[T]) GormDataType() string {
	return "jsonb"
}

func (j JSONB[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.Data)
}

func (j *JSONB[T]) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &j.Data)
}
