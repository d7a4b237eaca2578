// Package persist keeps a single typed value in the local key/value store.
package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"worldwise/internal/db"
)

// ErrUnavailable is returned when the underlying store cannot be read or written.
var ErrUnavailable = errors.New("local storage unavailable")

// Value is a typed get/set pair over one key of the local store. Values are
// stored as JSON and every write replaces the whole value.
type Value[T any] struct {
	db       *sql.DB
	key      string
	fallback func() T
	logger   *slog.Logger
}

// NewValue creates a Value for key. fallback supplies the value returned when
// nothing is stored or the stored value does not decode as T.
func NewValue[T any](database *sql.DB, key string, fallback func() T, logger *slog.Logger) *Value[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Value[T]{
		db:       database,
		key:      key,
		fallback: fallback,
		logger:   logger.With(slog.String("component", "persist"), slog.String("key", key)),
	}
}

// Get returns the stored value. Read and decode failures degrade to the
// fallback; they are logged, never returned.
func (v *Value[T]) Get(ctx context.Context) T {
	raw, found, err := db.GetValue(ctx, v.db, v.key)
	if err != nil {
		v.logger.WarnContext(ctx, "read failed, using empty value", slog.Any("error", err))
		return v.fallback()
	}
	if !found {
		return v.fallback()
	}

	out, err := decode[T](raw)
	if err != nil {
		v.logger.WarnContext(ctx, "stored value is corrupt, using empty value", slog.Any("error", err))
		return v.fallback()
	}
	return out
}

// Set replaces the stored value.
func (v *Value[T]) Set(ctx context.Context, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", v.key, err)
	}
	if err := db.SetValue(ctx, v.db, v.key, string(data)); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func decode[T any](raw string) (T, error) {
	var zero T
	if raw == "" || raw == "null" {
		return zero, errors.New("empty value")
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return zero, err
	}
	return out, nil
}
