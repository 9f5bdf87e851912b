package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Counter is a named monotonic allocator row.
type Counter struct {
	Name      string `json:"name"`
	LastID    int64  `json:"lastId"`
	UpdatedAt string `json:"updatedAt"`
}

// CounterStore allocates monotonically increasing identifiers.
type CounterStore interface {
	// NextID atomically increments the named counter and returns the new
	// value. The first allocation for a name returns 1.
	NextID(ctx context.Context, name string) (int64, error)

	// LastID returns the most recently allocated value without
	// consuming one. The bool is false when the counter has never
	// allocated.
	LastID(ctx context.Context, name string) (int64, bool, error)

	// ListCounters returns every counter, ordered by name.
	ListCounters(ctx context.Context) ([]Counter, error)
}

// NextID increments and returns in a single statement, so concurrent
// allocations can never observe the same value.
func (s *SQLiteStore) NextID(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, ErrInvalidCounter
	}
	const query = `
INSERT INTO counters (name, last_id, updated_at) VALUES (?, 1, ?)
ON CONFLICT(name) DO UPDATE SET
    last_id    = counters.last_id + 1,
    updated_at = excluded.updated_at
RETURNING last_id`

	now := time.Now().UTC().Format(time.RFC3339)
	var id int64
	if err := s.db.QueryRowContext(ctx, query, name, now).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to allocate id for counter %s: %w", name, err)
	}
	return id, nil
}

func (s *SQLiteStore) LastID(ctx context.Context, name string) (int64, bool, error) {
	if name == "" {
		return 0, false, ErrInvalidCounter
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT last_id FROM counters WHERE name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read counter %s: %w", name, err)
	}
	return id, true, nil
}

func (s *SQLiteStore) ListCounters(ctx context.Context) ([]Counter, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, last_id, updated_at FROM counters ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list counters: %w", err)
	}
	defer rows.Close()

	var counters []Counter
	for rows.Next() {
		var c Counter
		if err := rows.Scan(&c.Name, &c.LastID, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan counter: %w", err)
		}
		counters = append(counters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counters: %w", err)
	}
	return counters, nil
}
