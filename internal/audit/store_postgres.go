package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the activity log in an append-only table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			seq       BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			action    TEXT NOT NULL,
			ref       TEXT NOT NULL DEFAULT '',
			detail    TEXT NOT NULL DEFAULT '',
			actor     TEXT NOT NULL DEFAULT 'system'
		);
		CREATE INDEX IF NOT EXISTS audit_events_ref_idx ON audit_events (ref);
	`)
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events (timestamp, action, ref, detail, actor)
		VALUES ($1, $2, $3, $4, $5)`,
		event.Timestamp, string(event.Action), event.Ref, event.Detail, event.Actor)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRef(ctx context.Context, ref string) ([]Event, error) {
	return s.query(ctx, `
		SELECT timestamp, action, ref, detail, actor FROM audit_events
		WHERE ref = $1 ORDER BY seq`, ref)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	events, err := s.query(ctx, `
		SELECT timestamp, action, ref, detail, actor FROM audit_events
		ORDER BY seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	// Reverse back to chronological order.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var action string
		if err := rows.Scan(&event.Timestamp, &action, &event.Ref, &event.Detail, &event.Actor); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = Action(action)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
