package audit

import "context"

// Store persists the append-only activity log.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByRef(ctx context.Context, ref string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
