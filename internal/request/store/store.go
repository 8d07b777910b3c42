// Package store persists access requests. Implementations must preserve the
// logical lookup semantics of the original tabular layout: exact token match
// and case-insensitive email match. Lookups may be indexed; the linear scan of
// the spreadsheet era is not part of the contract.
package store

import (
	"context"
	"time"

	"arcop/internal/domain"
)

// Store is the persistence port the lifecycle service depends on. All
// implementations return pkg/platform/sentinel errors for infrastructure
// facts; the service translates them into coded domain errors.
type Store interface {
	// Append persists a new request. ID, number and token must be unused;
	// sentinel.ErrConflict otherwise, sentinel.ErrUnavailable on I/O failure.
	Append(ctx context.Context, req domain.Request) error

	// FindByToken returns the request with the exact validation token.
	FindByToken(ctx context.Context, token string) (domain.Request, error)

	// FindByNumber returns the request with the given SOL number.
	FindByNumber(ctx context.Context, number string) (domain.Request, error)

	// FindByEmail returns all requests for an email, matched
	// case-insensitively, ordered by creation time.
	FindByEmail(ctx context.Context, email string) ([]domain.Request, error)

	// Update applies a typed patch to the request with the given ID. The
	// caller passes the version it read; a stale version yields
	// sentinel.ErrConflict and no mutation. UpdatedAt is bumped to now and
	// the stored version incremented.
	Update(ctx context.Context, id string, expectedVersion int64, patch domain.Patch, now time.Time) (domain.Request, error)

	// ListAll returns every request, ordered by creation time.
	ListAll(ctx context.Context) ([]domain.Request, error)

	// ListOverdue returns non-terminal requests whose response deadline has
	// passed.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Request, error)

	// AggregateCounts tallies requests by status, kind and format.
	AggregateCounts(ctx context.Context) (domain.Counts, error)

	// NextSequence allocates the next per-year request number suffix,
	// starting at 1. Allocated values are never reused, even across restarts
	// for durable implementations.
	NextSequence(ctx context.Context, year int) (int, error)
}
