package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"arcop/internal/domain"
	"arcop/pkg/platform/sentinel"
)

// Postgres persists requests in a relational table that mirrors the exported
// record layout. Token and email lookups are index-backed; the optimistic
// version column serializes concurrent read-then-write sequences.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS requests (
			id                  TEXT PRIMARY KEY,
			number              TEXT NOT NULL UNIQUE,
			full_name           TEXT NOT NULL,
			rut                 TEXT NOT NULL,
			email               TEXT NOT NULL,
			phone               TEXT NOT NULL DEFAULT '',
			kind                TEXT NOT NULL,
			scope               TEXT NOT NULL,
			categories          TEXT[] NOT NULL DEFAULT '{}',
			format              TEXT NOT NULL,
			status              TEXT NOT NULL,
			identity_validated  BOOLEAN NOT NULL DEFAULT FALSE,
			validation_token    TEXT NOT NULL UNIQUE,
			token_expiry        TIMESTAMPTZ NOT NULL,
			response_deadline   TIMESTAMPTZ NOT NULL,
			assigned_to         TEXT NOT NULL DEFAULT '',
			resolved_at         TIMESTAMPTZ,
			download_url        TEXT NOT NULL DEFAULT '',
			download_url_expiry TIMESTAMPTZ,
			origin_ip           TEXT NOT NULL DEFAULT '',
			user_agent          TEXT NOT NULL DEFAULT '',
			created_at          TIMESTAMPTZ NOT NULL,
			updated_at          TIMESTAMPTZ NOT NULL,
			version             BIGINT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS requests_email_idx ON requests (lower(email));
		CREATE INDEX IF NOT EXISTS requests_deadline_idx ON requests (response_deadline);
		CREATE TABLE IF NOT EXISTS request_sequences (
			year     INT PRIMARY KEY,
			last_seq INT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const requestColumns = `
	id, number, full_name, rut, email, phone, kind, scope, categories, format,
	status, identity_validated, validation_token, token_expiry, response_deadline,
	assigned_to, resolved_at, download_url, download_url_expiry,
	origin_ip, user_agent, created_at, updated_at, version`

func (s *Postgres) Append(ctx context.Context, req domain.Request) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO requests (`+requestColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
		req.ID, req.Number, req.FullName, req.RUT, req.Email, req.Phone,
		string(req.Kind), string(req.Scope), req.Categories, string(req.Format),
		string(req.Status), req.IdentityValidated, req.ValidationToken,
		req.TokenExpiry, req.ResponseDeadline, req.AssignedTo, req.ResolvedAt,
		req.DownloadURL, req.DownloadURLExpiry, req.OriginIP, req.UserAgent,
		req.CreatedAt, req.UpdatedAt, req.Version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("%w: insert request: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *Postgres) FindByToken(ctx context.Context, token string) (domain.Request, error) {
	return s.findOne(ctx, "validation_token = $1", token)
}

func (s *Postgres) FindByNumber(ctx context.Context, number string) (domain.Request, error) {
	return s.findOne(ctx, "number = $1", number)
}

func (s *Postgres) findOne(ctx context.Context, where string, arg any) (domain.Request, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE `+where, arg)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Request{}, sentinel.ErrNotFound
		}
		return domain.Request{}, fmt.Errorf("%w: query request: %w", sentinel.ErrUnavailable, err)
	}
	return req, nil
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) ([]domain.Request, error) {
	return s.list(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE lower(email) = lower($1) ORDER BY created_at`,
		email)
}

func (s *Postgres) Update(ctx context.Context, id string, expectedVersion int64, patch domain.Patch, now time.Time) (domain.Request, error) {
	set := []string{"updated_at = $3", "version = version + 1"}
	args := []any{id, expectedVersion, now}

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.IdentityValidated != nil {
		add("identity_validated", *patch.IdentityValidated)
	}
	if patch.AssignedTo != nil {
		add("assigned_to", *patch.AssignedTo)
	}
	if patch.ResolvedAt != nil {
		add("resolved_at", *patch.ResolvedAt)
	}
	if patch.DownloadURL != nil {
		add("download_url", *patch.DownloadURL)
	}
	if patch.DownloadURLExpiry != nil {
		add("download_url_expiry", *patch.DownloadURLExpiry)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE requests SET `+strings.Join(set, ", ")+`
		WHERE id = $1 AND version = $2
		RETURNING `+requestColumns, args...)
	req, err := scanRequest(row)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Request{}, fmt.Errorf("%w: update request: %w", sentinel.ErrUnavailable, err)
	}

	// No row matched: either the request does not exist or the version is
	// stale. Distinguish so the service can report the right outcome.
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return domain.Request{}, fmt.Errorf("%w: update request: %w", sentinel.ErrUnavailable, err)
	}
	if !exists {
		return domain.Request{}, sentinel.ErrNotFound
	}
	return domain.Request{}, sentinel.ErrConflict
}

func (s *Postgres) ListAll(ctx context.Context) ([]domain.Request, error) {
	return s.list(ctx, `SELECT `+requestColumns+` FROM requests ORDER BY created_at`)
}

func (s *Postgres) ListOverdue(ctx context.Context, now time.Time) ([]domain.Request, error) {
	return s.list(ctx, `
		SELECT `+requestColumns+` FROM requests
		WHERE response_deadline < $1 AND status NOT IN ('CLOSED','REJECTED','EXPIRED')
		ORDER BY created_at`, now)
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]domain.Request, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query requests: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan request: %w", sentinel.ErrUnavailable, err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate requests: %w", sentinel.ErrUnavailable, err)
	}
	return out, nil
}

func (s *Postgres) AggregateCounts(ctx context.Context) (domain.Counts, error) {
	counts := domain.Counts{
		ByStatus: make(map[domain.Status]int),
		ByKind:   make(map[domain.Kind]int),
		ByFormat: make(map[domain.Format]int),
	}

	rows, err := s.pool.Query(ctx,
		`SELECT status, kind, format, COUNT(*) FROM requests GROUP BY status, kind, format`)
	if err != nil {
		return domain.Counts{}, fmt.Errorf("%w: aggregate counts: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, kind, format string
		var n int
		if err := rows.Scan(&status, &kind, &format, &n); err != nil {
			return domain.Counts{}, fmt.Errorf("%w: scan counts: %w", sentinel.ErrUnavailable, err)
		}
		counts.Total += n
		counts.ByStatus[domain.Status(status)] += n
		counts.ByKind[domain.Kind(kind)] += n
		counts.ByFormat[domain.Format(format)] += n
	}
	if err := rows.Err(); err != nil {
		return domain.Counts{}, fmt.Errorf("%w: iterate counts: %w", sentinel.ErrUnavailable, err)
	}
	return counts, nil
}

func (s *Postgres) NextSequence(ctx context.Context, year int) (int, error) {
	var seq int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO request_sequences (year, last_seq) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_seq = request_sequences.last_seq + 1
		RETURNING last_seq`, year).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("%w: allocate sequence: %w", sentinel.ErrUnavailable, err)
	}
	return seq, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (domain.Request, error) {
	var req domain.Request
	var kind, scope, format, status string
	err := row.Scan(
		&req.ID, &req.Number, &req.FullName, &req.RUT, &req.Email, &req.Phone,
		&kind, &scope, &req.Categories, &format,
		&status, &req.IdentityValidated, &req.ValidationToken,
		&req.TokenExpiry, &req.ResponseDeadline, &req.AssignedTo, &req.ResolvedAt,
		&req.DownloadURL, &req.DownloadURLExpiry, &req.OriginIP, &req.UserAgent,
		&req.CreatedAt, &req.UpdatedAt, &req.Version,
	)
	if err != nil {
		return domain.Request{}, err
	}
	req.Kind = domain.Kind(kind)
	req.Scope = domain.Scope(scope)
	req.Format = domain.Format(format)
	req.Status = domain.Status(status)
	return req, nil
}
