package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the voice_handoffs table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS voice_handoffs (
    session_key TEXT PRIMARY KEY,
    payload     JSONB NOT NULL,
    expires_at  TIMESTAMPTZ NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_voice_handoffs_expires ON voice_handoffs(expires_at);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by PostgreSQL. Take is a single
// DELETE ... RETURNING statement, so concurrent readers cannot both
// receive the same payload.
type PostgresStore struct {
	db  DB
	ttl time.Duration
	now func() time.Time
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore returns a PostgresStore whose rows expire after ttl. The
// caller is responsible for calling [PostgresStore.Migrate] and for closing
// the pool.
func NewPostgresStore(db DB, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl, now: time.Now}
}

// Migrate executes the [Schema] DDL.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("handoff: migrate: %w", err)
	}
	return nil
}

// Save implements [Store].
func (s *PostgresStore) Save(ctx context.Context, key string, data []byte) error {
	const q = `
		INSERT INTO voice_handoffs (session_key, payload, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_key) DO UPDATE
		SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at, created_at = now()`
	if _, err := s.db.Exec(ctx, q, key, data, s.now().Add(s.ttl)); err != nil {
		return fmt.Errorf("handoff: postgres save: %w", err)
	}
	return nil
}

// Take implements [Store]. Expired rows are deleted without being returned.
func (s *PostgresStore) Take(ctx context.Context, key string) ([]byte, error) {
	const q = `
		DELETE FROM voice_handoffs
		WHERE session_key = $1
		RETURNING payload, expires_at`
	var (
		data    []byte
		expires time.Time
	)
	err := s.db.QueryRow(ctx, q, key).Scan(&data, &expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("handoff: postgres take: %w", err)
	}
	if !s.now().Before(expires) {
		return nil, ErrEmpty
	}
	return data, nil
}

// Purge deletes expired rows and returns how many were removed.
func (s *PostgresStore) Purge(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM voice_handoffs WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("handoff: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close implements [Store]. The pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }
