package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commercepay/payment-challenge-service/internal/domain"
	"github.com/commercepay/payment-challenge-service/internal/domain/ports"
)

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

// PostgresStore persists challenge session documents as jsonb rows.
// Documents are opaque to the store; payment sessions and instrument
// sessions share the table, distinguished by their id prefix.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger ports.Logger
}

// NewPostgresStore creates a session store over the given pool.
func NewPostgresStore(pool *pgxpool.Pool, logger ports.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Get reads the document stored under id into out.
func (s *PostgresStore) Get(ctx context.Context, id string, out any) error {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM payment_sessions WHERE session_id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewDomainError(domain.ErrorCodeSessionNotFound,
			fmt.Sprintf("no session stored under id %s", id))
	}
	if err != nil {
		return domain.WrapError(domain.ErrorCodeStorageError, "session lookup failed", err)
	}
	if err := json.Unmarshal(doc, out); err != nil {
		return domain.WrapError(domain.ErrorCodeStorageError, "stored session is malformed", err)
	}
	return nil
}

// Create stores a new document under id, failing on conflict.
func (s *PostgresStore) Create(ctx context.Context, id string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeStorageError, "session serialization failed", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO payment_sessions (session_id, data) VALUES ($1, $2)`, id, doc)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.NewDomainError(domain.ErrorCodeSessionConflict,
				fmt.Sprintf("session %s already exists", id))
		}
		return domain.WrapError(domain.ErrorCodeStorageError, "session insert failed", err)
	}
	return nil
}

// Update replaces the document stored under id.
func (s *PostgresStore) Update(ctx context.Context, id string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeStorageError, "session serialization failed", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE payment_sessions SET data = $2, updated_at = now() WHERE session_id = $1`, id, doc)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeStorageError, "session update failed", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrorCodeSessionNotFound,
			fmt.Sprintf("no session stored under id %s", id))
	}
	return nil
}

// PurgeExpired deletes sessions untouched for longer than ttl and
// returns the number of rows removed. Challenge sessions are short
// lived; anything this old is either finished or abandoned.
func (s *PostgresStore) PurgeExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM payment_sessions WHERE updated_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int64(ttl.Seconds())))
	if err != nil {
		return 0, domain.WrapError(domain.ErrorCodeStorageError, "session purge failed", err)
	}
	return tag.RowsAffected(), nil
}

// Upsert stores the document under id, replacing any existing one.
func (s *PostgresStore) Upsert(ctx context.Context, id string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeStorageError, "session serialization failed", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO payment_sessions (session_id, data) VALUES ($1, $2)
		 ON CONFLICT (session_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		id, doc)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeStorageError, "session upsert failed", err)
	}
	return nil
}
