package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const credentialsSchema = `
CREATE TABLE IF NOT EXISTS credentials (
    profile       TEXT PRIMARY KEY,
    access_token  TEXT NOT NULL,
    refresh_token TEXT NOT NULL DEFAULT '',
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps one credentials row per profile. Set is a single upsert.
type PostgresStore struct {
	db      *pgxpool.Pool
	profile string
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool, profile string) *PostgresStore {
	return &PostgresStore{db: db, profile: profile}
}

// EnsureSchema creates the credentials table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, credentialsSchema); err != nil {
		return fmt.Errorf("create credentials table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context) (Pair, error) {
	var pair Pair
	err := s.db.QueryRow(ctx, `SELECT access_token, refresh_token FROM credentials WHERE profile = $1`, s.profile).
		Scan(&pair.AccessToken, &pair.RefreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pair{}, ErrNotFound
		}
		return Pair{}, fmt.Errorf("select credentials: %w", err)
	}
	return pair, nil
}

func (s *PostgresStore) Set(ctx context.Context, pair Pair) error {
	_, err := s.db.Exec(ctx, `INSERT INTO credentials (profile, access_token, refresh_token, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (profile) DO UPDATE
        SET access_token = EXCLUDED.access_token, refresh_token = EXCLUDED.refresh_token, updated_at = now()`,
		s.profile, pair.AccessToken, pair.RefreshToken)
	if err != nil {
		return fmt.Errorf("upsert credentials: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM credentials WHERE profile = $1`, s.profile); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
