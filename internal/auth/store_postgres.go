package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresCredentialStore keeps cookies in one table keyed by profile so that
// several shells can share a database.
type PostgresCredentialStore struct {
	db      *sql.DB
	profile string
}

func NewPostgresCredentialStore(db *sql.DB, profile string) (*PostgresCredentialStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = "default"
	}
	s := &PostgresCredentialStore{db: db, profile: profile}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresCredentialStore) ensureSchema() error {
	const q = `
CREATE TABLE IF NOT EXISTS shell_credentials (
	profile TEXT NOT NULL,
	name TEXT NOT NULL,
	value TEXT NOT NULL,
	path TEXT NOT NULL DEFAULT '',
	domain TEXT NOT NULL DEFAULT '',
	expires_at TIMESTAMPTZ NULL,
	secure BOOLEAN NOT NULL DEFAULT FALSE,
	http_only BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (profile, name)
)`
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("ensure shell_credentials schema: %w", err)
	}
	return nil
}

func (s *PostgresCredentialStore) Load(ctx context.Context) ([]Cookie, error) {
	const q = `
SELECT name, value, path, domain, expires_at, secure, http_only
FROM shell_credentials WHERE profile = $1 ORDER BY name`
	rows, err := s.db.QueryContext(ctx, q, s.profile)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	var out []Cookie
	for rows.Next() {
		var c Cookie
		var expires sql.NullTime
		if err := rows.Scan(&c.Name, &c.Value, &c.Path, &c.Domain, &expires, &c.Secure, &c.HTTPOnly); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		if expires.Valid {
			c.Expires = expires.Time
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

func (s *PostgresCredentialStore) Save(ctx context.Context, cookies []Cookie) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shell_credentials WHERE profile = $1`, s.profile); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}

	const q = `
INSERT INTO shell_credentials (profile, name, value, path, domain, expires_at, secure, http_only, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`
	for _, c := range cookies {
		var expires sql.NullTime
		if !c.Expires.IsZero() {
			expires = sql.NullTime{Time: c.Expires, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, q, s.profile, c.Name, c.Value, c.Path, c.Domain, expires, c.Secure, c.HTTPOnly); err != nil {
			return fmt.Errorf("insert credential: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit credential tx: %w", err)
	}
	return nil
}

func (s *PostgresCredentialStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM shell_credentials WHERE profile = $1`, s.profile); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
