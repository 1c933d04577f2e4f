package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitabwire/sdui/model"
)

// Schema creates the table PgStorage reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS cached_microapps (
	code       TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PgStorage is a PostgreSQL-backed MicroappStorage using pgx/v5.
type PgStorage struct {
	pool *pgxpool.Pool
}

// NewPgStorage creates a PostgreSQL storage over pool.
func NewPgStorage(pool *pgxpool.Pool) *PgStorage {
	return &PgStorage{pool: pool}
}

// Migrate creates the storage table when it does not exist.
func (s *PgStorage) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create cached_microapps: %w", err)
	}
	return nil
}

// SaveMapped upserts the entry for data.MicroappCode.
func (s *PgStorage) SaveMapped(ctx context.Context, data *model.CachedMicroappData) error {
	if err := validateForSave(data); err != nil {
		return err
	}
	raw, err := encode(data)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO cached_microapps (code, data, cached_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (code) DO UPDATE SET
			data = EXCLUDED.data,
			cached_at = EXCLUDED.cached_at,
			updated_at = now()`,
		data.MicroappCode, raw, data.CachedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert microapp %q: %w", data.MicroappCode, err)
	}
	return nil
}

// LoadMapped reads the entry for code.
func (s *PgStorage) LoadMapped(ctx context.Context, code string) (*model.CachedMicroappData, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM cached_microapps WHERE code = $1`, code).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(code)
	}
	if err != nil {
		return nil, fmt.Errorf("query microapp %q: %w", code, err)
	}
	return decode(code, raw)
}

// GetAllCodes lists stored codes.
func (s *PgStorage) GetAllCodes(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT code FROM cached_microapps ORDER BY code ASC`)
	if err != nil {
		return nil, fmt.Errorf("query microapp codes: %w", err)
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan microapp codes: %w", err)
	}
	return codes, nil
}

// Delete removes the entry for code.
func (s *PgStorage) Delete(ctx context.Context, code string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cached_microapps WHERE code = $1`, code); err != nil {
		return fmt.Errorf("delete microapp %q: %w", code, err)
	}
	return nil
}

// Contains reports whether an entry exists for code.
func (s *PgStorage) Contains(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cached_microapps WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query microapp %q: %w", code, err)
	}
	return exists, nil
}

// HealthCheck pings the pool.
func (s *PgStorage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}
