package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

func (s *Store) CreateApiKey(ctx context.Context, k domain.ApiKey) (domain.ApiKey, error) {
	if k.ID == "" {
		k.ID = uuid.New().String()
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO api_keys (id, tenant_id, prefix, hash, role, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, tenant_id, prefix, hash, role, created_at, expires_at, revoked_at, last_used_at
	`, k.ID, k.TenantID, k.Prefix, k.Hash, k.Role, k.ExpiresAt)

	return scanApiKey(row)
}

func (s *Store) GetApiKeyByHash(ctx context.Context, hash string) (domain.ApiKey, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, prefix, hash, role, created_at, expires_at, revoked_at, last_used_at
		FROM api_keys WHERE hash = $1
	`, hash)
	return scanApiKey(row)
}

func (s *Store) ListApiKeys(ctx context.Context, tenantID string) ([]domain.ApiKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, prefix, hash, role, created_at, expires_at, revoked_at, last_used_at
		FROM api_keys WHERE tenant_id = $1 ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("repository/postgres: listing api keys: %w", err)
	}
	defer rows.Close()

	var out []domain.ApiKey
	for rows.Next() {
		k, err := scanApiKeyRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *Store) RevokeApiKey(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE api_keys SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("repository/postgres: revoking api key: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperrors.NotFound("api key not found or already revoked")
	}
	return nil
}

func (s *Store) TouchApiKeyLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("repository/postgres: touching api key: %w", err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanApiKey(row *sql.Row) (domain.ApiKey, error) {
	k, err := scanApiKeyRow(row)
	if err == sql.ErrNoRows {
		return domain.ApiKey{}, apperrors.Unauthorized("api key not found")
	}
	return k, err
}

func scanApiKeyRow(row scannable) (domain.ApiKey, error) {
	var k domain.ApiKey
	err := row.Scan(&k.ID, &k.TenantID, &k.Prefix, &k.Hash, &k.Role, &k.CreatedAt, &k.ExpiresAt, &k.RevokedAt, &k.LastUsedAt)
	if err != nil && err != sql.ErrNoRows {
		return domain.ApiKey{}, fmt.Errorf("repository/postgres: scanning api key: %w", err)
	}
	return k, err
}
