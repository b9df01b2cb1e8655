package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

func (s *Store) CreateTenant(ctx context.Context, t domain.Tenant) (domain.Tenant, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO tenants (id, name, email)
		VALUES ($1, $2, $3)
		RETURNING id, name, email, created_at
	`, t.ID, t.Name, t.Email)

	var out domain.Tenant
	if err := row.Scan(&out.ID, &out.Name, &out.Email, &out.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Tenant{}, apperrors.Conflict("a tenant with this email already exists")
		}
		return domain.Tenant{}, fmt.Errorf("repository/postgres: creating tenant: %w", err)
	}
	return out, nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, email, created_at FROM tenants WHERE id = $1`, id)
	var out domain.Tenant
	if err := row.Scan(&out.ID, &out.Name, &out.Email, &out.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Tenant{}, apperrors.NotFound("tenant not found")
		}
		return domain.Tenant{}, fmt.Errorf("repository/postgres: getting tenant: %w", err)
	}
	return out, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, created_at FROM tenants ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("repository/postgres: listing tenants: %w", err)
	}
	defer rows.Close()

	var out []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository/postgres: scanning tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
