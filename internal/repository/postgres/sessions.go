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

// CreateSession inserts a session row. Invariant S1 (at most one ACTIVE
// session per tenant/agent/customer/demoMode) is enforced by a partial
// unique index on (tenant_id, agent_id, customer_id, demo_mode) WHERE
// status = 'ACTIVE'; a violation here surfaces as a Conflict rather than
// a raw constraint error.
func (s *Store) CreateSession(ctx context.Context, sess domain.Session) (domain.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (id, tenant_id, agent_id, customer_id, channel, status, demo_mode, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, tenant_id, agent_id, customer_id, channel, status, demo_mode, metadata, created_at, ended_at
	`, sess.ID, sess.TenantID, sess.AgentID, sess.CustomerID, sess.Channel, sess.Status, sess.DemoMode, jsonArg(sess.Metadata))

	out, err := scanSessionRow(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Session{}, apperrors.Conflict("an active session already exists for this tenant/agent/customer")
		}
		return domain.Session{}, err
	}
	return out, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, agent_id, customer_id, channel, status, demo_mode, metadata, created_at, ended_at
		FROM sessions WHERE id = $1
	`, id)
	out, err := scanSessionRow(row)
	if err == sql.ErrNoRows {
		return domain.Session{}, apperrors.NotFound("session not found")
	}
	return out, err
}

func (s *Store) GetActiveSession(ctx context.Context, tenantID, agentID, customerID string, demoMode bool) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, agent_id, customer_id, channel, status, demo_mode, metadata, created_at, ended_at
		FROM sessions
		WHERE tenant_id = $1 AND agent_id = $2 AND customer_id = $3 AND demo_mode = $4 AND status = 'ACTIVE'
	`, tenantID, agentID, customerID, demoMode)

	out, err := scanSessionRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) EndSession(ctx context.Context, id string, endedAt time.Time, status domain.SessionStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = $2, ended_at = $3 WHERE id = $1 AND status = 'ACTIVE'
	`, id, status, endedAt)
	if err != nil {
		return fmt.Errorf("repository/postgres: ending session: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperrors.Conflict("session is not active")
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context, tenantID string) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, agent_id, customer_id, channel, status, demo_mode, metadata, created_at, ended_at
		FROM sessions WHERE tenant_id = $1 ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("repository/postgres: listing sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		sess, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func scanSessionRow(row scannable) (domain.Session, error) {
	var sess domain.Session
	var metadata domain.JSON
	err := row.Scan(&sess.ID, &sess.TenantID, &sess.AgentID, &sess.CustomerID, &sess.Channel, &sess.Status,
		&sess.DemoMode, &metadata, &sess.CreatedAt, &sess.EndedAt)
	if err != nil && err != sql.ErrNoRows {
		return domain.Session{}, fmt.Errorf("repository/postgres: scanning session: %w", err)
	}
	if len(metadata) > 0 {
		sess.Metadata = &metadata
	}
	return sess, err
}
