package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/repository"
)

// UsageBreakdown groups a tenant's usage by provider over [from, to), the
// aggregate behind GET /usage/breakdown.
func (s *Store) UsageBreakdown(ctx context.Context, tenantID string, from, to time.Time) ([]repository.UsageBreakdownRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, count(*), coalesce(sum(tokens_in), 0), coalesce(sum(tokens_out), 0), coalesce(sum(cost_cents), 0)
		FROM usage_events
		WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY provider
		ORDER BY provider
	`, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("repository/postgres: computing usage breakdown: %w", err)
	}
	defer rows.Close()

	var out []repository.UsageBreakdownRow
	for rows.Next() {
		var r repository.UsageBreakdownRow
		if err := rows.Scan(&r.Provider, &r.CallCount, &r.TokensIn, &r.TokensOut, &r.CostCents); err != nil {
			return nil, fmt.Errorf("repository/postgres: scanning usage breakdown row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TopAgents ranks a tenant's agents by spend over [from, to), the
// aggregate behind GET /usage/top-agents.
func (s *Store) TopAgents(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]repository.TopAgentRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ue.agent_id, a.name, coalesce(sum(ue.cost_cents), 0), count(*)
		FROM usage_events ue
		JOIN agents a ON a.id = ue.agent_id
		WHERE ue.tenant_id = $1 AND ue.created_at >= $2 AND ue.created_at < $3
		GROUP BY ue.agent_id, a.name
		ORDER BY sum(ue.cost_cents) DESC
		LIMIT $4
	`, tenantID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("repository/postgres: computing top agents: %w", err)
	}
	defer rows.Close()

	var out []repository.TopAgentRow
	for rows.Next() {
		var r repository.TopAgentRow
		if err := rows.Scan(&r.AgentID, &r.AgentName, &r.CostCents, &r.CallCount); err != nil {
			return nil, fmt.Errorf("repository/postgres: scanning top agent row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) TotalCostCents(ctx context.Context, tenantID string, from, to time.Time) (int64, error) {
	var total int64
	row := s.db.QueryRowContext(ctx, `
		SELECT coalesce(sum(cost_cents), 0) FROM usage_events
		WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
	`, tenantID, from, to)
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("repository/postgres: computing total cost: %w", err)
	}
	return total, nil
}
