package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

// InsertUsageEventTx inserts ue. The unique constraint on
// provider_call_id backstops MarkBilledTx's conditional update so that
// even a concurrent double-insert attempt cannot double-bill the same
// ProviderCall.
func (s *Store) InsertUsageEventTx(ctx context.Context, tx *sql.Tx, ue domain.UsageEvent) (domain.UsageEvent, error) {
	if ue.ID == "" {
		ue.ID = uuid.New().String()
	}
	snapshot, err := json.Marshal(ue.PricingSnapshot)
	if err != nil {
		return domain.UsageEvent{}, apperrors.Internal("marshaling pricing snapshot", err)
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO usage_events (id, tenant_id, agent_id, session_id, provider_call_id, provider,
			tokens_in, tokens_out, total_tokens, cost_cents, pricing_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, tenant_id, agent_id, session_id, provider_call_id, provider,
			tokens_in, tokens_out, total_tokens, cost_cents, pricing_snapshot, created_at
	`, ue.ID, ue.TenantID, ue.AgentID, ue.SessionID, ue.ProviderCallID, ue.Provider,
		ue.TokensIn, ue.TokensOut, ue.TotalTokens, ue.CostCents, snapshot)

	var out domain.UsageEvent
	var snapshotOut []byte
	err = row.Scan(&out.ID, &out.TenantID, &out.AgentID, &out.SessionID, &out.ProviderCallID, &out.Provider,
		&out.TokensIn, &out.TokensOut, &out.TotalTokens, &out.CostCents, &snapshotOut, &out.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.UsageEvent{}, apperrors.Conflict("a usage event already exists for this provider call")
		}
		return domain.UsageEvent{}, fmt.Errorf("repository/postgres: inserting usage event: %w", err)
	}
	if err := json.Unmarshal(snapshotOut, &out.PricingSnapshot); err != nil {
		return domain.UsageEvent{}, apperrors.Internal("unmarshaling pricing snapshot", err)
	}
	return out, nil
}
