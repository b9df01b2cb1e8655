// Package billing provides exactly-once cost accounting for successful
// provider calls. It is deliberately small — two statements run inside
// the caller's existing
// transaction — because the exactly-once guarantee lives in SQL
// (MarkBilledTx's conditional update plus usage_events' unique
// constraint on provider_call_id), not in Go-level locking.
package billing

import (
	"context"
	"database/sql"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/pricing"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/repository"
)

// Recorder turns a successful ProviderCall into a UsageEvent exactly
// once.
type Recorder struct {
	store repository.Store
}

func New(store repository.Store) *Recorder {
	return &Recorder{store: store}
}

// RecordTx bills pc if, and only if, it is a SUCCESS call, not already
// billed, and not from a demo session: exactly one UsageEvent per
// successful, non-demo ProviderCall. It must run inside the same
// transaction the caller used to persist pc, so a failure here rolls back
// together with the rest of the message-send.
//
// Returns (nil, nil) when nothing was billed — either because pc isn't
// billable, or because a concurrent caller already won the race.
func (r *Recorder) RecordTx(ctx context.Context, tx *sql.Tx, tenantID, agentID string, demoMode bool, pc domain.ProviderCall) (*domain.UsageEvent, error) {
	if pc.Status != domain.ProviderCallSuccess || demoMode {
		return nil, nil
	}

	won, err := r.store.MarkBilledTx(ctx, tx, pc.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, nil
	}

	snapshot, err := pricing.Snapshot(pc.Provider)
	if err != nil {
		return nil, err
	}
	cost, err := pricing.CostCents(pc.Provider, pc.TokensIn, pc.TokensOut)
	if err != nil {
		return nil, err
	}

	ue := domain.UsageEvent{
		TenantID:        tenantID,
		AgentID:         agentID,
		SessionID:       pc.SessionID,
		ProviderCallID:  pc.ID,
		Provider:        pc.Provider,
		TokensIn:        pc.TokensIn,
		TokensOut:       pc.TokensOut,
		TotalTokens:     pc.TokensIn + pc.TokensOut,
		CostCents:       cost,
		PricingSnapshot: snapshot,
	}

	out, err := r.store.InsertUsageEventTx(ctx, tx, ue)
	if err != nil {
		if e, ok := apperrors.As(err); ok && e.Kind == apperrors.KindConflict {
			// The unique constraint backstop fired: someone else's
			// MarkBilledTx lost the race window between our two
			// statements but still inserted first. Exactly-once holds
			// either way, so this is not an error for the caller.
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
