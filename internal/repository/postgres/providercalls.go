package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

func (s *Store) InsertProviderCallTx(ctx context.Context, tx *sql.Tx, pc domain.ProviderCall) (domain.ProviderCall, error) {
	if pc.ID == "" {
		pc.ID = uuid.New().String()
	}
	row := tx.QueryRowContext(ctx, `
		INSERT INTO provider_calls (id, session_id, correlation_id, provider, is_fallback, tokens_in, tokens_out,
			latency_ms, status, error_code, error_message, attempt_number, billed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, session_id, correlation_id, provider, is_fallback, tokens_in, tokens_out,
			latency_ms, status, error_code, error_message, attempt_number, billed, created_at
	`, pc.ID, pc.SessionID, pc.CorrelationID, pc.Provider, pc.IsFallback, pc.TokensIn, pc.TokensOut,
		pc.LatencyMs, pc.Status, pc.ErrorCode, pc.ErrorMessage, pc.AttemptNumber, pc.Billed)

	return scanProviderCall(row)
}

// MarkBilledTx enforces the exactly-once billing rule: only a row
// that is still unbilled flips, and the caller learns whether it won
// that race via the returned bool.
func (s *Store) MarkBilledTx(ctx context.Context, tx *sql.Tx, providerCallID string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE provider_calls SET billed = true WHERE id = $1 AND billed = false
	`, providerCallID)
	if err != nil {
		return false, fmt.Errorf("repository/postgres: marking provider call billed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("repository/postgres: checking rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *Store) GetProviderCall(ctx context.Context, id string) (domain.ProviderCall, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, correlation_id, provider, is_fallback, tokens_in, tokens_out,
			latency_ms, status, error_code, error_message, attempt_number, billed, created_at
		FROM provider_calls WHERE id = $1
	`, id)
	out, err := scanProviderCall(row)
	if err == sql.ErrNoRows {
		return domain.ProviderCall{}, apperrors.NotFound("provider call not found")
	}
	return out, err
}

func scanProviderCall(row *sql.Row) (domain.ProviderCall, error) {
	var pc domain.ProviderCall
	err := row.Scan(&pc.ID, &pc.SessionID, &pc.CorrelationID, &pc.Provider, &pc.IsFallback, &pc.TokensIn, &pc.TokensOut,
		&pc.LatencyMs, &pc.Status, &pc.ErrorCode, &pc.ErrorMessage, &pc.AttemptNumber, &pc.Billed, &pc.CreatedAt)
	if err != nil && err != sql.ErrNoRows {
		return domain.ProviderCall{}, fmt.Errorf("repository/postgres: scanning provider call: %w", err)
	}
	return pc, err
}
