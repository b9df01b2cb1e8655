package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

func (s *Store) RecordToolExecution(ctx context.Context, exec domain.ToolExecution) error {
	if exec.ID == "" {
		exec.ID = uuid.New().String()
	}
	var output any
	if exec.ToolOutput != nil {
		output = *exec.ToolOutput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_executions (id, session_id, message_id, correlation_id, tool_name, tool_input,
			tool_output, status, error_message, latency_ms, cost_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, exec.ID, exec.SessionID, exec.MessageID, exec.CorrelationID, exec.ToolName, exec.ToolInput,
		output, exec.Status, exec.ErrorMessage, exec.LatencyMs, exec.CostCents)
	if err != nil {
		return fmt.Errorf("repository/postgres: recording tool execution: %w", err)
	}
	return nil
}
