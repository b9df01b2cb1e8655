package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/sequence"
)

func (s *Store) GetMessageByIdempotencyKey(ctx context.Context, sessionID, key string) (*domain.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, sequence_number, idempotency_key, role, content, tool_calls,
			provider_call_id, audio_artifact_id, created_at
		FROM messages WHERE session_id = $1 AND idempotency_key = $2
	`, sessionID, key)

	m, err := scanMessageRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// InsertMessageTx allocates the next sequence number for m.SessionID and
// inserts the row in the same transaction, so a failed insert also
// discards the allocated number.
func (s *Store) InsertMessageTx(ctx context.Context, tx *sql.Tx, m domain.Message) (domain.Message, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	seq, err := sequence.Next(ctx, tx, m.SessionID)
	if err != nil {
		return domain.Message{}, err
	}
	m.SequenceNumber = seq

	toolCallsJSON, err := json.Marshal(m.ToolCalls)
	if err != nil {
		return domain.Message{}, apperrors.Internal("marshaling tool calls", err)
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO messages (id, session_id, sequence_number, idempotency_key, role, content, tool_calls,
			provider_call_id, audio_artifact_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, session_id, sequence_number, idempotency_key, role, content, tool_calls,
			provider_call_id, audio_artifact_id, created_at
	`, m.ID, m.SessionID, m.SequenceNumber, m.IdempotencyKey, m.Role, m.Content, toolCallsJSON,
		m.ProviderCallID, m.AudioArtifactID)

	out, err := scanMessageRow(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Message{}, apperrors.Conflict("a message with this idempotency key already exists for this session")
		}
		return domain.Message{}, err
	}
	return out, nil
}

func (s *Store) ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, sequence_number, idempotency_key, role, content, tool_calls,
			provider_call_id, audio_artifact_id, created_at
		FROM messages WHERE session_id = $1 ORDER BY sequence_number DESC LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("repository/postgres: listing messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		m, err := scanMessageRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	// Reverse to chronological order; the query ordered DESC to apply
	// LIMIT against the most recent turns.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

func scanMessageRow(row scannable) (domain.Message, error) {
	var m domain.Message
	var toolCallsJSON []byte
	err := row.Scan(&m.ID, &m.SessionID, &m.SequenceNumber, &m.IdempotencyKey, &m.Role, &m.Content,
		&toolCallsJSON, &m.ProviderCallID, &m.AudioArtifactID, &m.CreatedAt)
	if err != nil && err != sql.ErrNoRows {
		return domain.Message{}, fmt.Errorf("repository/postgres: scanning message: %w", err)
	}
	if err == sql.ErrNoRows {
		return m, err
	}
	if len(toolCallsJSON) > 0 {
		if err := json.Unmarshal(toolCallsJSON, &m.ToolCalls); err != nil {
			return domain.Message{}, apperrors.Internal("unmarshaling tool calls", err)
		}
	}
	return m, nil
}
