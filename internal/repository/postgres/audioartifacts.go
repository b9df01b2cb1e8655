package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

func (s *Store) CreateAudioArtifact(ctx context.Context, a domain.AudioArtifact) (domain.AudioArtifact, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO audio_artifacts (id, session_id, type, file_path, file_size, duration_ms, format,
			sample_rate, provider, transcript, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, session_id, type, file_path, file_size, duration_ms, format, sample_rate,
			provider, transcript, latency_ms, created_at
	`, a.ID, a.SessionID, a.Type, a.FilePath, a.FileSize, a.DurationMs, a.Format, a.SampleRate,
		a.Provider, a.Transcript, a.LatencyMs)

	return scanAudioArtifact(row)
}

func (s *Store) GetAudioArtifact(ctx context.Context, id string) (domain.AudioArtifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, type, file_path, file_size, duration_ms, format, sample_rate,
			provider, transcript, latency_ms, created_at
		FROM audio_artifacts WHERE id = $1
	`, id)
	return scanAudioArtifact(row)
}

func scanAudioArtifact(row *sql.Row) (domain.AudioArtifact, error) {
	var a domain.AudioArtifact
	err := row.Scan(&a.ID, &a.SessionID, &a.Type, &a.FilePath, &a.FileSize, &a.DurationMs, &a.Format,
		&a.SampleRate, &a.Provider, &a.Transcript, &a.LatencyMs, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.AudioArtifact{}, apperrors.NotFound("audio artifact not found")
	}
	if err != nil {
		return domain.AudioArtifact{}, fmt.Errorf("repository/postgres: scanning audio artifact: %w", err)
	}
	return a, nil
}
