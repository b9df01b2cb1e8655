package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

func (s *Store) CreateAgent(ctx context.Context, a domain.Agent) (domain.Agent, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO agents (id, tenant_id, name, description, primary_provider, fallback_provider,
			system_prompt, temperature, max_tokens, enabled_tools, voice_enabled, voice_config, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, tenant_id, name, description, primary_provider, fallback_provider,
			system_prompt, temperature, max_tokens, enabled_tools, voice_enabled, voice_config, is_active
	`, a.ID, a.TenantID, a.Name, a.Description, a.PrimaryProvider, a.FallbackProvider,
		a.SystemPrompt, a.Temperature, a.MaxTokens, pq.Array(a.EnabledTools), a.VoiceEnabled, jsonArg(a.VoiceConfig), a.IsActive)

	return scanAgent(row)
}

func (s *Store) GetAgent(ctx context.Context, id string) (domain.Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, description, primary_provider, fallback_provider,
			system_prompt, temperature, max_tokens, enabled_tools, voice_enabled, voice_config, is_active
		FROM agents WHERE id = $1
	`, id)
	return scanAgent(row)
}

func (s *Store) ListAgents(ctx context.Context, tenantID string) ([]domain.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, description, primary_provider, fallback_provider,
			system_prompt, temperature, max_tokens, enabled_tools, voice_enabled, voice_config, is_active
		FROM agents WHERE tenant_id = $1 ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("repository/postgres: listing agents: %w", err)
	}
	defer rows.Close()

	var out []domain.Agent
	for rows.Next() {
		a, err := scanAgentRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAgent(ctx context.Context, a domain.Agent) (domain.Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE agents SET name = $2, description = $3, primary_provider = $4, fallback_provider = $5,
			system_prompt = $6, temperature = $7, max_tokens = $8, enabled_tools = $9,
			voice_enabled = $10, voice_config = $11, is_active = $12
		WHERE id = $1
		RETURNING id, tenant_id, name, description, primary_provider, fallback_provider,
			system_prompt, temperature, max_tokens, enabled_tools, voice_enabled, voice_config, is_active
	`, a.ID, a.Name, a.Description, a.PrimaryProvider, a.FallbackProvider,
		a.SystemPrompt, a.Temperature, a.MaxTokens, pq.Array(a.EnabledTools), a.VoiceEnabled, jsonArg(a.VoiceConfig), a.IsActive)

	return scanAgent(row)
}

func scanAgent(row *sql.Row) (domain.Agent, error) {
	a, err := scanAgentRow(row)
	if err == sql.ErrNoRows {
		return domain.Agent{}, apperrors.NotFound("agent not found")
	}
	return a, err
}

func scanAgentRow(row scannable) (domain.Agent, error) {
	var a domain.Agent
	var voiceConfig domain.JSON
	err := row.Scan(&a.ID, &a.TenantID, &a.Name, &a.Description, &a.PrimaryProvider, &a.FallbackProvider,
		&a.SystemPrompt, &a.Temperature, &a.MaxTokens, pq.Array(&a.EnabledTools), &a.VoiceEnabled, &voiceConfig, &a.IsActive)
	if err != nil && err != sql.ErrNoRows {
		return domain.Agent{}, fmt.Errorf("repository/postgres: scanning agent: %w", err)
	}
	if len(voiceConfig) > 0 {
		a.VoiceConfig = &voiceConfig
	}
	return a, err
}
