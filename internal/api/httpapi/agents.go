package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/pkg/validation"
)

type agentRequest struct {
	Name             string                 `json:"name"`
	Description      string                 `json:"description"`
	PrimaryProvider  domain.ProviderName    `json:"primaryProvider"`
	FallbackProvider *domain.ProviderName   `json:"fallbackProvider,omitempty"`
	SystemPrompt     string                 `json:"systemPrompt"`
	Temperature      float64                `json:"temperature"`
	MaxTokens        int                    `json:"maxTokens"`
	EnabledTools     []string               `json:"enabledTools,omitempty"`
	VoiceEnabled     bool                   `json:"voiceEnabled"`
	VoiceConfig      map[string]any         `json:"voiceConfig,omitempty"`
}

type agentView struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	Description      string               `json:"description"`
	PrimaryProvider  domain.ProviderName  `json:"primaryProvider"`
	FallbackProvider *domain.ProviderName `json:"fallbackProvider,omitempty"`
	SystemPrompt     string               `json:"systemPrompt"`
	Temperature      float64              `json:"temperature"`
	MaxTokens        int                  `json:"maxTokens"`
	EnabledTools     []string             `json:"enabledTools,omitempty"`
	VoiceEnabled     bool                 `json:"voiceEnabled"`
	VoiceConfig      json.RawMessage      `json:"voiceConfig,omitempty"`
	IsActive         bool                 `json:"isActive"`
}

func toAgentView(a domain.Agent) agentView {
	v := agentView{
		ID: a.ID, Name: a.Name, Description: a.Description,
		PrimaryProvider: a.PrimaryProvider, FallbackProvider: a.FallbackProvider,
		SystemPrompt: a.SystemPrompt, Temperature: a.Temperature, MaxTokens: a.MaxTokens,
		EnabledTools: a.EnabledTools, VoiceEnabled: a.VoiceEnabled, IsActive: a.IsActive,
	}
	if a.VoiceConfig != nil {
		v.VoiceConfig = json.RawMessage(*a.VoiceConfig)
	}
	return v
}

func (req agentRequest) toDomain(tenantID string) (domain.Agent, error) {
	a := domain.Agent{
		TenantID:         tenantID,
		Name:             req.Name,
		Description:      req.Description,
		PrimaryProvider:  req.PrimaryProvider,
		FallbackProvider: req.FallbackProvider,
		SystemPrompt:     req.SystemPrompt,
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		EnabledTools:     req.EnabledTools,
		VoiceEnabled:     req.VoiceEnabled,
		IsActive:         true,
	}
	if req.VoiceConfig != nil {
		cfg, err := domain.NewJSON(req.VoiceConfig)
		if err != nil {
			return domain.Agent{}, err
		}
		a.VoiceConfig = &cfg
	}
	return a, nil
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	agent, err := req.toDomain(p.TenantID)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	agent.ID = uuid.New().String()

	v := validation.NewAgentValidator()
	if err := v.ValidateCreateAgent(agent); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	created, err := s.store.CreateAgent(r.Context(), agent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAgentView(created))
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	agents, err := s.store.ListAgents(r.Context(), p.TenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]agentView, 0, len(agents))
	for _, a := range agents {
		views = append(views, toAgentView(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": views})
}

// loadOwnedAgent fetches an agent and rejects cross-tenant access: any
// resource keyed on a foreign key ultimately owned by a tenant must be
// checked against the caller's
// own tenant, not just existence.
func (s *Server) loadOwnedAgent(r *http.Request, tenantID, id string) (domain.Agent, error) {
	agent, err := s.store.GetAgent(r.Context(), id)
	if err != nil {
		return domain.Agent{}, err
	}
	if agent.TenantID != tenantID {
		return domain.Agent{}, apperrors.NotFound("agent not found")
	}
	return agent, nil
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	agent, err := s.loadOwnedAgent(r, p.TenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAgentView(agent))
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	existing, err := s.loadOwnedAgent(r, p.TenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	updated, err := req.toDomain(p.TenantID)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	updated.ID = existing.ID
	updated.IsActive = existing.IsActive

	v := validation.NewAgentValidator()
	if err := v.ValidateCreateAgent(updated); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	saved, err := s.store.UpdateAgent(r.Context(), updated)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAgentView(saved))
}

// handleDemoSession creates or reuses a demo-mode session for the caller's
// customer identity so an agent can be trialed with no billing impact:
// it creates or reuses a demo session, and demo sessions are never billed.
func (s *Server) handleDemoSession(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	agent, err := s.loadOwnedAgent(r, p.TenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req struct {
		CustomerID string `json:"customerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CustomerID == "" {
		badRequest(w, r, "customerId is required")
		return
	}

	existing, err := s.store.GetActiveSession(r.Context(), p.TenantID, agent.ID, req.CustomerID, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusOK, toSessionView(*existing))
		return
	}

	created, err := s.store.CreateSession(r.Context(), domain.Session{
		ID:         uuid.New().String(),
		TenantID:   p.TenantID,
		AgentID:    agent.ID,
		CustomerID: req.CustomerID,
		Channel:    domain.ChannelChat,
		Status:     domain.SessionActive,
		DemoMode:   true,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionView(created))
}
