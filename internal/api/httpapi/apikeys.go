package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

type createApiKeyRequest struct {
	Role domain.Role `json:"role"`
}

type createApiKeyResponse struct {
	ApiKey apiKeyView `json:"apiKey"`
	Secret string     `json:"secret"`
}

type apiKeyView struct {
	ID         string     `json:"id"`
	Prefix     string     `json:"prefix"`
	Role       domain.Role `json:"role"`
	CreatedAt  time.Time  `json:"createdAt"`
	RevokedAt  *time.Time `json:"revokedAt,omitempty"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

func toApiKeyView(k domain.ApiKey) apiKeyView {
	return apiKeyView{
		ID: k.ID, Prefix: k.Prefix, Role: k.Role,
		CreatedAt: k.CreatedAt, RevokedAt: k.RevokedAt, LastUsedAt: k.LastUsedAt,
	}
}

func (s *Server) handleCreateApiKey(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req createApiKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	if req.Role != domain.RoleAdmin && req.Role != domain.RoleAnalyst {
		badRequest(w, r, "role must be ADMIN or ANALYST")
		return
	}

	plaintext, displayPrefix, err := newPlaintextKey(s.cfg.Server.APIKeyPrefix)
	if err != nil {
		writeError(w, r, apperrors.Internal("failed to generate api key", err))
		return
	}

	key, err := s.store.CreateApiKey(r.Context(), domain.ApiKey{
		ID:       uuid.New().String(),
		TenantID: p.TenantID,
		Prefix:   displayPrefix,
		Hash:     hashAPIKey(plaintext),
		Role:     req.Role,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createApiKeyResponse{ApiKey: toApiKeyView(key), Secret: plaintext})
}

func (s *Server) handleListApiKeys(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	keys, err := s.store.ListApiKeys(r.Context(), p.TenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]apiKeyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, toApiKeyView(k))
	}
	writeJSON(w, http.StatusOK, map[string]any{"apiKeys": views})
}

func (s *Server) handleRevokeApiKey(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	id := r.PathValue("id")

	if _, err := s.findOwnedApiKey(r, p.TenantID, id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.RevokeApiKey(r.Context(), id, time.Now()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// findOwnedApiKey scans the tenant's own keys for id, 404ing on a foreign
// or unknown key rather than letting RevokeApiKey/rotation act on another
// tenant's row.
func (s *Server) findOwnedApiKey(r *http.Request, tenantID, id string) (domain.ApiKey, error) {
	keys, err := s.store.ListApiKeys(r.Context(), tenantID)
	if err != nil {
		return domain.ApiKey{}, err
	}
	for i := range keys {
		if keys[i].ID == id {
			return keys[i], nil
		}
	}
	return domain.ApiKey{}, apperrors.NotFound("api key not found")
}

// handleRotateApiKey revokes the named key and issues a replacement with
// the same tenant/role, so a caller can roll a compromised secret without
// losing its permission scope.
func (s *Server) handleRotateApiKey(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	id := r.PathValue("id")

	target, err := s.findOwnedApiKey(r, p.TenantID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.store.RevokeApiKey(r.Context(), id, time.Now()); err != nil {
		writeError(w, r, err)
		return
	}

	plaintext, displayPrefix, err := newPlaintextKey(s.cfg.Server.APIKeyPrefix)
	if err != nil {
		writeError(w, r, apperrors.Internal("failed to generate api key", err))
		return
	}
	newKey, err := s.store.CreateApiKey(r.Context(), domain.ApiKey{
		ID:       uuid.New().String(),
		TenantID: p.TenantID,
		Prefix:   displayPrefix,
		Hash:     hashAPIKey(plaintext),
		Role:     target.Role,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createApiKeyResponse{ApiKey: toApiKeyView(newKey), Secret: plaintext})
}
