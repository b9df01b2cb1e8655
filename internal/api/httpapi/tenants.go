package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/pkg/validation"
)

type createTenantRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type createTenantResponse struct {
	Tenant tenantView `json:"tenant"`
	ApiKey string     `json:"apiKey"`
}

type tenantView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func toTenantView(t domain.Tenant) tenantView {
	return tenantView{ID: t.ID, Name: t.Name, Email: t.Email, CreatedAt: t.CreatedAt}
}

// newPlaintextKey generates the caller-facing secret, prefixed for display
// and revocation triage — the configured default is "vb_live_".
func newPlaintextKey(prefix string) (plaintext, displayPrefix string, err error) {
	raw := make([]byte, 24)
	if _, err = rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("httpapi: generating api key: %w", err)
	}
	plaintext = prefix + hex.EncodeToString(raw)
	displayPrefix = plaintext[:len(prefix)+8]
	return plaintext, displayPrefix, nil
}

// handleCreateTenant is the one unauthenticated write route: it bootstraps
// a tenant and its first ADMIN key, returning the plaintext key exactly
// once; it is never stored or returned again.
func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}

	v := validation.NewTenantValidator()
	if err := v.ValidateCreateTenant(req.Name, req.Email); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	tenant, err := s.store.CreateTenant(r.Context(), domain.Tenant{
		ID:    uuid.New().String(),
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	plaintext, displayPrefix, err := newPlaintextKey(s.cfg.Server.APIKeyPrefix)
	if err != nil {
		writeError(w, r, apperrors.Internal("failed to generate api key", err))
		return
	}

	if _, err := s.store.CreateApiKey(r.Context(), domain.ApiKey{
		ID:       uuid.New().String(),
		TenantID: tenant.ID,
		Prefix:   displayPrefix,
		Hash:     hashAPIKey(plaintext),
		Role:     domain.RoleAdmin,
	}); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createTenantResponse{
		Tenant: toTenantView(tenant),
		ApiKey: plaintext,
	})
}

func (s *Server) handleGetTenantMe(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	tenant, err := s.store.GetTenant(r.Context(), p.TenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantView(tenant))
}
