package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

type createSessionRequest struct {
	AgentID    string         `json:"agentId"`
	CustomerID string         `json:"customerId"`
	Channel    domain.Channel `json:"channel,omitempty"`
	DemoMode   bool           `json:"demoMode,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type sessionView struct {
	ID         string             `json:"id"`
	AgentID    string             `json:"agentId"`
	CustomerID string             `json:"customerId"`
	Channel    domain.Channel     `json:"channel"`
	Status     domain.SessionStatus `json:"status"`
	DemoMode   bool               `json:"demoMode"`
	Metadata   json.RawMessage    `json:"metadata,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	EndedAt    *time.Time         `json:"endedAt,omitempty"`
}

func toSessionView(sess domain.Session) sessionView {
	v := sessionView{
		ID: sess.ID, AgentID: sess.AgentID, CustomerID: sess.CustomerID,
		Channel: sess.Channel, Status: sess.Status, DemoMode: sess.DemoMode,
		CreatedAt: sess.CreatedAt, EndedAt: sess.EndedAt,
	}
	if sess.Metadata != nil {
		v.Metadata = json.RawMessage(*sess.Metadata)
	}
	return v
}

func (s *Server) loadOwnedSession(r *http.Request, tenantID, id string) (domain.Session, error) {
	sess, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.TenantID != tenantID {
		return domain.Session{}, apperrors.NotFound("session not found")
	}
	return sess, nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	if req.AgentID == "" || req.CustomerID == "" {
		badRequest(w, r, "agentId and customerId are required")
		return
	}
	if _, err := s.loadOwnedAgent(r, p.TenantID, req.AgentID); err != nil {
		writeError(w, r, err)
		return
	}

	channel := req.Channel
	if channel == "" {
		channel = domain.ChannelChat
	}

	existing, err := s.store.GetActiveSession(r.Context(), p.TenantID, req.AgentID, req.CustomerID, req.DemoMode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusOK, toSessionView(*existing))
		return
	}

	sess := domain.Session{
		ID:         uuid.New().String(),
		TenantID:   p.TenantID,
		AgentID:    req.AgentID,
		CustomerID: req.CustomerID,
		Channel:    channel,
		Status:     domain.SessionActive,
		DemoMode:   req.DemoMode,
	}
	if req.Metadata != nil {
		meta, err := domain.NewJSON(req.Metadata)
		if err != nil {
			badRequest(w, r, err.Error())
			return
		}
		sess.Metadata = &meta
	}

	created, err := s.store.CreateSession(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionView(created))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	sess, err := s.loadOwnedSession(r, p.TenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	sessions, err := s.store.ListSessions(r.Context(), p.TenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, toSessionView(sess))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	sess, err := s.loadOwnedSession(r, p.TenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.EndSession(r.Context(), sess.ID, time.Now(), domain.SessionEnded); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.store.GetSession(r.Context(), sess.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(updated))
}
