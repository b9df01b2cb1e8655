package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/correlation"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/pipeline"
	"github.com/prabhakarpd7284/VocalBridgeOps/pkg/validation"
)

type sendMessageRequest struct {
	Content string `json:"content"`
}

type toolCallView struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type messageView struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId"`
	Role      domain.MessageRole `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []toolCallView `json:"toolCalls,omitempty"`
	CreatedAt string         `json:"createdAt"`
}

type sendMessageResponse struct {
	messageView
	Metadata sendMessageMetadata `json:"metadata"`
}

type sendMessageMetadata struct {
	Provider      domain.ProviderName `json:"provider"`
	TokensIn      int                 `json:"tokensIn"`
	TokensOut     int                 `json:"tokensOut"`
	LatencyMs     int                 `json:"latencyMs"`
	CorrelationID string              `json:"correlationId"`
	UsedFallback  bool                `json:"usedFallback"`
}

func toMessageView(m domain.Message) messageView {
	v := messageView{
		ID: m.ID, SessionID: m.SessionID, Role: m.Role, Content: m.Content,
		CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	for _, tc := range m.ToolCalls {
		v.ToolCalls = append(v.ToolCalls, toolCallView{ID: tc.ID, Name: tc.Name, Args: json.RawMessage(tc.Args)})
	}
	return v
}

// idempotencyKey reads X-Idempotency-Key, returning nil when the header is
// absent or empty; a non-empty value is returned as the pointer
// pipeline.SendMessageInput expects.
func idempotencyKey(r *http.Request) *string {
	v := r.Header.Get("X-Idempotency-Key")
	if v == "" {
		return nil
	}
	return &v
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	sess, err := s.loadOwnedSession(r, p.TenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	messages, err := s.store.ListMessages(r.Context(), sess.ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]messageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, toMessageView(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": views})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	sess, err := s.loadOwnedSession(r, p.TenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	idemKey := idempotencyKey(r)

	mv := validation.NewMessageValidator()
	if err := mv.ValidateSendMessage(req.Content, idemKey); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	correlationID := correlation.FromContext(r.Context())
	out, err := s.pipe.SendMessage(r.Context(), pipeline.SendMessageInput{
		TenantID:       p.TenantID,
		SessionID:      sess.ID,
		Content:        req.Content,
		IdempotencyKey: idemKey,
		CorrelationID:  correlationID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		messageView: toMessageView(out.Message),
		Metadata: sendMessageMetadata{
			Provider:      out.Provider,
			TokensIn:      out.TokensIn,
			TokensOut:     out.TokensOut,
			LatencyMs:     out.LatencyMs,
			CorrelationID: out.CorrelationID,
			UsedFallback:  out.UsedFallback,
		},
	})
}

type sendMessageAsyncRequest struct {
	Content     string `json:"content"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

type sendMessageJobInput struct {
	TenantID       string  `json:"tenantId"`
	SessionID      string  `json:"sessionId"`
	Content        string  `json:"content"`
	IdempotencyKey *string `json:"idempotencyKey,omitempty"`
}

// handleSendMessageAsync enqueues a SEND_MESSAGE job instead of running the
// pipeline inline: the same idempotency semantics as the
// synchronous route, but tenant-scoped at the job level too.
func (s *Server) handleSendMessageAsync(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	sess, err := s.loadOwnedSession(r, p.TenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req sendMessageAsyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	idemKey := idempotencyKey(r)

	mv := validation.NewMessageValidator()
	if err := mv.ValidateSendMessage(req.Content, idemKey); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	input, err := domain.NewJSON(sendMessageJobInput{
		TenantID:       p.TenantID,
		SessionID:      sess.ID,
		Content:        req.Content,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		writeError(w, r, apperrors.Internal("failed to encode job input", err))
		return
	}

	job := domain.Job{
		ID:             uuid.New().String(),
		TenantID:       p.TenantID,
		Type:           domain.JobSendMessage,
		IdempotencyKey: idemKey,
		Input:          input,
		Status:         domain.JobPending,
		MaxAttempts:    s.cfg.Job.DefaultMaxAttempts,
	}
	if req.CallbackURL != "" {
		job.CallbackURL = &req.CallbackURL
	}

	created, isNew, err := s.store.SubmitJob(r.Context(), job)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusAccepted
	if !isNew {
		status = http.StatusOK
	}
	writeJSON(w, status, toJobView(created))
}
