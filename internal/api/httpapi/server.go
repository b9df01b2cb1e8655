package httpapi

import (
	"net/http"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/config"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/pipeline"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/repository"
)

// Server holds every dependency the handlers need, generalizing the
// teacher's app.Config (internal/app/config.go: DB + AppConfig) into the
// gateway's wider dependency set.
type Server struct {
	store  repository.Store
	pipe   *pipeline.Pipeline
	cfg    *config.AppConfig
}

// New wires a Server; cmd/server/main.go constructs the store/pipeline
// once and passes them in here.
func New(store repository.Store, pipe *pipeline.Pipeline, cfg *config.AppConfig) *Server {
	return &Server{store: store, pipe: pipe, cfg: cfg}
}

// Routes builds the ServeMux for the gateway's route table, following the
// teacher's cmd/server/main.go composition style: every route is
// enableCORS(...) wrapping an optional requireAuth(...)/requireRole(...)
// chain around the leaf handler, registered with Go 1.22+ method+path
// patterns.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, withCorrelation(enableCORS(h)))
	}
	handleOptions := func(path string) {
		mux.HandleFunc("OPTIONS "+path, enableCORS(func(w http.ResponseWriter, r *http.Request) {}))
	}

	handle("GET /api/v1/healthz", s.handleHealth)

	// Tenants (POST is the bootstrap route, unauthenticated by necessity).
	handle("POST /api/v1/tenants", s.handleCreateTenant)
	handle("GET /api/v1/tenants/me", s.requireAuth(s.handleGetTenantMe))
	handleOptions("/api/v1/tenants")
	handleOptions("/api/v1/tenants/me")

	// API keys — ADMIN only.
	handle("POST /api/v1/api-keys", s.requireAuth(requireRole("ADMIN", s.handleCreateApiKey)))
	handle("GET /api/v1/api-keys", s.requireAuth(requireRole("ADMIN", s.handleListApiKeys)))
	handle("DELETE /api/v1/api-keys/{id}", s.requireAuth(requireRole("ADMIN", s.handleRevokeApiKey)))
	handle("POST /api/v1/api-keys/{id}/rotate", s.requireAuth(requireRole("ADMIN", s.handleRotateApiKey)))
	handleOptions("/api/v1/api-keys")
	handleOptions("/api/v1/api-keys/{id}")
	handleOptions("/api/v1/api-keys/{id}/rotate")

	// Agents — reads open to both roles, writes ADMIN.
	handle("POST /api/v1/agents", s.requireAuth(requireRole("ADMIN", s.handleCreateAgent)))
	handle("GET /api/v1/agents", s.requireAuth(s.handleListAgents))
	handle("GET /api/v1/agents/{id}", s.requireAuth(s.handleGetAgent))
	handle("PUT /api/v1/agents/{id}", s.requireAuth(requireRole("ADMIN", s.handleUpdateAgent)))
	handle("POST /api/v1/agents/{id}/demo", s.requireAuth(s.handleDemoSession))
	handleOptions("/api/v1/agents")
	handleOptions("/api/v1/agents/{id}")
	handleOptions("/api/v1/agents/{id}/demo")

	// Sessions and messages.
	handle("POST /api/v1/sessions", s.requireAuth(s.handleCreateSession))
	handle("GET /api/v1/sessions", s.requireAuth(s.handleListSessions))
	handle("GET /api/v1/sessions/{id}", s.requireAuth(s.handleGetSession))
	handle("POST /api/v1/sessions/{id}/end", s.requireAuth(s.handleEndSession))
	handle("GET /api/v1/sessions/{id}/messages", s.requireAuth(s.handleListMessages))
	handle("POST /api/v1/sessions/{id}/messages", s.requireAuth(s.handleSendMessage))
	handle("POST /api/v1/sessions/{id}/messages/async", s.requireAuth(s.handleSendMessageAsync))
	handleOptions("/api/v1/sessions")
	handleOptions("/api/v1/sessions/{id}")
	handleOptions("/api/v1/sessions/{id}/end")
	handleOptions("/api/v1/sessions/{id}/messages")
	handleOptions("/api/v1/sessions/{id}/messages/async")

	// Jobs.
	handle("GET /api/v1/jobs/{id}", s.requireAuth(s.handleGetJob))
	handle("GET /api/v1/jobs", s.requireAuth(s.handleListJobs))
	handleOptions("/api/v1/jobs")
	handleOptions("/api/v1/jobs/{id}")

	// Usage analytics.
	handle("GET /api/v1/usage", s.requireAuth(s.handleUsageTotal))
	handle("GET /api/v1/usage/breakdown", s.requireAuth(s.handleUsageBreakdown))
	handle("GET /api/v1/usage/top-agents", s.requireAuth(s.handleUsageTopAgents))
	handleOptions("/api/v1/usage")
	handleOptions("/api/v1/usage/breakdown")
	handleOptions("/api/v1/usage/top-agents")

	// Voice passthrough and storage.
	handle("POST /api/v1/sessions/{id}/voice/transcript", s.requireAuth(s.handleVoiceTranscript))
	handle("POST /api/v1/sessions/{id}/voice/store-audio", s.requireAuth(s.handleVoiceStoreAudio))
	handle("GET /api/v1/sessions/{id}/voice/{artifactId}", s.requireAuth(s.handleVoiceGetArtifact))
	handle("GET /api/v1/sessions/{id}/voice/{artifactId}/metadata", s.requireAuth(s.handleVoiceGetArtifactMetadata))
	handleOptions("/api/v1/sessions/{id}/voice/transcript")
	handleOptions("/api/v1/sessions/{id}/voice/store-audio")
	handleOptions("/api/v1/sessions/{id}/voice/{artifactId}")
	handleOptions("/api/v1/sessions/{id}/voice/{artifactId}/metadata")

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
