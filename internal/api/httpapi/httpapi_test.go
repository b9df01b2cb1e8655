package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/config"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/orchestrator"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/pipeline"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/provider"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/repository/repotest"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/sessionlock"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/tools"
)

// testServer bundles a Server wired against an in-memory Store with the
// plaintext keys/tenants seeded for it, so each handler test can dial
// straight into request construction instead of repeating the wiring.
type testServer struct {
	srv   *Server
	store *repotest.Store
	mux   *http.ServeMux
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithAdapter(t, nil)
}

// newTestServerWithAdapter wires a Server the same way newTestServer does,
// but registers adapter into the provider registry in place of the real
// vendor adapters when non-nil, so handler tests that exercise
// handleSendMessage/handleVoiceTranscript get a deterministic provider
// response instead of VendorA/VendorB's randomized latency and failure
// rate.
func newTestServerWithAdapter(t *testing.T, adapter provider.Adapter) *testServer {
	t.Helper()
	store := repotest.New()
	registry := provider.NewRegistry()
	if adapter != nil {
		registry.Register(adapter)
	}
	orch := orchestrator.New(registry, orchestrator.Policy{
		MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1,
	}, func(domain.ProviderName) time.Duration { return time.Second })
	locker := sessionlock.NewInMemoryLocker(time.Minute)
	toolReg := tools.NewRegistry()
	pipe := pipeline.New(store, locker, orch, toolReg, 50, 5*time.Second)

	cfg := &config.AppConfig{
		Server: config.ServerConfig{APIKeyPrefix: "vb_test_", Port: "0", MaxHistory: 50},
		Job:    config.JobConfig{DefaultMaxAttempts: 3},
	}

	srv := New(store, pipe, cfg)
	return &testServer{srv: srv, store: store, mux: srv.Routes()}
}

// seedTenant creates a tenant plus one API key with the given role,
// returning the tenant id and the plaintext key a test can send as
// X-API-Key.
func (ts *testServer) seedTenant(t *testing.T, role domain.Role) (tenantID, plaintextKey string) {
	t.Helper()
	tenant, err := ts.store.CreateTenant(context.Background(), domain.Tenant{Name: "Acme", Email: "ops@acme.com"})
	require.NoError(t, err)

	plaintext := "vb_test_" + tenant.ID + "_" + string(role)
	sum := sha256.Sum256([]byte(plaintext))
	_, err = ts.store.CreateApiKey(context.Background(), domain.ApiKey{
		TenantID: tenant.ID,
		Prefix:   plaintext[:12],
		Hash:     hex.EncodeToString(sum[:]),
		Role:     role,
	})
	require.NoError(t, err)
	return tenant.ID, plaintext
}

func (ts *testServer) seedAgent(t *testing.T, tenantID string) domain.Agent {
	t.Helper()
	agent, err := ts.store.CreateAgent(context.Background(), domain.Agent{
		TenantID: tenantID, Name: "support-bot", PrimaryProvider: domain.ProviderVendorA,
		Temperature: 0.5, MaxTokens: 1000, IsActive: true,
	})
	require.NoError(t, err)
	return agent
}

func (ts *testServer) seedSession(t *testing.T, tenantID, agentID string) domain.Session {
	t.Helper()
	sess, err := ts.store.CreateSession(context.Background(), domain.Session{
		TenantID: tenantID, AgentID: agentID, CustomerID: "cust-1",
		Channel: domain.ChannelChat, Status: domain.SessionActive,
	})
	require.NoError(t, err)
	return sess
}

func (ts *testServer) do(t *testing.T, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(b)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// httpDoWithIdempotencyKey is do's sibling for routes that read the
// X-Idempotency-Key header instead of a body field.
func httpDoWithIdempotencyKey(t *testing.T, ts *testServer, path, apiKey, idemKey string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(b))
	req.Header.Set("X-API-Key", apiKey)
	req.Header.Set("X-Idempotency-Key", idemKey)
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}
