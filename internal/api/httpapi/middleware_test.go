package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/correlation"
)

func TestHashAPIKey_Deterministic(t *testing.T) {
	assert.Equal(t, hashAPIKey("secret"), hashAPIKey("secret"))
	assert.NotEqual(t, hashAPIKey("secret"), hashAPIKey("other"))
}

func TestEnableCORS_OptionsShortCircuits(t *testing.T) {
	called := false
	h := enableCORS(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/agents", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestEnableCORS_NonOptionsPassesThrough(t *testing.T) {
	called := false
	h := enableCORS(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.True(t, called)
}

func TestWithCorrelation_EchoesInboundHeader(t *testing.T) {
	var seen string
	h := withCorrelation(func(w http.ResponseWriter, r *http.Request) {
		seen = correlation.FromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(correlation.HeaderName, "corr-abc")
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, "corr-abc", seen)
	assert.Equal(t, "corr-abc", rec.Header().Get(correlation.HeaderName))
}

func TestWithCorrelation_GeneratesWhenAbsent(t *testing.T) {
	h := withCorrelation(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.NotEmpty(t, rec.Header().Get(correlation.HeaderName))
}

func TestRequireAuth_MissingHeaderIsUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/v1/tenants/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_UnknownKeyIsUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/v1/tenants/me", "vb_test_does_not_exist", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ValidKeySucceeds(t *testing.T) {
	ts := newTestServer(t)
	_, key := ts.seedTenant(t, "ADMIN")
	rec := ts.do(t, http.MethodGet, "/api/v1/tenants/me", key, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_RevokedKeyIsUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	tenantID, key := ts.seedTenant(t, "ADMIN")
	keys, err := ts.store.ListApiKeys(context.Background(), tenantID)
	assert.NoError(t, err)
	assert.Len(t, keys, 1)
	assert.NoError(t, ts.store.RevokeApiKey(context.Background(), keys[0].ID, keys[0].CreatedAt))

	rec := ts.do(t, http.MethodGet, "/api/v1/tenants/me", key, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole_NonAdminForbidden(t *testing.T) {
	ts := newTestServer(t)
	_, key := ts.seedTenant(t, "ANALYST")
	rec := ts.do(t, http.MethodPost, "/api/v1/agents", key, agentRequest{
		Name: "bot", PrimaryProvider: "VENDOR_A", Temperature: 0.5, MaxTokens: 1000,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole_AdminAllowed(t *testing.T) {
	ts := newTestServer(t)
	_, key := ts.seedTenant(t, "ADMIN")
	rec := ts.do(t, http.MethodPost, "/api/v1/agents", key, agentRequest{
		Name: "bot", PrimaryProvider: "VENDOR_A", Temperature: 0.5, MaxTokens: 1000,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}
