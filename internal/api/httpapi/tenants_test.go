package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleCreateTenant_Success(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/v1/tenants", "", createTenantRequest{
		Name: "Acme", Email: "ops@acme.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var body createTenantResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "Acme", body.Tenant.Name)
	assert.NotEmpty(t, body.ApiKey)
	assert.Contains(t, body.ApiKey, "vb_test_")
}

func TestHandleCreateTenant_InvalidEmailRejected(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/v1/tenants", "", createTenantRequest{
		Name: "Acme", Email: "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetTenantMe_ReturnsCallersOwnTenant(t *testing.T) {
	ts := newTestServer(t)
	tenantID, key := ts.seedTenant(t, "ADMIN")

	rec := ts.do(t, http.MethodGet, "/api/v1/tenants/me", key, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view tenantView
	decodeBody(t, rec, &view)
	assert.Equal(t, tenantID, view.ID)
}
