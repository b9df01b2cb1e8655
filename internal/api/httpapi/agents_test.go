package httpapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

func TestHandleCreateAgent_Success(t *testing.T) {
	ts := newTestServer(t)
	_, key := ts.seedTenant(t, "ADMIN")

	rec := ts.do(t, http.MethodPost, "/api/v1/agents", key, agentRequest{
		Name: "support-bot", PrimaryProvider: domain.ProviderVendorA, Temperature: 0.5, MaxTokens: 1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var view agentView
	decodeBody(t, rec, &view)
	assert.Equal(t, "support-bot", view.Name)
	assert.True(t, view.IsActive)
}

func TestHandleCreateAgent_InvalidTemperatureRejected(t *testing.T) {
	ts := newTestServer(t)
	_, key := ts.seedTenant(t, "ADMIN")

	rec := ts.do(t, http.MethodPost, "/api/v1/agents", key, agentRequest{
		Name: "support-bot", PrimaryProvider: domain.ProviderVendorA, Temperature: 9, MaxTokens: 1000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetAgent_CrossTenantAccessIsNotFound(t *testing.T) {
	ts := newTestServer(t)
	tenantA, _ := ts.seedTenant(t, "ADMIN")
	agent := ts.seedAgent(t, tenantA)
	_, keyB := ts.seedTenant(t, "ADMIN")

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/agents/%s", agent.ID), keyB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetAgent_OwnerCanRead(t *testing.T) {
	ts := newTestServer(t)
	tenantID, key := ts.seedTenant(t, "ADMIN")
	agent := ts.seedAgent(t, tenantID)

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/agents/%s", agent.ID), key, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view agentView
	decodeBody(t, rec, &view)
	assert.Equal(t, agent.ID, view.ID)
}

func TestHandleListAgents_OnlyReturnsOwnTenantsAgents(t *testing.T) {
	ts := newTestServer(t)
	tenantA, keyA := ts.seedTenant(t, "ADMIN")
	ts.seedAgent(t, tenantA)

	tenantB, _ := ts.seedTenant(t, "ADMIN")
	ts.seedAgent(t, tenantB)

	rec := ts.do(t, http.MethodGet, "/api/v1/agents", keyA, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Agents []agentView `json:"agents"`
	}
	decodeBody(t, rec, &body)
	assert.Len(t, body.Agents, 1)
}

func TestHandleUpdateAgent_CrossTenantIsNotFound(t *testing.T) {
	ts := newTestServer(t)
	tenantA, _ := ts.seedTenant(t, "ADMIN")
	agent := ts.seedAgent(t, tenantA)
	_, keyB := ts.seedTenant(t, "ADMIN")

	rec := ts.do(t, http.MethodPut, fmt.Sprintf("/api/v1/agents/%s", agent.ID), keyB, agentRequest{
		Name: "hijacked", PrimaryProvider: domain.ProviderVendorA, Temperature: 0.5, MaxTokens: 1000,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleUpdateAgent_PreservesIDAndActiveFlag(t *testing.T) {
	ts := newTestServer(t)
	tenantID, key := ts.seedTenant(t, "ADMIN")
	agent := ts.seedAgent(t, tenantID)

	rec := ts.do(t, http.MethodPut, fmt.Sprintf("/api/v1/agents/%s", agent.ID), key, agentRequest{
		Name: "renamed-bot", PrimaryProvider: domain.ProviderVendorB, Temperature: 0.9, MaxTokens: 2000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var view agentView
	decodeBody(t, rec, &view)
	assert.Equal(t, agent.ID, view.ID)
	assert.Equal(t, "renamed-bot", view.Name)
	assert.True(t, view.IsActive)
}

func TestHandleDemoSession_CreatesThenReusesSameSession(t *testing.T) {
	ts := newTestServer(t)
	tenantID, key := ts.seedTenant(t, "ADMIN")
	agent := ts.seedAgent(t, tenantID)

	first := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/agents/%s/demo", agent.ID), key, map[string]string{
		"customerId": "cust-demo-1",
	})
	require.Equal(t, http.StatusCreated, first.Code)
	var firstView sessionView
	decodeBody(t, first, &firstView)
	assert.True(t, firstView.DemoMode)

	second := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/agents/%s/demo", agent.ID), key, map[string]string{
		"customerId": "cust-demo-1",
	})
	require.Equal(t, http.StatusOK, second.Code)
	var secondView sessionView
	decodeBody(t, second, &secondView)
	assert.Equal(t, firstView.ID, secondView.ID)
}

func TestHandleDemoSession_MissingCustomerIDIsBadRequest(t *testing.T) {
	ts := newTestServer(t)
	tenantID, key := ts.seedTenant(t, "ADMIN")
	agent := ts.seedAgent(t, tenantID)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/agents/%s/demo", agent.ID), key, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
