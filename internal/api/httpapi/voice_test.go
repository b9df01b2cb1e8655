package httpapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/provider"
)

func TestHandleVoiceTranscript_RunsThroughPipeline(t *testing.T) {
	adapter := &scriptedAdapter{name: domain.ProviderVendorA, resp: provider.Response{Content: "got it", TokensIn: 4, TokensOut: 2}}
	ts := newTestServerWithAdapter(t, adapter)
	tenantID, key := ts.seedTenant(t, "ADMIN")
	agent := ts.seedAgent(t, tenantID)
	sess := ts.seedSession(t, tenantID, agent.ID)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/voice/transcript", sess.ID), key, voiceTranscriptRequest{
		Transcript: "what is my order status",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sendMessageResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "got it", resp.Content)
}

func TestHandleVoiceTranscript_EmptyTranscriptIsBadRequest(t *testing.T) {
	adapter := &scriptedAdapter{name: domain.ProviderVendorA, resp: provider.Response{Content: "x"}}
	ts := newTestServerWithAdapter(t, adapter)
	tenantID, key := ts.seedTenant(t, "ADMIN")
	agent := ts.seedAgent(t, tenantID)
	sess := ts.seedSession(t, tenantID, agent.ID)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/voice/transcript", sess.ID), key, voiceTranscriptRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleVoiceStoreAudio_Success(t *testing.T) {
	ts := newTestServer(t)
	tenantID, key := ts.seedTenant(t, "ADMIN")
	agent := ts.seedAgent(t, tenantID)
	sess := ts.seedSession(t, tenantID, agent.ID)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/voice/store-audio", sess.ID), key, storeAudioRequest{
		Type: domain.AudioUserInput,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var view audioArtifactView
	decodeBody(t, rec, &view)
	assert.Equal(t, domain.AudioUserInput, view.Type)
}

func TestHandleVoiceStoreAudio_InvalidTypeRejected(t *testing.T) {
	ts := newTestServer(t)
	tenantID, key := ts.seedTenant(t, "ADMIN")
	agent := ts.seedAgent(t, tenantID)
	sess := ts.seedSession(t, tenantID, agent.ID)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/voice/store-audio", sess.ID), key, storeAudioRequest{
		Type: domain.AudioArtifactType("BOGUS"),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleVoiceGetArtifact_CrossTenantIsNotFound(t *testing.T) {
	ts := newTestServer(t)
	tenantA, keyA := ts.seedTenant(t, "ADMIN")
	agentA := ts.seedAgent(t, tenantA)
	sessA := ts.seedSession(t, tenantA, agentA.ID)

	storeRec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/voice/store-audio", sessA.ID), keyA, storeAudioRequest{
		Type: domain.AudioUserInput,
	})
	require.Equal(t, http.StatusCreated, storeRec.Code)
	var artifact audioArtifactView
	decodeBody(t, storeRec, &artifact)

	tenantB, keyB := ts.seedTenant(t, "ADMIN")
	agentB := ts.seedAgent(t, tenantB)
	sessB := ts.seedSession(t, tenantB, agentB.ID)

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/sessions/%s/voice/%s", sessB.ID, artifact.ID), keyB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleVoiceGetArtifactMetadata_OmitsTranscript(t *testing.T) {
	ts := newTestServer(t)
	tenantID, key := ts.seedTenant(t, "ADMIN")
	agent := ts.seedAgent(t, tenantID)
	sess := ts.seedSession(t, tenantID, agent.ID)

	transcript := "hello world"
	storeRec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/voice/store-audio", sess.ID), key, storeAudioRequest{
		Type:       domain.AudioUserInput,
		Transcript: &transcript,
	})
	require.Equal(t, http.StatusCreated, storeRec.Code)
	var artifact audioArtifactView
	decodeBody(t, storeRec, &artifact)

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/sessions/%s/voice/%s/metadata", sess.ID, artifact.ID), key, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "transcript")
}
