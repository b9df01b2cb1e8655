package jobqueue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/orchestrator"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/pipeline"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/provider"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/repository/repotest"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/sessionlock"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/tools"
)

type scriptedAdapter struct {
	name    domain.ProviderName
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	resp provider.Response
	err  error
}

func (s *scriptedAdapter) Name() domain.ProviderName { return s.name }

func (s *scriptedAdapter) Send(ctx context.Context, req provider.Request) (provider.Response, error) {
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	return s.results[idx].resp, s.results[idx].err
}

func newTestWorker(t *testing.T, adapter *scriptedAdapter) (*Worker, *repotest.Store) {
	t.Helper()
	store := repotest.New()
	registry := provider.NewRegistry()
	registry.Register(adapter)
	orch := orchestrator.New(registry, orchestrator.Policy{
		MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1,
	}, func(domain.ProviderName) time.Duration { return time.Second })
	locker := sessionlock.NewInMemoryLocker(time.Minute)
	toolReg := tools.NewRegistry()
	pipe := pipeline.New(store, locker, orch, toolReg, 50, 5*time.Second)

	return New("test-worker", store, pipe, time.Minute, 10*time.Millisecond), store
}

func seedActiveSession(t *testing.T, store *repotest.Store) domain.Session {
	t.Helper()
	agent, err := store.CreateAgent(context.Background(), domain.Agent{
		TenantID: "tenant-1", Name: "bot", PrimaryProvider: domain.ProviderVendorA,
	})
	require.NoError(t, err)
	sess, err := store.CreateSession(context.Background(), domain.Session{
		TenantID: "tenant-1", AgentID: agent.ID, CustomerID: "cust-1",
		Channel: domain.ChannelChat, Status: domain.SessionActive,
	})
	require.NoError(t, err)
	return sess
}

func sendMessageInput(t *testing.T, sessionID, content string) domain.JSON {
	t.Helper()
	j, err := domain.NewJSON(map[string]string{"sessionId": sessionID, "content": content})
	require.NoError(t, err)
	return j
}

func TestWorker_PollOnce_ExecutesAndCompletesJob(t *testing.T) {
	adapter := &scriptedAdapter{name: domain.ProviderVendorA, results: []scriptedResult{
		{resp: provider.Response{Content: "done", TokensIn: 5, TokensOut: 5}},
	}}
	w, store := newTestWorker(t, adapter)
	sess := seedActiveSession(t, store)

	job, ok, err := store.SubmitJob(context.Background(), domain.Job{
		TenantID: "tenant-1", Type: domain.JobSendMessage,
		Input: sendMessageInput(t, sess.ID, "hello"),
	})
	require.NoError(t, err)
	require.True(t, ok)

	w.pollOnce(context.Background())

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.Output)
}

func TestWorker_PollOnce_NoClaimableJobDoesNothing(t *testing.T) {
	adapter := &scriptedAdapter{name: domain.ProviderVendorA}
	w, _ := newTestWorker(t, adapter)

	w.pollOnce(context.Background())
	assert.Equal(t, 0, adapter.calls)
}

func TestWorker_Execute_FailureRequeuesWhileAttemptsRemain(t *testing.T) {
	adapter := &scriptedAdapter{name: domain.ProviderVendorA}
	w, store := newTestWorker(t, adapter)

	job, ok, err := store.SubmitJob(context.Background(), domain.Job{
		TenantID: "tenant-1", Type: domain.JobSendMessage,
		Input:       sendMessageInput(t, "missing-session", "hello"),
		MaxAttempts: 3,
	})
	require.NoError(t, err)
	require.True(t, ok)

	claimed, err := store.ClaimJob(context.Background(), w.ID, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	w.execute(context.Background(), *claimed)

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, got.Status)
	require.NotNil(t, got.LastError)
}

func TestWorker_Execute_TerminalFailureAfterMaxAttempts(t *testing.T) {
	adapter := &scriptedAdapter{name: domain.ProviderVendorA}
	w, store := newTestWorker(t, adapter)

	job, ok, err := store.SubmitJob(context.Background(), domain.Job{
		TenantID: "tenant-1", Type: domain.JobSendMessage,
		Input:       sendMessageInput(t, "missing-session", "hello"),
		MaxAttempts: 1,
	})
	require.NoError(t, err)
	require.True(t, ok)

	claimed, err := store.ClaimJob(context.Background(), w.ID, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	w.execute(context.Background(), *claimed)

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, got.Status)
}

func TestWorker_UnknownJobTypeFailsValidation(t *testing.T) {
	adapter := &scriptedAdapter{name: domain.ProviderVendorA}
	w, store := newTestWorker(t, adapter)

	job, ok, err := store.SubmitJob(context.Background(), domain.Job{
		TenantID: "tenant-1", Type: domain.JobType("UNKNOWN_TYPE"), MaxAttempts: 1,
	})
	require.NoError(t, err)
	require.True(t, ok)

	claimed, err := store.ClaimJob(context.Background(), w.ID, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	w.execute(context.Background(), *claimed)

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, got.Status)
}

func TestWorker_DeliverCallback_SentOn2xxAndMarked(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Job-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	adapter := &scriptedAdapter{name: domain.ProviderVendorA, results: []scriptedResult{
		{resp: provider.Response{Content: "done"}},
	}}
	w, store := newTestWorker(t, adapter)
	sess := seedActiveSession(t, store)
	callbackURL := srv.URL

	job, ok, err := store.SubmitJob(context.Background(), domain.Job{
		TenantID: "tenant-1", Type: domain.JobSendMessage,
		Input:       sendMessageInput(t, sess.ID, "hello"),
		CallbackURL: &callbackURL,
	})
	require.NoError(t, err)
	require.True(t, ok)

	w.pollOnce(context.Background())

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.True(t, got.CallbackSent)
	assert.Equal(t, job.ID, gotHeader)
}

func TestWorker_DeliverCallback_NonOKDoesNotMarkSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter := &scriptedAdapter{name: domain.ProviderVendorA, results: []scriptedResult{
		{resp: provider.Response{Content: "done"}},
	}}
	w, store := newTestWorker(t, adapter)
	sess := seedActiveSession(t, store)
	callbackURL := srv.URL

	job, ok, err := store.SubmitJob(context.Background(), domain.Job{
		TenantID: "tenant-1", Type: domain.JobSendMessage,
		Input:       sendMessageInput(t, sess.ID, "hello"),
		CallbackURL: &callbackURL,
	})
	require.NoError(t, err)
	require.True(t, ok)

	w.pollOnce(context.Background())

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.False(t, got.CallbackSent)
}

func TestWorker_Run_RecoversStaleJobsAtStartup(t *testing.T) {
	adapter := &scriptedAdapter{name: domain.ProviderVendorA}
	w, store := newTestWorker(t, adapter)

	job, ok, err := store.SubmitJob(context.Background(), domain.Job{
		TenantID: "tenant-1", Type: domain.JobSendMessage, MaxAttempts: 3,
	})
	require.NoError(t, err)
	require.True(t, ok)

	// Simulate a stale lease from a crashed worker: claim with a
	// lease duration that has already elapsed.
	_, err = store.ClaimJob(context.Background(), "dead-worker", -time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LockedBy)
	assert.Nil(t, got.LockExpiresAt)
}

func TestSubmit_ForwardsToStore(t *testing.T) {
	store := repotest.New()
	job, ok, err := Submit(context.Background(), store, domain.Job{
		TenantID: "tenant-1", Type: domain.JobSendMessage,
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, job.ID)
}
