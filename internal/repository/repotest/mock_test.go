package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

func TestCreateSession_ConflictsOnDuplicateActiveSession(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := domain.Session{TenantID: "t1", AgentID: "a1", CustomerID: "c1", Status: domain.SessionActive}
	_, err := s.CreateSession(ctx, base)
	require.NoError(t, err)

	_, err = s.CreateSession(ctx, base)
	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindConflict, e.Kind)
}

func TestCreateSession_AllowsSecondEndedSessionForSameTuple(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.CreateSession(ctx, domain.Session{TenantID: "t1", AgentID: "a1", CustomerID: "c1", Status: domain.SessionActive})
	require.NoError(t, err)
	require.NoError(t, s.EndSession(ctx, first.ID, time.Now(), domain.SessionEnded))

	_, err = s.CreateSession(ctx, domain.Session{TenantID: "t1", AgentID: "a1", CustomerID: "c1", Status: domain.SessionActive})
	assert.NoError(t, err)
}

func TestCreateSession_DemoModeDoesNotConflictWithLiveSession(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreateSession(ctx, domain.Session{TenantID: "t1", AgentID: "a1", CustomerID: "c1", Status: domain.SessionActive})
	require.NoError(t, err)

	_, err = s.CreateSession(ctx, domain.Session{TenantID: "t1", AgentID: "a1", CustomerID: "c1", Status: domain.SessionActive, DemoMode: true})
	assert.NoError(t, err)
}

func TestSubmitJob_IdempotencyKeyCollapsesResubmission(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := "order-42"

	first, isNew, err := s.SubmitJob(ctx, domain.Job{TenantID: "t1", Type: domain.JobSendMessage, IdempotencyKey: &key})
	require.NoError(t, err)
	assert.True(t, isNew)

	second, isNew, err := s.SubmitJob(ctx, domain.Job{TenantID: "t1", Type: domain.JobSendMessage, IdempotencyKey: &key})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, first.ID, second.ID)
}

func TestSubmitJob_IdempotencyKeyIsScopedPerTenant(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := "order-42"

	first, _, err := s.SubmitJob(ctx, domain.Job{TenantID: "t1", Type: domain.JobSendMessage, IdempotencyKey: &key})
	require.NoError(t, err)

	second, isNew, err := s.SubmitJob(ctx, domain.Job{TenantID: "t2", Type: domain.JobSendMessage, IdempotencyKey: &key})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestClaimJob_PicksOldestClaimableJobFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	older, _, err := s.SubmitJob(ctx, domain.Job{TenantID: "t1", Type: domain.JobSendMessage})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, _, err = s.SubmitJob(ctx, domain.Job{TenantID: "t1", Type: domain.JobSendMessage})
	require.NoError(t, err)

	claimed, err := s.ClaimJob(ctx, "worker-1", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, older.ID, claimed.ID)
}

func TestClaimJob_SkipsAlreadyLockedJob(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, _, err := s.SubmitJob(ctx, domain.Job{TenantID: "t1", Type: domain.JobSendMessage})
	require.NoError(t, err)

	first, err := s.ClaimJob(ctx, "worker-1", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := s.ClaimJob(ctx, "worker-2", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestClaimJob_DefaultsMaxAttemptsWhenUnset(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, _, err := s.SubmitJob(ctx, domain.Job{TenantID: "t1", Type: domain.JobSendMessage})
	require.NoError(t, err)
	assert.Equal(t, 5, created.MaxAttempts)
}

func TestInsertMessageTx_IdempotencyKeyConflictsWithinSession(t *testing.T) {
	s := New()
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, domain.Session{TenantID: "t1", AgentID: "a1", CustomerID: "c1", Status: domain.SessionActive})
	require.NoError(t, err)

	key := "idem-1"
	_, err = s.InsertMessageTx(ctx, nil, domain.Message{SessionID: sess.ID, Role: domain.RoleUser, Content: "hi", IdempotencyKey: &key})
	require.NoError(t, err)

	_, err = s.InsertMessageTx(ctx, nil, domain.Message{SessionID: sess.ID, Role: domain.RoleUser, Content: "hi again", IdempotencyKey: &key})
	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindConflict, e.Kind)
}

func TestListSessions_IsScopedToTenant(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreateSession(ctx, domain.Session{TenantID: "t1", AgentID: "a1", CustomerID: "c1", Status: domain.SessionActive})
	require.NoError(t, err)
	_, err = s.CreateSession(ctx, domain.Session{TenantID: "t2", AgentID: "a2", CustomerID: "c2", Status: domain.SessionActive})
	require.NoError(t, err)

	sessions, err := s.ListSessions(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
