package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJob_Claimable_TerminalStatusIsNotClaimable(t *testing.T) {
	now := time.Now()
	j := &Job{Status: JobCompleted, Attempts: 0, MaxAttempts: 3}
	assert.False(t, j.Claimable(now))

	j = &Job{Status: JobFailed, Attempts: 0, MaxAttempts: 3}
	assert.False(t, j.Claimable(now))
}

func TestJob_Claimable_ExhaustedAttemptsIsNotClaimable(t *testing.T) {
	now := time.Now()
	j := &Job{Status: JobPending, Attempts: 3, MaxAttempts: 3}
	assert.False(t, j.Claimable(now))
}

func TestJob_Claimable_UnlockedJobIsClaimable(t *testing.T) {
	now := time.Now()
	j := &Job{Status: JobPending, Attempts: 0, MaxAttempts: 3}
	assert.True(t, j.Claimable(now))

	j = &Job{Status: JobProcessing, Attempts: 1, MaxAttempts: 3}
	assert.True(t, j.Claimable(now))
}

func TestJob_Claimable_LockedWithFutureExpiryIsNotClaimable(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Minute)
	j := &Job{Status: JobProcessing, Attempts: 1, MaxAttempts: 3, LockedAt: &now, LockExpiresAt: &future}
	assert.False(t, j.Claimable(now))
}

func TestJob_Claimable_LockedWithExpiredLockIsClaimable(t *testing.T) {
	lockedAt := time.Now().Add(-time.Hour)
	expired := lockedAt.Add(time.Minute)
	now := time.Now()
	j := &Job{Status: JobProcessing, Attempts: 1, MaxAttempts: 3, LockedAt: &lockedAt, LockExpiresAt: &expired}
	assert.True(t, j.Claimable(now))
}
