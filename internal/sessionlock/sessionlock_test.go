package sessionlock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
)

func TestInMemoryLocker_AcquireAndRelease(t *testing.T) {
	l := NewInMemoryLocker(time.Minute)
	release, err := l.Acquire(context.Background(), "session-1", time.Second)
	require.NoError(t, err)
	require.NotNil(t, release)
	release()
}

func TestInMemoryLocker_SecondAcquireFailsFastWithConflict(t *testing.T) {
	l := NewInMemoryLocker(time.Minute)
	release, err := l.Acquire(context.Background(), "session-1", time.Second)
	require.NoError(t, err)
	defer release()

	start := time.Now()
	_, err = l.Acquire(context.Background(), "session-1", time.Second)
	elapsed := time.Since(start)

	require.Error(t, err)
	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindConflict, e.Kind)
	assert.Less(t, elapsed, 50*time.Millisecond, "second acquire must fail fast, not wait for the holder")
}

func TestInMemoryLocker_AcquireSucceedsAfterRelease(t *testing.T) {
	l := NewInMemoryLocker(time.Minute)
	release, err := l.Acquire(context.Background(), "session-1", time.Second)
	require.NoError(t, err)
	release()

	r2, err := l.Acquire(context.Background(), "session-1", time.Second)
	require.NoError(t, err)
	r2()
}

func TestInMemoryLocker_DifferentSessionsDoNotContend(t *testing.T) {
	l := NewInMemoryLocker(time.Minute)
	release1, err := l.Acquire(context.Background(), "session-1", time.Second)
	require.NoError(t, err)
	defer release1()

	release2, err := l.Acquire(context.Background(), "session-2", time.Second)
	require.NoError(t, err)
	release2()
}

func TestInMemoryLocker_AcquireIgnoresCancelledContextOnFreeSession(t *testing.T) {
	l := NewInMemoryLocker(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release, err := l.Acquire(ctx, "session-1", time.Second)
	require.NoError(t, err)
	release()
}

func TestInMemoryLocker_Sweep_EvictsIdleLocks(t *testing.T) {
	l := NewInMemoryLocker(10 * time.Millisecond)
	release, err := l.Acquire(context.Background(), "session-1", time.Second)
	require.NoError(t, err)
	release()

	time.Sleep(15 * time.Millisecond)
	l.sweep()

	l.mu.Lock()
	_, stillPresent := l.locks["session-1"]
	l.mu.Unlock()
	assert.False(t, stillPresent)
}

func TestNewInMemoryLocker_ZeroSweepAfterUsesDefault(t *testing.T) {
	l := NewInMemoryLocker(0)
	assert.Equal(t, 30*time.Second, l.sweepAfter)
}
