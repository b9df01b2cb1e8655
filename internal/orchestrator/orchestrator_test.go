package orchestrator

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/provider"
)

// scriptedAdapter returns one entry of results per call, repeating the
// last entry once exhausted; it records how many times it was invoked.
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

func testPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func fixedTimeout(d time.Duration) TimeoutPolicy {
	return func(domain.ProviderName) time.Duration { return d }
}

func TestOrchestrator_Run_SuccessOnFirstAttempt(t *testing.T) {
	registry := provider.NewRegistry()
	adapter := &scriptedAdapter{
		name:    domain.ProviderVendorA,
		results: []scriptedResult{{resp: provider.Response{Content: "hi"}}},
	}
	registry.Register(adapter)

	o := New(registry, testPolicy(), fixedTimeout(time.Second))
	outcome := o.Run(context.Background(), domain.ProviderVendorA, nil, provider.Request{})

	require.True(t, outcome.Success)
	assert.False(t, outcome.UsedFallback)
	assert.Equal(t, "hi", outcome.Response.Content)
	assert.Equal(t, 1, adapter.calls)
	assert.Len(t, outcome.Attempts, 1)
}

func TestOrchestrator_Run_RetriesRetryableErrorThenSucceeds(t *testing.T) {
	registry := provider.NewRegistry()
	adapter := &scriptedAdapter{
		name: domain.ProviderVendorA,
		results: []scriptedResult{
			{err: apperrors.Provider("upstream 500", true, nil)},
			{resp: provider.Response{Content: "recovered"}},
		},
	}
	registry.Register(adapter)

	o := New(registry, testPolicy(), fixedTimeout(time.Second))
	outcome := o.Run(context.Background(), domain.ProviderVendorA, nil, provider.Request{})

	require.True(t, outcome.Success)
	assert.Equal(t, "recovered", outcome.Response.Content)
	assert.Equal(t, 2, adapter.calls)
	assert.Len(t, outcome.Attempts, 2)
}

func TestOrchestrator_Run_StopsAtMaxAttempts(t *testing.T) {
	registry := provider.NewRegistry()
	adapter := &scriptedAdapter{
		name:    domain.ProviderVendorA,
		results: []scriptedResult{{err: apperrors.Provider("always down", true, nil)}},
	}
	registry.Register(adapter)

	policy := testPolicy()
	o := New(registry, policy, fixedTimeout(time.Second))
	outcome := o.Run(context.Background(), domain.ProviderVendorA, nil, provider.Request{})

	assert.False(t, outcome.Success)
	assert.Equal(t, policy.MaxAttempts, adapter.calls)
	assert.Len(t, outcome.Attempts, policy.MaxAttempts)
}

func TestOrchestrator_Run_NonRetryableErrorAbortsImmediately(t *testing.T) {
	registry := provider.NewRegistry()
	adapter := &scriptedAdapter{
		name:    domain.ProviderVendorA,
		results: []scriptedResult{{err: apperrors.Validation("bad request")}},
	}
	registry.Register(adapter)

	o := New(registry, testPolicy(), fixedTimeout(time.Second))
	outcome := o.Run(context.Background(), domain.ProviderVendorA, nil, provider.Request{})

	assert.False(t, outcome.Success)
	assert.Equal(t, 1, adapter.calls)
}

func TestOrchestrator_Run_FallsBackAfterPrimaryExhausted(t *testing.T) {
	registry := provider.NewRegistry()
	primary := &scriptedAdapter{
		name:    domain.ProviderVendorA,
		results: []scriptedResult{{err: apperrors.Provider("down", true, nil)}},
	}
	fallback := &scriptedAdapter{
		name:    domain.ProviderVendorB,
		results: []scriptedResult{{resp: provider.Response{Content: "from fallback"}}},
	}
	registry.Register(primary)
	registry.Register(fallback)

	fallbackName := domain.ProviderVendorB
	o := New(registry, testPolicy(), fixedTimeout(time.Second))
	outcome := o.Run(context.Background(), domain.ProviderVendorA, &fallbackName, provider.Request{})

	require.True(t, outcome.Success)
	assert.True(t, outcome.UsedFallback)
	assert.Equal(t, domain.ProviderVendorB, outcome.Provider)
	assert.Equal(t, "from fallback", outcome.Response.Content)
}

func TestOrchestrator_Run_FallbackEqualToPrimaryIsNotUsed(t *testing.T) {
	registry := provider.NewRegistry()
	adapter := &scriptedAdapter{
		name:    domain.ProviderVendorA,
		results: []scriptedResult{{err: apperrors.Validation("bad")}},
	}
	registry.Register(adapter)

	same := domain.ProviderVendorA
	o := New(registry, testPolicy(), fixedTimeout(time.Second))
	outcome := o.Run(context.Background(), domain.ProviderVendorA, &same, provider.Request{})

	assert.False(t, outcome.Success)
	assert.False(t, outcome.UsedFallback)
	assert.Equal(t, 1, adapter.calls)
}

func TestOrchestrator_Run_BothPathsFail(t *testing.T) {
	registry := provider.NewRegistry()
	primary := &scriptedAdapter{name: domain.ProviderVendorA, results: []scriptedResult{{err: apperrors.Validation("bad")}}}
	fallback := &scriptedAdapter{name: domain.ProviderVendorB, results: []scriptedResult{{err: apperrors.Validation("also bad")}}}
	registry.Register(primary)
	registry.Register(fallback)

	fb := domain.ProviderVendorB
	o := New(registry, testPolicy(), fixedTimeout(time.Second))
	outcome := o.Run(context.Background(), domain.ProviderVendorA, &fb, provider.Request{})

	assert.False(t, outcome.Success)
	assert.Equal(t, domain.ProviderVendorB, outcome.Provider)
	assert.Error(t, outcome.FinalError)
}

func TestOrchestrator_Run_UnregisteredProviderFailsWithoutPanicking(t *testing.T) {
	registry := provider.NewRegistry()
	o := New(registry, testPolicy(), fixedTimeout(time.Second))

	outcome := o.Run(context.Background(), domain.ProviderName("GHOST"), nil, provider.Request{})

	assert.False(t, outcome.Success)
	assert.Len(t, outcome.Attempts, 1)
}

func TestOrchestrator_Run_ContextCancelledDuringBackoffStopsRetrying(t *testing.T) {
	registry := provider.NewRegistry()
	adapter := &scriptedAdapter{
		name:    domain.ProviderVendorA,
		results: []scriptedResult{{err: apperrors.Provider("down", true, nil)}},
	}
	registry.Register(adapter)

	policy := Policy{MaxAttempts: 5, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	o := New(registry, policy, fixedTimeout(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	outcome := o.Run(ctx, domain.ProviderVendorA, nil, provider.Request{})

	assert.False(t, outcome.Success)
	assert.Less(t, adapter.calls, policy.MaxAttempts)
}

func TestPolicy_DelayFor_NeverExceedsMaxDelayPlusJitter(t *testing.T) {
	p := Policy{MaxAttempts: 5, InitialDelay: 100 * time.Millisecond, MaxDelay: 200 * time.Millisecond, Multiplier: 10}
	rng := rand.New(rand.NewSource(1))

	d := p.delayFor(3, rng)
	// jitter adds up to 0.3*MaxDelay on top of the capped delay.
	assert.LessOrEqual(t, d, time.Duration(float64(p.MaxDelay)*1.3)+time.Millisecond)
}

func TestDefaultPolicy_MatchesDocumentedDefaults(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, p.InitialDelay)
	assert.Equal(t, 5*time.Second, p.MaxDelay)
	assert.Equal(t, 2.0, p.Multiplier)
}
