// Package orchestrator wraps a provider adapter call with timeout,
// bounded retries, jittered exponential backoff, and fallback to a
// secondary provider. It never talks to a vendor directly — that is
// delegated to provider.Adapter — and it is stateless across calls: all
// retry state is purely local to one call.
package orchestrator

import (
	"context"
	"math/rand"
	"time"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/provider"
)

// Policy controls retry timing.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultPolicy returns the gateway's default retry policy.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second, Multiplier: 2}
}

// delayFor returns the k-th retry's pre-sleep delay (1-indexed):
// d_k = min(MaxDelay, InitialDelay*Mult^(k-1)), plus uniform jitter in
// [0, 0.3*d_k].
func (p Policy) delayFor(attempt int, rng *rand.Rand) time.Duration {
	d := float64(p.InitialDelay) * pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	jitter := rng.Float64() * 0.3 * d
	return time.Duration(d + jitter)
}

func pow(base, exp float64) float64 {
	result := 1.0
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	return result
}

// AttemptRecord captures one outbound attempt for persistence as a
// ProviderCall row, successful or not — persisted even on failure.
type AttemptRecord struct {
	Provider      domain.ProviderName
	IsFallback    bool
	AttemptNumber int
	Response      provider.Response
	Status        domain.ProviderCallStatus
	ErrorCode     *string
	ErrorMessage  *string
}

// Outcome is the result of a full orchestrated call: which path served
// it (if any), whether fallback was used, and every attempt made along
// the way (for ProviderCall persistence).
type Outcome struct {
	Success      bool
	UsedFallback bool
	Provider     domain.ProviderName
	Response     provider.Response
	Attempts     []AttemptRecord
	FinalError   error
}

// TimeoutPolicy resolves the per-vendor request timeout
// (Vendor A: 30s, Vendor B: 15s).
type TimeoutPolicy func(domain.ProviderName) time.Duration

// Orchestrator retries and fails over provider calls.
type Orchestrator struct {
	registry *provider.Registry
	policy   Policy
	timeout  TimeoutPolicy
	rng      *rand.Rand
}

// New builds an Orchestrator over registry with the given retry Policy and
// per-vendor timeout resolver.
func New(registry *provider.Registry, policy Policy, timeout TimeoutPolicy) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		policy:   policy,
		timeout:  timeout,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run executes agent.PrimaryProvider with retries, then agent's
// fallback provider (if configured and distinct) if the primary path
// never succeeds.
func (o *Orchestrator) Run(ctx context.Context, primary domain.ProviderName, fallback *domain.ProviderName, req provider.Request) Outcome {
	attemptNumber := 0
	outcome := Outcome{Provider: primary}

	primaryAttempts, primaryOK, primaryResp, primaryErr := o.runPath(ctx, primary, false, req, &attemptNumber)
	outcome.Attempts = append(outcome.Attempts, primaryAttempts...)
	if primaryOK {
		outcome.Success = true
		outcome.Response = primaryResp
		return outcome
	}
	outcome.FinalError = primaryErr

	usesFallback := fallback != nil && *fallback != primary
	if !usesFallback {
		return outcome
	}

	fallbackAttempts, fallbackOK, fallbackResp, fallbackErr := o.runPath(ctx, *fallback, true, req, &attemptNumber)
	outcome.Attempts = append(outcome.Attempts, fallbackAttempts...)
	if fallbackOK {
		outcome.Success = true
		outcome.UsedFallback = true
		outcome.Provider = *fallback
		outcome.Response = fallbackResp
		outcome.FinalError = nil
		return outcome
	}
	outcome.FinalError = fallbackErr
	outcome.Provider = *fallback
	return outcome
}

// runPath executes up to o.policy.MaxAttempts attempts against a single
// provider, sleeping with jittered backoff between retryable failures and
// aborting immediately on a non-retryable one.
func (o *Orchestrator) runPath(ctx context.Context, name domain.ProviderName, isFallback bool, req provider.Request, attemptNumber *int) ([]AttemptRecord, bool, provider.Response, error) {
	adapter, err := o.registry.Resolve(name)
	if err != nil {
		*attemptNumber++
		rec := AttemptRecord{
			Provider: name, IsFallback: isFallback, AttemptNumber: *attemptNumber,
			Status: domain.ProviderCallFailed, ErrorMessage: strPtr(err.Error()),
		}
		return []AttemptRecord{rec}, false, provider.Response{}, err
	}

	var records []AttemptRecord
	var lastErr error

	for n := 1; n <= o.policy.MaxAttempts; n++ {
		*attemptNumber++
		callCtx, cancel := context.WithTimeout(ctx, o.timeout(name))
		resp, callErr := adapter.Send(callCtx, req)
		cancel()

		if callErr == nil {
			records = append(records, AttemptRecord{
				Provider: name, IsFallback: isFallback, AttemptNumber: *attemptNumber,
				Response: resp, Status: domain.ProviderCallSuccess,
			})
			return records, true, resp, nil
		}

		lastErr = callErr
		status, code := classify(callErr)
		records = append(records, AttemptRecord{
			Provider: name, IsFallback: isFallback, AttemptNumber: *attemptNumber,
			Status: status, ErrorCode: strPtr(code), ErrorMessage: strPtr(callErr.Error()),
		})

		if !apperrors.IsRetryable(callErr) {
			return records, false, provider.Response{}, callErr
		}
		if n == o.policy.MaxAttempts {
			break
		}

		delay := o.policy.delayFor(n, o.rng)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return records, false, provider.Response{}, ctx.Err()
		}
	}

	return records, false, provider.Response{}, lastErr
}

func classify(err error) (domain.ProviderCallStatus, string) {
	e, ok := apperrors.As(err)
	if !ok {
		return domain.ProviderCallFailed, "INTERNAL_ERROR"
	}
	switch e.Kind {
	case apperrors.KindTimeout:
		return domain.ProviderCallTimeout, string(apperrors.KindTimeout)
	case apperrors.KindRateLimited:
		return domain.ProviderCallRateLimited, string(apperrors.KindRateLimited)
	default:
		return domain.ProviderCallFailed, string(e.Kind)
	}
}

func strPtr(s string) *string { return &s }
