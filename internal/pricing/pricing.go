// Package pricing is a pure function from (provider, tokensIn,
// tokensOut) to integer cents, grounded on the PricingConfig/
// PricingRegistry shape seen across the pack (e.g. davidbz-calcifer's
// domain.PricingConfig{InputCostPer1K, OutputCostPer1K}) and on the
// teacher's per-message cost fields (repository/db.Message.TotalCost).
// The table itself is the one item of genuinely global, immutable,
// process-wide state in this gateway; it is encapsulated behind this
// package rather than exposed as a loose variable.
package pricing

import (
	"fmt"
	"math"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

// Rate is a provider's price per 1000 tokens, in dollars.
type Rate struct {
	InputPerKTokens  float64
	OutputPerKTokens float64
}

// table is immutable for the life of the process; it is never mutated
// after init, so no synchronization is needed to read it concurrently.
var table = map[domain.ProviderName]Rate{
	domain.ProviderVendorA: {InputPerKTokens: 0.003, OutputPerKTokens: 0.015},
	domain.ProviderVendorB: {InputPerKTokens: 0.0015, OutputPerKTokens: 0.002},
}

// Lookup returns the rate in effect for provider.
func Lookup(provider domain.ProviderName) (Rate, error) {
	r, ok := table[provider]
	if !ok {
		return Rate{}, fmt.Errorf("pricing: unknown provider %q", provider)
	}
	return r, nil
}

// CostCents computes ceil((tokensIn/1000*inP + tokensOut/1000*outP) * 100)
// as a non-negative integer. Zero tokens always yields 0.
func CostCents(provider domain.ProviderName, tokensIn, tokensOut int) (int64, error) {
	rate, err := Lookup(provider)
	if err != nil {
		return 0, err
	}
	if tokensIn == 0 && tokensOut == 0 {
		return 0, nil
	}
	dollars := (float64(tokensIn)/1000.0)*rate.InputPerKTokens + (float64(tokensOut)/1000.0)*rate.OutputPerKTokens
	cents := math.Ceil(dollars * 100)
	if cents < 0 {
		cents = 0
	}
	return int64(cents), nil
}

// Snapshot captures the pricing tuple used for a given provider so it can
// be persisted alongside the UsageEvent it priced.
func Snapshot(provider domain.ProviderName) (domain.PricingSnapshot, error) {
	rate, err := Lookup(provider)
	if err != nil {
		return domain.PricingSnapshot{}, err
	}
	return domain.PricingSnapshot{
		Provider:              provider,
		InputPricePerKTokens:  rate.InputPerKTokens,
		OutputPricePerKTokens: rate.OutputPerKTokens,
	}, nil
}
