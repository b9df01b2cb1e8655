package domain

import "time"

// ProviderCallStatus is the outcome of one outbound vendor attempt.
type ProviderCallStatus string

const (
	ProviderCallSuccess     ProviderCallStatus = "SUCCESS"
	ProviderCallFailed      ProviderCallStatus = "FAILED"
	ProviderCallTimeout     ProviderCallStatus = "TIMEOUT"
	ProviderCallRateLimited ProviderCallStatus = "RATE_LIMITED"
)

// ProviderCall is a persisted record of a single outbound attempt against a
// vendor, successful or not. Only SUCCESS rows may become Billed (P1).
type ProviderCall struct {
	ID            string
	SessionID     string
	CorrelationID string
	Provider      ProviderName
	IsFallback    bool
	TokensIn      int
	TokensOut     int
	LatencyMs     int
	Status        ProviderCallStatus
	ErrorCode     *string
	ErrorMessage  *string
	AttemptNumber int
	Billed        bool
	CreatedAt     time.Time
}

// UsageEvent is the unit of cost accounting: exactly one per successful,
// non-demo ProviderCall, enforced by the unique constraint on ProviderCallID.
type UsageEvent struct {
	ID              string
	TenantID        string
	AgentID         string
	SessionID       string
	ProviderCallID  string
	Provider        ProviderName
	TokensIn        int
	TokensOut       int
	TotalTokens     int
	CostCents       int64
	PricingSnapshot PricingSnapshot
	CreatedAt       time.Time
}

// PricingSnapshot is the pricing tuple in effect when a UsageEvent was
// created, copied so that later price changes never retroactively alter
// historical bills.
type PricingSnapshot struct {
	Provider             ProviderName `json:"provider"`
	InputPricePerKTokens float64      `json:"inputPricePerKTokens"`
	OutputPricePerKTokens float64     `json:"outputPricePerKTokens"`
}
