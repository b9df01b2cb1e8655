package domain

import "time"

// Channel is how the conversation reaches the gateway.
type Channel string

const (
	ChannelChat  Channel = "CHAT"
	ChannelVoice Channel = "VOICE"
)

// SessionStatus tracks a conversation's lifecycle.
type SessionStatus string

const (
	SessionActive SessionStatus = "ACTIVE"
	SessionEnded  SessionStatus = "ENDED"
	SessionError  SessionStatus = "ERROR"
)

// Session is a conversation between a tenant's agent and an identified
// customer. Invariant S1 (at most one ACTIVE session per tenant/agent/
// customer/demoMode) is enforced by the repository layer via a partial
// unique index, not in this struct.
type Session struct {
	ID         string
	TenantID   string
	AgentID    string
	CustomerID string
	Channel    Channel
	Status     SessionStatus
	DemoMode   bool
	Metadata   *JSON
	CreatedAt  time.Time
	EndedAt    *time.Time
}
