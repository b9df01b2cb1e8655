// Package repository declares the storage contract the rest of the
// gateway programs against, generalizing the teacher's db.Database
// interface (internal/repository/db/models.go) from a single flat
// chat-app interface into one interface per entity, composed into a
// single Store the concrete postgres implementation and repotest's mock
// both satisfy.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

// TenantRepo persists Tenant rows.
type TenantRepo interface {
	CreateTenant(ctx context.Context, t domain.Tenant) (domain.Tenant, error)
	GetTenant(ctx context.Context, id string) (domain.Tenant, error)
	ListTenants(ctx context.Context) ([]domain.Tenant, error)
}

// ApiKeyRepo persists ApiKey rows.
type ApiKeyRepo interface {
	CreateApiKey(ctx context.Context, k domain.ApiKey) (domain.ApiKey, error)
	GetApiKeyByHash(ctx context.Context, hash string) (domain.ApiKey, error)
	ListApiKeys(ctx context.Context, tenantID string) ([]domain.ApiKey, error)
	RevokeApiKey(ctx context.Context, id string, at time.Time) error
	TouchApiKeyLastUsed(ctx context.Context, id string, at time.Time) error
}

// AgentRepo persists Agent rows.
type AgentRepo interface {
	CreateAgent(ctx context.Context, a domain.Agent) (domain.Agent, error)
	GetAgent(ctx context.Context, id string) (domain.Agent, error)
	ListAgents(ctx context.Context, tenantID string) ([]domain.Agent, error)
	UpdateAgent(ctx context.Context, a domain.Agent) (domain.Agent, error)
}

// SessionRepo persists Session rows, including the S1 uniqueness invariant
// (at most one ACTIVE session per tenant/agent/customer/demoMode) enforced
// by a partial unique index in the postgres implementation.
type SessionRepo interface {
	CreateSession(ctx context.Context, s domain.Session) (domain.Session, error)
	GetSession(ctx context.Context, id string) (domain.Session, error)
	GetActiveSession(ctx context.Context, tenantID, agentID, customerID string, demoMode bool) (*domain.Session, error)
	EndSession(ctx context.Context, id string, endedAt time.Time, status domain.SessionStatus) error
	ListSessions(ctx context.Context, tenantID string) ([]domain.Session, error)
}

// MessageRepo persists the session transcript. InsertMessageTx allocates
// the session's next sequence number and inserts the row in the same
// transaction.
type MessageRepo interface {
	GetMessageByIdempotencyKey(ctx context.Context, sessionID, key string) (*domain.Message, error)
	InsertMessageTx(ctx context.Context, tx *sql.Tx, m domain.Message) (domain.Message, error)
	ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
}

// ProviderCallRepo persists every outbound vendor attempt, successful or
// not.
type ProviderCallRepo interface {
	InsertProviderCallTx(ctx context.Context, tx *sql.Tx, pc domain.ProviderCall) (domain.ProviderCall, error)
	// MarkBilledTx flips Billed to true iff it was false, returning
	// whether this call won the race, enforcing exactly-once billing.
	MarkBilledTx(ctx context.Context, tx *sql.Tx, providerCallID string) (bool, error)
	GetProviderCall(ctx context.Context, id string) (domain.ProviderCall, error)
}

// UsageEventRepo persists the billing ledger. The unique constraint on
// provider_call_id is the backstop half of exactly-once billing: a
// conditional update plus a unique constraint as a backstop.
type UsageEventRepo interface {
	InsertUsageEventTx(ctx context.Context, tx *sql.Tx, ue domain.UsageEvent) (domain.UsageEvent, error)
}

// UsageBreakdownRow is one grouped row of the usage/breakdown report.
type UsageBreakdownRow struct {
	Provider  domain.ProviderName `json:"provider"`
	CallCount int64               `json:"callCount"`
	TokensIn  int64               `json:"tokensIn"`
	TokensOut int64               `json:"tokensOut"`
	CostCents int64               `json:"costCents"`
}

// TopAgentRow is one row of the usage/top-agents report.
type TopAgentRow struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	CostCents int64  `json:"costCents"`
	CallCount int64  `json:"callCount"`
}

// UsageReportRepo answers the aggregate usage queries behind the
// GET /usage endpoints.
type UsageReportRepo interface {
	UsageBreakdown(ctx context.Context, tenantID string, from, to time.Time) ([]UsageBreakdownRow, error)
	TopAgents(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]TopAgentRow, error)
	TotalCostCents(ctx context.Context, tenantID string, from, to time.Time) (int64, error)
}

// JobRepo is the durable async job queue backing the worker process.
type JobRepo interface {
	// SubmitJob inserts j, or returns the existing job if tenantID+key
	// already has one (tenant-scoped idempotency).
	SubmitJob(ctx context.Context, j domain.Job) (domain.Job, bool, error)
	// ClaimJob atomically selects and locks one claimable job for
	// workerID, extending its lease to now+leaseDuration.
	ClaimJob(ctx context.Context, workerID string, leaseDuration time.Duration) (*domain.Job, error)
	GetJob(ctx context.Context, id string) (domain.Job, error)
	ListJobs(ctx context.Context, tenantID string) ([]domain.Job, error)
	CompleteJob(ctx context.Context, id string, output domain.JSON) error
	FailJob(ctx context.Context, id string, errMsg string, requeue bool) error
	UpdateJobProgress(ctx context.Context, id string, progress int) error
	MarkCallbackSent(ctx context.Context, id string) error
	// RecoverStaleJobs clears the lock on any job whose lease has expired,
	// making it claimable again. Run once at worker startup.
	RecoverStaleJobs(ctx context.Context) (int, error)
}

// ToolExecutionRepo persists tool invocation audit rows.
type ToolExecutionRepo interface {
	RecordToolExecution(ctx context.Context, exec domain.ToolExecution) error
}

// AudioArtifactRepo persists opaque voice-channel audio metadata.
type AudioArtifactRepo interface {
	CreateAudioArtifact(ctx context.Context, a domain.AudioArtifact) (domain.AudioArtifact, error)
	GetAudioArtifact(ctx context.Context, id string) (domain.AudioArtifact, error)
}

// Store is the full storage contract. The postgres package provides the
// production implementation; repotest provides an in-memory one for
// tests.
type Store interface {
	TenantRepo
	ApiKeyRepo
	AgentRepo
	SessionRepo
	MessageRepo
	ProviderCallRepo
	UsageEventRepo
	UsageReportRepo
	JobRepo
	ToolExecutionRepo
	AudioArtifactRepo

	// WithTx runs fn inside a single transaction, committing on a nil
	// return and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	Close() error
}
