package domain

import "time"

// JobType is the kind of durable async work a Job represents.
type JobType string

const (
	JobSendMessage  JobType = "SEND_MESSAGE"
	JobVoiceProcess JobType = "VOICE_PROCESS"
)

// JobStatus tracks a Job through the durable queue.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// Job is a unit of asynchronous work durably stored in the `jobs` table
// and executed by a worker process.
type Job struct {
	ID             string
	TenantID       string
	Type           JobType
	IdempotencyKey *string
	Input          JSON
	Output         *JSON
	Status         JobStatus
	Progress       int
	ErrorMessage   *string
	LastError      *string
	CallbackURL    *string
	CallbackSent   bool
	LockedAt       *time.Time
	LockedBy       *string
	LockExpiresAt  *time.Time
	Attempts       int
	MaxAttempts    int
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

// Claimable reports whether the job can be picked up by a worker right now:
// status is PENDING or PROCESSING, its lock (if any) has expired, and it
// hasn't exhausted its attempts. It is used by in-memory tests; the real
// claim happens atomically in SQL.
func (j *Job) Claimable(now time.Time) bool {
	if j.Status != JobPending && j.Status != JobProcessing {
		return false
	}
	if j.Attempts >= j.MaxAttempts {
		return false
	}
	if j.LockedAt == nil {
		return true
	}
	return j.LockExpiresAt != nil && j.LockExpiresAt.Before(now)
}
