package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

// SubmitJob inserts j, or returns the pre-existing job for the same
// tenant_id+idempotency_key pair untouched — submission is
// tenant-scoped idempotent. The second return value is true only when a
// new row was created.
func (s *Store) SubmitJob(ctx context.Context, j domain.Job) (domain.Job, bool, error) {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO jobs (id, tenant_id, type, idempotency_key, input, status, callback_url, max_attempts)
		VALUES ($1, $2, $3, $4, $5, 'PENDING', $6, $7)
		ON CONFLICT (tenant_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
		RETURNING id, tenant_id, type, idempotency_key, input, output, status, progress, error_message,
			last_error, callback_url, callback_sent, locked_at, locked_by, lock_expires_at, attempts,
			max_attempts, created_at, started_at, completed_at
	`, j.ID, j.TenantID, j.Type, j.IdempotencyKey, j.Input, j.CallbackURL, j.MaxAttempts)

	out, err := scanJobRow(row)
	if err == sql.ErrNoRows {
		// ON CONFLICT DO NOTHING fired: a job already exists for this key.
		existing, getErr := s.getJobByIdempotencyKey(ctx, j.TenantID, *j.IdempotencyKey)
		if getErr != nil {
			return domain.Job{}, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return domain.Job{}, false, err
	}
	return out, true, nil
}

func (s *Store) getJobByIdempotencyKey(ctx context.Context, tenantID, key string) (domain.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, type, idempotency_key, input, output, status, progress, error_message,
			last_error, callback_url, callback_sent, locked_at, locked_by, lock_expires_at, attempts,
			max_attempts, created_at, started_at, completed_at
		FROM jobs WHERE tenant_id = $1 AND idempotency_key = $2
	`, tenantID, key)
	out, err := scanJobRow(row)
	if err == sql.ErrNoRows {
		return domain.Job{}, apperrors.NotFound("job not found")
	}
	return out, err
}

// ClaimJob atomically selects one claimable job (status in {PENDING,
// PROCESSING} and unlocked or lease-expired, attempts < max_attempts) and
// extends its lease to workerID. The
// SELECT ... FOR UPDATE SKIP LOCKED plus UPDATE runs in one transaction so
// two workers racing the same poll never claim the same row.
func (s *Store) ClaimJob(ctx context.Context, workerID string, leaseDuration time.Duration) (*domain.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("repository/postgres: beginning claim transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id FROM jobs
		WHERE status IN ('PENDING', 'PROCESSING')
			AND (locked_at IS NULL OR lock_expires_at < now())
			AND attempts < max_attempts
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("repository/postgres: selecting claimable job: %w", err)
	}

	now := time.Now()
	updateRow := tx.QueryRowContext(ctx, `
		UPDATE jobs SET status = 'PROCESSING', locked_at = $2, locked_by = $3, lock_expires_at = $4,
			attempts = attempts + 1, started_at = COALESCE(started_at, $2)
		WHERE id = $1
		RETURNING id, tenant_id, type, idempotency_key, input, output, status, progress, error_message,
			last_error, callback_url, callback_sent, locked_at, locked_by, lock_expires_at, attempts,
			max_attempts, created_at, started_at, completed_at
	`, id, now, workerID, now.Add(leaseDuration))

	job, err := scanJobRow(updateRow)
	if err != nil {
		return nil, fmt.Errorf("repository/postgres: claiming job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("repository/postgres: committing claim: %w", err)
	}
	return &job, nil
}

func (s *Store) GetJob(ctx context.Context, id string) (domain.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, type, idempotency_key, input, output, status, progress, error_message,
			last_error, callback_url, callback_sent, locked_at, locked_by, lock_expires_at, attempts,
			max_attempts, created_at, started_at, completed_at
		FROM jobs WHERE id = $1
	`, id)
	out, err := scanJobRow(row)
	if err == sql.ErrNoRows {
		return domain.Job{}, apperrors.NotFound("job not found")
	}
	return out, err
}

func (s *Store) ListJobs(ctx context.Context, tenantID string) ([]domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, type, idempotency_key, input, output, status, progress, error_message,
			last_error, callback_url, callback_sent, locked_at, locked_by, lock_expires_at, attempts,
			max_attempts, created_at, started_at, completed_at
		FROM jobs WHERE tenant_id = $1 ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("repository/postgres: listing jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) CompleteJob(ctx context.Context, id string, output domain.JSON) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'COMPLETED', output = $2, progress = 100, completed_at = now(),
			locked_at = NULL, locked_by = NULL, lock_expires_at = NULL
		WHERE id = $1
	`, id, output)
	if err != nil {
		return fmt.Errorf("repository/postgres: completing job: %w", err)
	}
	return nil
}

// FailJob records errMsg and either returns the job to PENDING for
// another claim attempt (requeue) or marks it terminally FAILED.
func (s *Store) FailJob(ctx context.Context, id string, errMsg string, requeue bool) error {
	status := "FAILED"
	if requeue {
		status = "PENDING"
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $2, last_error = $3, error_message = $3,
			locked_at = NULL, locked_by = NULL, lock_expires_at = NULL,
			completed_at = CASE WHEN $2 = 'FAILED' THEN now() ELSE completed_at END
		WHERE id = $1
	`, id, status, errMsg)
	if err != nil {
		return fmt.Errorf("repository/postgres: failing job: %w", err)
	}
	return nil
}

func (s *Store) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET progress = $2 WHERE id = $1`, id, progress)
	if err != nil {
		return fmt.Errorf("repository/postgres: updating job progress: %w", err)
	}
	return nil
}

func (s *Store) MarkCallbackSent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET callback_sent = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository/postgres: marking callback sent: %w", err)
	}
	return nil
}

// RecoverStaleJobs clears the lock on every job whose lease has expired,
// making it claimable again. Called once at worker startup, so a
// worker that crashed mid-lease does not strand its jobs forever.
func (s *Store) RecoverStaleJobs(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET locked_at = NULL, locked_by = NULL, lock_expires_at = NULL
		WHERE status = 'PROCESSING' AND lock_expires_at < now()
	`)
	if err != nil {
		return 0, fmt.Errorf("repository/postgres: recovering stale jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("repository/postgres: counting recovered jobs: %w", err)
	}
	return int(n), nil
}

func scanJobRow(row scannable) (domain.Job, error) {
	var j domain.Job
	var input, output domain.JSON
	err := row.Scan(&j.ID, &j.TenantID, &j.Type, &j.IdempotencyKey, &input, &output, &j.Status, &j.Progress,
		&j.ErrorMessage, &j.LastError, &j.CallbackURL, &j.CallbackSent, &j.LockedAt, &j.LockedBy,
		&j.LockExpiresAt, &j.Attempts, &j.MaxAttempts, &j.CreatedAt, &j.StartedAt, &j.CompletedAt)
	if err != nil && err != sql.ErrNoRows {
		return domain.Job{}, fmt.Errorf("repository/postgres: scanning job: %w", err)
	}
	if err == sql.ErrNoRows {
		return j, err
	}
	j.Input = input
	if len(output) > 0 {
		j.Output = &output
	}
	return j, nil
}
