// Package jobqueue is a durable async job queue backed by the `jobs`
// table, polling for claimable work and dispatching it to the pipeline,
// grounded on the teacher's service-layer goroutine patterns generalized
// from a single background task into a full claim/execute/retry/callback
// loop.
package jobqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/correlation"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/logger"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/pipeline"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/repository"
)

// sendMessageJobInput is the Input shape a SEND_MESSAGE job carries,
// forwarded into pipeline.SendMessageInput — forwarding
// idempotencyKey so that repeated attempts collapse at the pipeline
// layer").
type sendMessageJobInput struct {
	TenantID       string  `json:"tenantId"`
	SessionID      string  `json:"sessionId"`
	Content        string  `json:"content"`
	IdempotencyKey *string `json:"idempotencyKey,omitempty"`
}

// Worker polls the jobs table and executes claimed work.
type Worker struct {
	ID            string
	store         repository.Store
	pipe          *pipeline.Pipeline
	leaseDuration time.Duration
	pollInterval  time.Duration
	httpClient    *http.Client
}

// New builds a Worker identified by id (conventionally "<host>:<pid>").
func New(id string, store repository.Store, pipe *pipeline.Pipeline, leaseDuration, pollInterval time.Duration) *Worker {
	return &Worker{
		ID:            id,
		store:         store,
		pipe:          pipe,
		leaseDuration: leaseDuration,
		pollInterval:  pollInterval,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Run recovers stale leases once at startup, then polls until ctx is
// cancelled. The atomicity of select-then-update under the row lock is
// what prevents two workers from claiming the same job.
func (w *Worker) Run(ctx context.Context) error {
	n, err := w.store.RecoverStaleJobs(ctx)
	if err != nil {
		return fmt.Errorf("jobqueue: recovering stale jobs at startup: %w", err)
	}
	if n > 0 {
		logger.Log.WithField("count", n).WithField("worker_id", w.ID).Info("recovered stale job leases")
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

func (w *Worker) pollOnce(ctx context.Context) {
	job, err := w.store.ClaimJob(ctx, w.ID, w.leaseDuration)
	if err != nil {
		logger.Log.WithError(err).Error("claiming job")
		return
	}
	if job == nil {
		return
	}
	w.execute(ctx, *job)
}

func (w *Worker) execute(ctx context.Context, job domain.Job) {
	log := logger.Log.WithField("job_id", job.ID).WithField("job_type", job.Type)
	log.Info("executing claimed job")

	output, err := w.dispatch(ctx, job)
	if err != nil {
		w.fail(ctx, job, err)
		return
	}

	if err := w.store.CompleteJob(ctx, job.ID, output); err != nil {
		log.WithError(err).Error("recording job completion")
		return
	}
	w.deliverCallback(ctx, job, domain.JobCompleted, output, "")
}

func (w *Worker) dispatch(ctx context.Context, job domain.Job) (domain.JSON, error) {
	switch job.Type {
	case domain.JobSendMessage:
		return w.dispatchSendMessage(ctx, job)
	default:
		return nil, apperrors.Validation("unknown job type " + string(job.Type))
	}
}

func (w *Worker) dispatchSendMessage(ctx context.Context, job domain.Job) (domain.JSON, error) {
	var in sendMessageJobInput
	if err := job.Input.Unmarshal(&in); err != nil {
		return nil, apperrors.Validation("malformed SEND_MESSAGE job input: " + err.Error())
	}

	corrID := correlation.New()
	out, err := w.pipe.SendMessage(ctx, pipeline.SendMessageInput{
		TenantID:       job.TenantID,
		SessionID:      in.SessionID,
		Content:        in.Content,
		IdempotencyKey: in.IdempotencyKey,
		CorrelationID:  corrID,
	})
	if err != nil {
		return nil, err
	}

	return domain.NewJSON(map[string]any{
		"messageId":     out.Message.ID,
		"content":       out.Message.Content,
		"provider":      out.Provider,
		"tokensIn":      out.TokensIn,
		"tokensOut":     out.TokensOut,
		"latencyMs":     out.LatencyMs,
		"usedFallback":  out.UsedFallback,
		"correlationId": out.CorrelationID,
	})
}

// fail implements the on-failure branch: requeue while
// attempts remain, else terminally fail and send a failure callback.
func (w *Worker) fail(ctx context.Context, job domain.Job, jobErr error) {
	log := logger.Log.WithField("job_id", job.ID)
	requeue := job.Attempts < job.MaxAttempts

	if err := w.store.FailJob(ctx, job.ID, jobErr.Error(), requeue); err != nil {
		log.WithError(err).Error("recording job failure")
		return
	}

	if requeue {
		log.WithError(jobErr).Warn("job attempt failed, will retry")
		return
	}

	log.WithError(jobErr).Error("job failed terminally")
	w.deliverCallback(ctx, job, domain.JobFailed, nil, jobErr.Error())
}

type callbackEnvelope struct {
	JobID       string          `json:"jobId"`
	Type        domain.JobType  `json:"type"`
	Status      domain.JobStatus `json:"status"`
	Result      domain.JSON     `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CompletedAt time.Time       `json:"completedAt"`
}

// deliverCallback POSTs the job's outcome to its callbackUrl, if any. Any
// HTTP 2xx counts as delivered; non-2xx and transport errors are logged
// but never reopen the job.
func (w *Worker) deliverCallback(ctx context.Context, job domain.Job, status domain.JobStatus, result domain.JSON, errMsg string) {
	if job.CallbackURL == nil || *job.CallbackURL == "" {
		return
	}

	envelope := callbackEnvelope{
		JobID: job.ID, Type: job.Type, Status: status, Result: result, Error: errMsg, CompletedAt: time.Now(),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		logger.Log.WithError(err).Error("marshaling job callback envelope")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *job.CallbackURL, bytes.NewReader(body))
	if err != nil {
		logger.Log.WithError(err).Error("building job callback request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Job-ID", job.ID)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		logger.Log.WithError(err).WithField("job_id", job.ID).Warn("delivering job callback")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := w.store.MarkCallbackSent(ctx, job.ID); err != nil {
			logger.Log.WithError(err).Error("marking callback sent")
		}
		return
	}
	logger.Log.WithField("status", resp.StatusCode).WithField("job_id", job.ID).Warn("job callback endpoint returned non-2xx")
}

// Submit inserts a job, forwarding idempotency to the store.
func Submit(ctx context.Context, store repository.Store, j domain.Job) (domain.Job, bool, error) {
	return store.SubmitJob(ctx, j)
}
