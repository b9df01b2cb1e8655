// Package repotest is an in-memory repository.Store for tests, grounded
// on the teacher's internal/testutil.MockDatabase (now removed from the
// workspace after being generalized here) — same "map-backed fake behind
// the real interface" shape, widened to every entity this gateway
// persists instead of just users/conversations.
package repotest

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Store is a single-process, mutex-guarded fake of repository.Store. It
// does not open a real database connection, so WithTx simulates a
// transaction by running fn against the same maps directly. There is no
// rollback: writes fn made before returning an error remain.
type Store struct {
	mu sync.Mutex

	tenants        map[string]domain.Tenant
	apiKeysByHash  map[string]domain.ApiKey
	agents         map[string]domain.Agent
	sessions       map[string]domain.Session
	messages       map[string]domain.Message
	providerCalls  map[string]domain.ProviderCall
	usageEvents    map[string]domain.UsageEvent
	jobs           map[string]domain.Job
	jobsByIdemKey  map[string]string // tenantID+":"+key -> jobID
	toolExecutions map[string]domain.ToolExecution
	audioArtifacts map[string]domain.AudioArtifact
}

func New() *Store {
	return &Store{
		tenants:        make(map[string]domain.Tenant),
		apiKeysByHash:  make(map[string]domain.ApiKey),
		agents:         make(map[string]domain.Agent),
		sessions:       make(map[string]domain.Session),
		messages:       make(map[string]domain.Message),
		providerCalls:  make(map[string]domain.ProviderCall),
		usageEvents:    make(map[string]domain.UsageEvent),
		jobs:           make(map[string]domain.Job),
		jobsByIdemKey:  make(map[string]string),
		toolExecutions: make(map[string]domain.ToolExecution),
		audioArtifacts: make(map[string]domain.AudioArtifact),
	}
}

func (s *Store) Close() error { return nil }

// WithTx has no real transactional isolation in the fake: fn either
// completes and its writes stand, or it returns an error and the caller
// treats this call as having had no effect. Tests that need genuine
// rollback semantics should exercise internal/repository/postgres instead.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

// --- tenants ---

func (s *Store) CreateTenant(ctx context.Context, t domain.Tenant) (domain.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.CreatedAt = time.Now()
	s.tenants[t.ID] = t
	return t, nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return domain.Tenant{}, apperrors.NotFound("tenant not found")
	}
	return t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, t)
	}
	return out, nil
}

// --- api keys ---

func (s *Store) CreateApiKey(ctx context.Context, k domain.ApiKey) (domain.ApiKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k.ID == "" {
		k.ID = uuid.New().String()
	}
	k.CreatedAt = time.Now()
	s.apiKeysByHash[k.Hash] = k
	return k, nil
}

func (s *Store) GetApiKeyByHash(ctx context.Context, hash string) (domain.ApiKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.apiKeysByHash[hash]
	if !ok {
		return domain.ApiKey{}, apperrors.Unauthorized("api key not found")
	}
	return k, nil
}

func (s *Store) ListApiKeys(ctx context.Context, tenantID string) ([]domain.ApiKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ApiKey
	for _, k := range s.apiKeysByHash {
		if k.TenantID == tenantID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) RevokeApiKey(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, k := range s.apiKeysByHash {
		if k.ID == id {
			k.RevokedAt = &at
			s.apiKeysByHash[hash] = k
			return nil
		}
	}
	return apperrors.NotFound("api key not found")
}

func (s *Store) TouchApiKeyLastUsed(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, k := range s.apiKeysByHash {
		if k.ID == id {
			k.LastUsedAt = &at
			s.apiKeysByHash[hash] = k
			return nil
		}
	}
	return nil
}

// --- agents ---

func (s *Store) CreateAgent(ctx context.Context, a domain.Agent) (domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	s.agents[a.ID] = a
	return a, nil
}

func (s *Store) GetAgent(ctx context.Context, id string) (domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return domain.Agent{}, apperrors.NotFound("agent not found")
	}
	return a, nil
}

func (s *Store) ListAgents(ctx context.Context, tenantID string) ([]domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Agent
	for _, a := range s.agents {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) UpdateAgent(ctx context.Context, a domain.Agent) (domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[a.ID]; !ok {
		return domain.Agent{}, apperrors.NotFound("agent not found")
	}
	s.agents[a.ID] = a
	return a, nil
}

// --- sessions ---

func (s *Store) CreateSession(ctx context.Context, sess domain.Session) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.Status == domain.SessionActive {
		for _, existing := range s.sessions {
			if existing.Status == domain.SessionActive && existing.TenantID == sess.TenantID &&
				existing.AgentID == sess.AgentID && existing.CustomerID == sess.CustomerID && existing.DemoMode == sess.DemoMode {
				return domain.Session{}, apperrors.Conflict("an active session already exists for this tenant/agent/customer")
			}
		}
	}
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	sess.CreatedAt = time.Now()
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, apperrors.NotFound("session not found")
	}
	return sess, nil
}

func (s *Store) GetActiveSession(ctx context.Context, tenantID, agentID, customerID string, demoMode bool) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.Status == domain.SessionActive && sess.TenantID == tenantID && sess.AgentID == agentID &&
			sess.CustomerID == customerID && sess.DemoMode == demoMode {
			out := sess
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) EndSession(ctx context.Context, id string, endedAt time.Time, status domain.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.Status != domain.SessionActive {
		return apperrors.Conflict("session is not active")
	}
	sess.Status = status
	sess.EndedAt = &endedAt
	s.sessions[id] = sess
	return nil
}

func (s *Store) ListSessions(ctx context.Context, tenantID string) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Session
	for _, sess := range s.sessions {
		if sess.TenantID == tenantID {
			out = append(out, sess)
		}
	}
	return out, nil
}

// --- messages ---

func (s *Store) GetMessageByIdempotencyKey(ctx context.Context, sessionID, key string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.SessionID == sessionID && m.IdempotencyKey != nil && *m.IdempotencyKey == key {
			out := m
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) InsertMessageTx(ctx context.Context, tx *sql.Tx, m domain.Message) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.IdempotencyKey != nil {
		for _, existing := range s.messages {
			if existing.SessionID == m.SessionID && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *m.IdempotencyKey {
				return domain.Message{}, apperrors.Conflict("a message with this idempotency key already exists for this session")
			}
		}
	}

	sess, ok := s.sessions[m.SessionID]
	if !ok {
		return domain.Message{}, apperrors.NotFound("session " + m.SessionID + " not found")
	}
	seq := s.nextSequenceLocked(m.SessionID)
	_ = sess

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.SequenceNumber = seq
	m.CreatedAt = time.Now()
	s.messages[m.ID] = m
	return m, nil
}

// nextSequenceLocked scans existing messages for sessionID; callers must
// already hold s.mu.
func (s *Store) nextSequenceLocked(sessionID string) int {
	max := -1
	for _, m := range s.messages {
		if m.SessionID == sessionID && m.SequenceNumber > max {
			max = m.SequenceNumber
		}
	}
	return max + 1
}

func (s *Store) ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].SequenceNumber < out[i].SequenceNumber {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// --- provider calls ---

func (s *Store) InsertProviderCallTx(ctx context.Context, tx *sql.Tx, pc domain.ProviderCall) (domain.ProviderCall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pc.ID == "" {
		pc.ID = uuid.New().String()
	}
	pc.CreatedAt = time.Now()
	s.providerCalls[pc.ID] = pc
	return pc, nil
}

func (s *Store) MarkBilledTx(ctx context.Context, tx *sql.Tx, providerCallID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.providerCalls[providerCallID]
	if !ok {
		return false, apperrors.NotFound("provider call not found")
	}
	if pc.Billed {
		return false, nil
	}
	pc.Billed = true
	s.providerCalls[providerCallID] = pc
	return true, nil
}

func (s *Store) GetProviderCall(ctx context.Context, id string) (domain.ProviderCall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.providerCalls[id]
	if !ok {
		return domain.ProviderCall{}, apperrors.NotFound("provider call not found")
	}
	return pc, nil
}

// --- usage events ---

func (s *Store) InsertUsageEventTx(ctx context.Context, tx *sql.Tx, ue domain.UsageEvent) (domain.UsageEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.usageEvents {
		if existing.ProviderCallID == ue.ProviderCallID {
			return domain.UsageEvent{}, apperrors.Conflict("a usage event already exists for this provider call")
		}
	}
	if ue.ID == "" {
		ue.ID = uuid.New().String()
	}
	ue.CreatedAt = time.Now()
	s.usageEvents[ue.ID] = ue
	return ue, nil
}

// --- usage reporting ---

func (s *Store) UsageBreakdown(ctx context.Context, tenantID string, from, to time.Time) ([]repository.UsageBreakdownRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byProvider := make(map[domain.ProviderName]*repository.UsageBreakdownRow)
	for _, ue := range s.usageEvents {
		if ue.TenantID != tenantID || ue.CreatedAt.Before(from) || !ue.CreatedAt.Before(to) {
			continue
		}
		row, ok := byProvider[ue.Provider]
		if !ok {
			row = &repository.UsageBreakdownRow{Provider: ue.Provider}
			byProvider[ue.Provider] = row
		}
		row.CallCount++
		row.TokensIn += int64(ue.TokensIn)
		row.TokensOut += int64(ue.TokensOut)
		row.CostCents += ue.CostCents
	}
	out := make([]repository.UsageBreakdownRow, 0, len(byProvider))
	for _, row := range byProvider {
		out = append(out, *row)
	}
	return out, nil
}

func (s *Store) TopAgents(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]repository.TopAgentRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byAgent := make(map[string]*repository.TopAgentRow)
	for _, ue := range s.usageEvents {
		if ue.TenantID != tenantID || ue.CreatedAt.Before(from) || !ue.CreatedAt.Before(to) {
			continue
		}
		row, ok := byAgent[ue.AgentID]
		if !ok {
			name := ""
			if a, ok := s.agents[ue.AgentID]; ok {
				name = a.Name
			}
			row = &repository.TopAgentRow{AgentID: ue.AgentID, AgentName: name}
			byAgent[ue.AgentID] = row
		}
		row.CostCents += ue.CostCents
		row.CallCount++
	}
	out := make([]repository.TopAgentRow, 0, len(byAgent))
	for _, row := range byAgent {
		out = append(out, *row)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CostCents > out[i].CostCents {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) TotalCostCents(ctx context.Context, tenantID string, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, ue := range s.usageEvents {
		if ue.TenantID == tenantID && !ue.CreatedAt.Before(from) && ue.CreatedAt.Before(to) {
			total += ue.CostCents
		}
	}
	return total, nil
}

// --- jobs ---

func (s *Store) SubmitJob(ctx context.Context, j domain.Job) (domain.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j.IdempotencyKey != nil {
		key := j.TenantID + ":" + *j.IdempotencyKey
		if existingID, ok := s.jobsByIdemKey[key]; ok {
			return s.jobs[existingID], false, nil
		}
		if j.ID == "" {
			j.ID = uuid.New().String()
		}
		s.jobsByIdemKey[key] = j.ID
	} else if j.ID == "" {
		j.ID = uuid.New().String()
	}

	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	j.Status = domain.JobPending
	j.CreatedAt = time.Now()
	s.jobs[j.ID] = j
	return j, true, nil
}

func (s *Store) ClaimJob(ctx context.Context, workerID string, leaseDuration time.Duration) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var best *domain.Job
	for id, j := range s.jobs {
		if !j.Claimable(now) {
			continue
		}
		if best == nil || j.CreatedAt.Before(best.CreatedAt) {
			cp := j
			cp.ID = id
			best = &cp
		}
	}
	if best == nil {
		return nil, nil
	}

	best.Status = domain.JobProcessing
	best.LockedAt = &now
	workerIDCopy := workerID
	best.LockedBy = &workerIDCopy
	expires := now.Add(leaseDuration)
	best.LockExpiresAt = &expires
	best.Attempts++
	if best.StartedAt == nil {
		best.StartedAt = &now
	}
	s.jobs[best.ID] = *best
	return best, nil
}

func (s *Store) GetJob(ctx context.Context, id string) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, apperrors.NotFound("job not found")
	}
	return j, nil
}

func (s *Store) ListJobs(ctx context.Context, tenantID string) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Job
	for _, j := range s.jobs {
		if j.TenantID == tenantID {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}

func (s *Store) CompleteJob(ctx context.Context, id string, output domain.JSON) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return apperrors.NotFound("job not found")
	}
	j.Status = domain.JobCompleted
	j.Output = &output
	j.Progress = 100
	now := time.Now()
	j.CompletedAt = &now
	j.LockedAt, j.LockedBy, j.LockExpiresAt = nil, nil, nil
	s.jobs[id] = j
	return nil
}

func (s *Store) FailJob(ctx context.Context, id string, errMsg string, requeue bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return apperrors.NotFound("job not found")
	}
	j.LastError = &errMsg
	j.ErrorMessage = &errMsg
	j.LockedAt, j.LockedBy, j.LockExpiresAt = nil, nil, nil
	if requeue {
		j.Status = domain.JobPending
	} else {
		j.Status = domain.JobFailed
		now := time.Now()
		j.CompletedAt = &now
	}
	s.jobs[id] = j
	return nil
}

func (s *Store) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return apperrors.NotFound("job not found")
	}
	j.Progress = progress
	s.jobs[id] = j
	return nil
}

func (s *Store) MarkCallbackSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return apperrors.NotFound("job not found")
	}
	j.CallbackSent = true
	s.jobs[id] = j
	return nil
}

func (s *Store) RecoverStaleJobs(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	n := 0
	for id, j := range s.jobs {
		if j.Status == domain.JobProcessing && j.LockExpiresAt != nil && j.LockExpiresAt.Before(now) {
			j.LockedAt, j.LockedBy, j.LockExpiresAt = nil, nil, nil
			s.jobs[id] = j
			n++
		}
	}
	return n, nil
}

// --- tool executions ---

func (s *Store) RecordToolExecution(ctx context.Context, exec domain.ToolExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if exec.ID == "" {
		exec.ID = uuid.New().String()
	}
	exec.CreatedAt = time.Now()
	s.toolExecutions[exec.ID] = exec
	return nil
}

// --- audio artifacts ---

func (s *Store) CreateAudioArtifact(ctx context.Context, a domain.AudioArtifact) (domain.AudioArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now()
	s.audioArtifacts[a.ID] = a
	return a, nil
}

func (s *Store) GetAudioArtifact(ctx context.Context, id string) (domain.AudioArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.audioArtifacts[id]
	if !ok {
		return domain.AudioArtifact{}, apperrors.NotFound("audio artifact not found")
	}
	return a, nil
}
