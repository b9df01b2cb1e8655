// Package tools provides named callable units with typed inputs, timeouts,
// and per-execution audit records, grounded on the teacher's
// LLMProvider-as-interface pattern generalized to a name-keyed registry of
// small callable units instead of one big vendor client.
package tools

import (
	"context"
	"time"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/logger"
)

// DataAccess is how much of the tenant's data a tool may touch.
type DataAccess string

const (
	DataAccessNone           DataAccess = "none"
	DataAccessSessionOnly    DataAccess = "session_only"
	DataAccessTenantReadonly DataAccess = "tenant_readonly"
	DataAccessTenantWrite    DataAccess = "tenant_write"
)

// Permissions declares what a tool is allowed to touch and its expected
// cost.
type Permissions struct {
	DataAccess         DataAccess
	NetworkAccess      bool
	EstimatedCostCents int64
}

// Limits bounds a tool's execution.
type Limits struct {
	Timeout         time.Duration
	MaxPayloadBytes int
}

// Result is a tool's outcome.
type Result struct {
	Success bool
	Data    domain.JSON
	Error   string
}

// Tool is one named callable unit.
type Tool interface {
	Name() string
	Description() string
	ParametersSchema() domain.JSON
	Permissions() Permissions
	Limits() Limits
	Execute(ctx context.Context, args domain.JSON) (Result, error)
}

// AuditRecorder persists a ToolExecution row. Audit-row failure must not
// fail the enclosing message — Registry.Invoke logs and proceeds, so
// it swallows the audit error after logging.
type AuditRecorder interface {
	RecordToolExecution(ctx context.Context, exec domain.ToolExecution) error
}

// Registry is the name-keyed catalog of tools.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a registry with the InvoiceLookup reference tool
// registered.
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	r.Register(NewInvoiceLookup())
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Invocation is one call() invocation of a registered tool.
type Invocation struct {
	SessionID     string
	MessageID     string
	CorrelationID string
	ToolCall      domain.ToolCall
	EnabledTools  []string
}

// Invoke runs the named tool under its declared timeout, enforcing the
// agent's enabled-tools allowlist, and always writes a
// ToolExecution audit row via recorder before returning.
func (r *Registry) Invoke(ctx context.Context, inv Invocation, recorder AuditRecorder) (Result, error) {
	if !contains(inv.EnabledTools, inv.ToolCall.Name) {
		return Result{}, apperrors.Forbidden("tool " + inv.ToolCall.Name + " is not enabled for this agent")
	}
	tool, ok := r.tools[inv.ToolCall.Name]
	if !ok {
		return Result{}, apperrors.NotFound("tool " + inv.ToolCall.Name + " is not registered")
	}

	limits := tool.Limits()
	callCtx, cancel := context.WithTimeout(ctx, limits.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		res, err := tool.Execute(callCtx, inv.ToolCall.Args)
		if err != nil {
			res = Result{Success: false, Error: err.Error()}
		}
		done <- res
	}()

	var result Result
	status := domain.ToolExecutionSuccess
	var errMsg *string

	select {
	case result = <-done:
		if !result.Success {
			status = domain.ToolExecutionFailed
			errMsg = &result.Error
		}
	case <-callCtx.Done():
		status = domain.ToolExecutionTimeout
		msg := "tool execution exceeded its timeout"
		errMsg = &msg
		result = Result{Success: false, Error: msg}
	}

	latency := time.Since(start)
	exec := domain.ToolExecution{
		SessionID:     inv.SessionID,
		MessageID:     inv.MessageID,
		CorrelationID: inv.CorrelationID,
		ToolName:      inv.ToolCall.Name,
		ToolInput:     inv.ToolCall.Args,
		Status:        status,
		ErrorMessage:  errMsg,
		LatencyMs:     int(latency.Milliseconds()),
		CostCents:     tool.Permissions().EstimatedCostCents,
	}
	if result.Data != nil {
		out := result.Data
		exec.ToolOutput = &out
	}
	if recorder != nil {
		if err := recorder.RecordToolExecution(ctx, exec); err != nil {
			// Deliberately not surfaced: an audit-write failure must not
			// fail the enclosing message.
			logAuditFailure(inv.CorrelationID, err)
		}
	}

	return result, nil
}

func logAuditFailure(correlationID string, err error) {
	logger.WithCorrelation(correlationID).WithError(err).Warn("failed to persist tool execution audit record")
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}
