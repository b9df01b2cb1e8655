// Package pipeline is the central message-send algorithm: idempotency check, lock,
// history, provider call, tool loop, persistence, billing — in that
// order. It is grounded on the teacher's
// ConversationService.SendMessage (internal/service/conversation.go),
// generalized from a single-provider chat turn into the full
// lock/retry/tool/bill pipeline.
package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/billing"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/logger"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/orchestrator"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/provider"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/repository"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/sessionlock"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/tools"
)

// SendMessageInput is the message-send pipeline's input, mirroring the teacher's
// SendMessageRequest shape (pkg/validation/chat.go, now removed) widened
// with the tenant/session routing the gateway requires.
type SendMessageInput struct {
	TenantID       string
	SessionID      string
	Content        string
	IdempotencyKey *string
	CorrelationID  string
}

// SendMessageOutput is the message-send pipeline's output: the assistant's final message plus
// the metadata bundle callers need for billing and observability.
type SendMessageOutput struct {
	Message       domain.Message
	Provider      domain.ProviderName
	TokensIn      int
	TokensOut     int
	LatencyMs     int
	UsedFallback  bool
	CorrelationID string
}

// Pipeline wires the session lock, orchestrator, tool registry, and
// billing recorder together.
type Pipeline struct {
	store       repository.Store
	locker      sessionlock.Locker
	orch        *orchestrator.Orchestrator
	toolReg     *tools.Registry
	billing     *billing.Recorder
	maxHistory  int
	lockTimeout time.Duration
}

func New(store repository.Store, locker sessionlock.Locker, orch *orchestrator.Orchestrator, toolReg *tools.Registry, maxHistory int, lockTimeout time.Duration) *Pipeline {
	return &Pipeline{
		store:       store,
		locker:      locker,
		orch:        orch,
		toolReg:     toolReg,
		billing:     billing.New(store),
		maxHistory:  maxHistory,
		lockTimeout: lockTimeout,
	}
}

// toolResultEnvelope is how a TOOL message's content field encodes a
// single tool invocation's outcome; the TOOL message carries no
// tool-result-specific column.
type toolResultEnvelope struct {
	ID     string      `json:"id"`
	Result domain.JSON `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// SendMessage runs the full message-send algorithm.
func (p *Pipeline) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	log := logger.WithCorrelation(in.CorrelationID)

	// Step 1: idempotency pre-check, no lock, no provider call, no billing.
	if in.IdempotencyKey != nil {
		if out, err := p.shortCircuit(ctx, in.SessionID, *in.IdempotencyKey, in.CorrelationID); err != nil {
			return nil, err
		} else if out != nil {
			return out, nil
		}
	}

	// Step 2: lock.
	release, err := p.locker.Acquire(ctx, in.SessionID, p.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	// Step 3: load context.
	sess, err := p.store.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != domain.SessionActive {
		return nil, apperrors.Validation("session is not active")
	}
	agent, err := p.store.GetAgent(ctx, sess.AgentID)
	if err != nil {
		return nil, err
	}

	// Step 4: build history.
	history, err := p.store.ListMessages(ctx, in.SessionID, p.maxHistory)
	if err != nil {
		return nil, err
	}

	// Step 6: persist user message (sequence allocation happens here).
	userMsg, err := p.persistUserMessage(ctx, in)
	if err != nil {
		if e, ok := apperrors.As(err); ok && e.Kind == apperrors.KindConflict {
			// A concurrent caller raced us with the same idempotency
			// key; re-drive the short-circuit.
			if in.IdempotencyKey != nil {
				if out, scErr := p.shortCircuit(ctx, in.SessionID, *in.IdempotencyKey, in.CorrelationID); scErr == nil && out != nil {
					return out, nil
				}
			}
		}
		return nil, err
	}

	// Step 5: compose request.
	req := p.composeRequest(agent, history, in.Content)

	// Step 7: call orchestrator, persist the ProviderCall.
	outcome := p.orch.Run(ctx, agent.PrimaryProvider, agent.FallbackProvider, req)
	pc, err := p.persistProviderCalls(ctx, in.SessionID, in.CorrelationID, outcome)
	if err != nil {
		return nil, err
	}
	if !outcome.Success {
		log.WithField("provider", outcome.Provider).Warn("all provider attempts failed")
		return nil, apperrors.Provider("all provider attempts failed", false, outcome.FinalError)
	}

	if err := p.bill(ctx, sess, agent, pc); err != nil {
		log.WithError(err).Error("billing the primary provider call failed")
		return nil, err
	}

	finalResp := outcome.Response
	finalPC := pc

	// Step 8: tool-call loop.
	if len(finalResp.ToolCalls) > 0 {
		finalResp, finalPC, err = p.runToolLoop(ctx, in, sess, agent, req, finalResp, pc)
		if err != nil {
			return nil, err
		}
	}

	// Step 9: persist final assistant message.
	assistantMsg, err := p.persistAssistantMessage(ctx, in.SessionID, finalResp, finalPC.ID)
	if err != nil {
		return nil, err
	}

	_ = userMsg // the user turn is already durable; referenced for clarity of flow

	return &SendMessageOutput{
		Message:       assistantMsg,
		Provider:      finalPC.Provider,
		TokensIn:      finalPC.TokensIn,
		TokensOut:     finalPC.TokensOut,
		LatencyMs:     finalPC.LatencyMs,
		UsedFallback:  outcome.UsedFallback,
		CorrelationID: in.CorrelationID,
	}, nil
}

// shortCircuit implements step 1: if a USER message with this idempotency
// key already exists, return the ASSISTANT message that followed it.
func (p *Pipeline) shortCircuit(ctx context.Context, sessionID, idempotencyKey, correlationID string) (*SendMessageOutput, error) {
	userMsg, err := p.store.GetMessageByIdempotencyKey(ctx, sessionID, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if userMsg == nil {
		return nil, nil
	}

	history, err := p.store.ListMessages(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}
	for _, m := range history {
		if m.SequenceNumber == userMsg.SequenceNumber+1 && m.Role == domain.RoleAssistant {
			out := &SendMessageOutput{Message: m, CorrelationID: correlationID}
			if m.ProviderCallID != nil {
				if pc, err := p.store.GetProviderCall(ctx, *m.ProviderCallID); err == nil {
					out.Provider = pc.Provider
					out.TokensIn = pc.TokensIn
					out.TokensOut = pc.TokensOut
					out.LatencyMs = pc.LatencyMs
				}
			}
			return out, nil
		}
	}
	return nil, nil
}

func (p *Pipeline) persistUserMessage(ctx context.Context, in SendMessageInput) (domain.Message, error) {
	var out domain.Message
	err := p.store.WithTx(ctx, func(tx *sql.Tx) error {
		m := domain.Message{
			SessionID:      in.SessionID,
			IdempotencyKey: in.IdempotencyKey,
			Role:           domain.RoleUser,
			Content:        in.Content,
		}
		inserted, err := p.store.InsertMessageTx(ctx, tx, m)
		if err != nil {
			return err
		}
		out = inserted
		return nil
	})
	return out, err
}

func (p *Pipeline) composeRequest(agent domain.Agent, history []domain.Message, newContent string) provider.Request {
	req := provider.Request{
		SystemPrompt: agent.SystemPrompt,
		Temperature:  agent.Temperature,
		MaxTokens:    agent.MaxTokens,
		Messages:     historyToNeutral(history),
	}
	req.Messages = append(req.Messages, provider.Message{Role: provider.RoleUser, Content: newContent})
	if len(agent.EnabledTools) > 0 {
		req.Tools = toolCatalog(agent.EnabledTools)
	}
	return req
}

func toolCatalog(enabled []string) []provider.ToolSpec {
	specs := make([]provider.ToolSpec, 0, len(enabled))
	for _, name := range enabled {
		specs = append(specs, provider.ToolSpec{Name: name})
	}
	return specs
}

func historyToNeutral(history []domain.Message) []provider.Message {
	out := make([]provider.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case domain.RoleUser:
			out = append(out, provider.Message{Role: provider.RoleUser, Content: m.Content})
		case domain.RoleAssistant:
			out = append(out, provider.Message{Role: provider.RoleAssistant, Content: m.Content, ToolCalls: m.ToolCalls})
		case domain.RoleTool:
			var env toolResultEnvelope
			if err := json.Unmarshal([]byte(m.Content), &env); err == nil {
				out = append(out, provider.Message{
					Role: provider.RoleTool,
					ToolResults: []provider.ToolResult{
						{ToolCallID: env.ID, Result: env.Result, Error: env.Error},
					},
				})
			}
		}
	}
	return out
}

func (p *Pipeline) persistProviderCalls(ctx context.Context, sessionID, correlationID string, outcome orchestrator.Outcome) (domain.ProviderCall, error) {
	var last domain.ProviderCall
	err := p.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, att := range outcome.Attempts {
			pc := domain.ProviderCall{
				SessionID:     sessionID,
				CorrelationID: correlationID,
				Provider:      att.Provider,
				IsFallback:    att.IsFallback,
				TokensIn:      att.Response.TokensIn,
				TokensOut:     att.Response.TokensOut,
				LatencyMs:     att.Response.LatencyMs,
				Status:        att.Status,
				ErrorCode:     att.ErrorCode,
				ErrorMessage:  att.ErrorMessage,
				AttemptNumber: att.AttemptNumber,
			}
			inserted, err := p.store.InsertProviderCallTx(ctx, tx, pc)
			if err != nil {
				return err
			}
			last = inserted
		}
		return nil
	})
	return last, err
}

func (p *Pipeline) bill(ctx context.Context, sess domain.Session, agent domain.Agent, pc domain.ProviderCall) error {
	return p.store.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := p.billing.RecordTx(ctx, tx, sess.TenantID, agent.ID, sess.DemoMode, pc)
		return err
	})
}

func (p *Pipeline) persistAssistantMessage(ctx context.Context, sessionID string, resp provider.Response, providerCallID string) (domain.Message, error) {
	var out domain.Message
	err := p.store.WithTx(ctx, func(tx *sql.Tx) error {
		m := domain.Message{
			SessionID:      sessionID,
			Role:           domain.RoleAssistant,
			Content:        resp.Content,
			ToolCalls:      resp.ToolCalls,
			ProviderCallID: &providerCallID,
		}
		inserted, err := p.store.InsertMessageTx(ctx, tx, m)
		if err != nil {
			return err
		}
		out = inserted
		return nil
	})
	return out, err
}

// runToolLoop implements step 8: persist the interim assistant turn,
// invoke every requested tool, persist a TOOL message per call, then
// re-run the orchestrator once with the enriched history. At least one
// round is always run once a tool call is requested.
func (p *Pipeline) runToolLoop(ctx context.Context, in SendMessageInput, sess domain.Session, agent domain.Agent, req provider.Request, resp provider.Response, firstPC domain.ProviderCall) (provider.Response, domain.ProviderCall, error) {
	pcID := firstPC.ID
	if _, err := p.persistAssistantMessage(ctx, in.SessionID, resp, pcID); err != nil {
		return provider.Response{}, domain.ProviderCall{}, err
	}

	for _, tc := range resp.ToolCalls {
		result, err := p.toolReg.Invoke(ctx, tools.Invocation{
			SessionID:     in.SessionID,
			CorrelationID: in.CorrelationID,
			ToolCall:      tc,
			EnabledTools:  agent.EnabledTools,
		}, p.store)

		env := toolResultEnvelope{ID: tc.ID}
		if err != nil {
			if e, ok := apperrors.As(err); ok {
				env.Error = e.Message
			} else {
				env.Error = err.Error()
			}
		} else if !result.Success {
			env.Error = result.Error
		} else {
			env.Result = result.Data
		}

		content, marshalErr := json.Marshal(env)
		if marshalErr != nil {
			return provider.Response{}, domain.ProviderCall{}, apperrors.Internal("marshaling tool result envelope", marshalErr)
		}

		if err := p.store.WithTx(ctx, func(tx *sql.Tx) error {
			_, err := p.store.InsertMessageTx(ctx, tx, domain.Message{
				SessionID: in.SessionID,
				Role:      domain.RoleTool,
				Content:   string(content),
			})
			return err
		}); err != nil {
			return provider.Response{}, domain.ProviderCall{}, err
		}
	}

	history, err := p.store.ListMessages(ctx, in.SessionID, p.maxHistory)
	if err != nil {
		return provider.Response{}, domain.ProviderCall{}, err
	}
	followUp := provider.Request{
		SystemPrompt: agent.SystemPrompt,
		Temperature:  agent.Temperature,
		MaxTokens:    agent.MaxTokens,
		Messages:     append(historyToNeutral(history), provider.Message{Role: provider.RoleUser, Content: ""}),
		Tools:        req.Tools,
	}

	outcome := p.orch.Run(ctx, agent.PrimaryProvider, agent.FallbackProvider, followUp)
	pc, err := p.persistProviderCalls(ctx, in.SessionID, in.CorrelationID, outcome)
	if err != nil {
		return provider.Response{}, domain.ProviderCall{}, err
	}
	if !outcome.Success {
		return provider.Response{}, domain.ProviderCall{}, apperrors.Provider("follow-up provider attempt failed after tool execution", false, outcome.FinalError)
	}
	if err := p.bill(ctx, sess, agent, pc); err != nil {
		return provider.Response{}, domain.ProviderCall{}, err
	}

	return outcome.Response, pc, nil
}
