// Package provider handles per-vendor translation between the neutral
// request/response shape and each vendor's wire shape, with defensive
// schema validation, grounded on the teacher's LLMProvider interface split
// (internal/service/llm/llm_interface.go) generalized from a single
// concrete OpenRouter client to an Adapter contract with two mocked
// vendor personalities.
package provider

import (
	"context"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

// MessageRole mirrors domain.MessageRole but lower-cased, matching the
// neutral wire shape adapters translate to and from.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleTool      MessageRole = "tool"
)

// ToolResult is the outcome of a tool invocation attached to a tool-role
// Message in a follow-up request.
type ToolResult struct {
	ToolCallID string
	Result     domain.JSON
	Error      string
}

// Message is one neutral conversation turn.
type Message struct {
	Role        MessageRole
	Content     string
	ToolCalls   []domain.ToolCall
	ToolResults []ToolResult
}

// ToolSpec is the catalog entry an adapter advertises to the vendor for a
// given call, restricted by the agent's enabled-tools set.
type ToolSpec struct {
	Name             string
	Description      string
	ParametersSchema domain.JSON
}

// Request is the neutral request shape adapters translate from.
type Request struct {
	SystemPrompt string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
	Tools        []ToolSpec
}

// Response is the neutral response shape adapters translate into.
type Response struct {
	Content   string
	TokensIn  int
	TokensOut int
	LatencyMs int
	ToolCalls []domain.ToolCall
}

// Adapter is the per-vendor contract. Adapters must not retry internally;
// retry policy lives entirely in the orchestrator.
type Adapter interface {
	Name() domain.ProviderName
	Send(ctx context.Context, req Request) (Response, error)
}
