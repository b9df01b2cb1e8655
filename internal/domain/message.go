package domain

import "time"

// MessageRole is who produced a transcript entry.
type MessageRole string

const (
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
	RoleSystem    MessageRole = "SYSTEM"
	RoleTool      MessageRole = "TOOL"
)

// ToolCall is a structured request emitted by the assistant to invoke a
// named function. Args is a free-form structured value.
type ToolCall struct {
	ID   string
	Name string
	Args JSON
}

// Message is one entry in a session transcript. ProviderCallID is a
// non-owning back-reference: Message does not embed the
// ProviderCall it is attached to, it only points at it, and a
// ProviderCall can exist with no Message pointing at it at all (e.g. a
// failed attempt that never produced a persisted assistant turn).
type Message struct {
	ID              string
	SessionID       string
	SequenceNumber  int
	IdempotencyKey  *string
	Role            MessageRole
	Content         string
	ToolCalls       []ToolCall
	ProviderCallID  *string
	AudioArtifactID *string
	CreatedAt       time.Time
}
