package domain

import "time"

// ToolExecutionStatus is the outcome of one tool invocation.
type ToolExecutionStatus string

const (
	ToolExecutionSuccess ToolExecutionStatus = "SUCCESS"
	ToolExecutionFailed  ToolExecutionStatus = "FAILED"
	ToolExecutionTimeout ToolExecutionStatus = "TIMEOUT"
)

// ToolExecution is an audit record for one tool invocation.
type ToolExecution struct {
	ID            string
	SessionID     string
	MessageID     string
	CorrelationID string
	ToolName      string
	ToolInput     JSON
	ToolOutput    *JSON
	Status        ToolExecutionStatus
	ErrorMessage  *string
	LatencyMs     int
	CostCents     int64
	CreatedAt     time.Time
}

// AudioArtifactType says which side of the conversation produced the audio.
type AudioArtifactType string

const (
	AudioUserInput      AudioArtifactType = "USER_INPUT"
	AudioAssistantOutput AudioArtifactType = "ASSISTANT_OUTPUT"
)

// AudioArtifact is opaque stored audio referenced by a voice-channel
// Message; the core treats it as an opaque artifact plus metadata, never
// decoding the audio itself.
type AudioArtifact struct {
	ID         string
	SessionID  string
	Type       AudioArtifactType
	FilePath   *string
	FileSize   *int64
	DurationMs *int
	Format     *string
	SampleRate *int
	Provider   *string
	Transcript *string
	LatencyMs  *int
	CreatedAt  time.Time
}
