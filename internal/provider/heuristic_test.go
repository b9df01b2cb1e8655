package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

func TestLastUserMessage_FindsMostRecentUserTurn(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
	}
	content, ok := lastUserMessage(messages)
	require.True(t, ok)
	assert.Equal(t, "second", content)
}

func TestLastUserMessage_NoneFound(t *testing.T) {
	_, ok := lastUserMessage([]Message{{Role: RoleAssistant, Content: "hi"}})
	assert.False(t, ok)
}

func TestIsFollowUpTurn_EmptyLastUserMessage(t *testing.T) {
	req := Request{Messages: []Message{
		{Role: RoleUser, Content: "status of order #12345"},
		{Role: RoleTool, Content: ""},
		{Role: RoleUser, Content: ""},
	}}
	assert.True(t, isFollowUpTurn(req))
}

func TestIsFollowUpTurn_NonEmptyLastUserMessage(t *testing.T) {
	req := Request{Messages: []Message{{Role: RoleUser, Content: "hello"}}}
	assert.False(t, isFollowUpTurn(req))
}

func TestDetectOrderID_WithHash(t *testing.T) {
	id, found := detectOrderID("what's the status of order #12345?")
	require.True(t, found)
	assert.Equal(t, "12345", id)
}

func TestDetectOrderID_BareDigits(t *testing.T) {
	id, found := detectOrderID("order 987654 please")
	require.True(t, found)
	assert.Equal(t, "987654", id)
}

func TestDetectOrderID_TooShortNumberIsIgnored(t *testing.T) {
	_, found := detectOrderID("I have 3 items")
	assert.False(t, found)
}

func TestDetectOrderID_NoDigits(t *testing.T) {
	_, found := detectOrderID("hello there")
	assert.False(t, found)
}

func TestBuildInvoiceToolCall(t *testing.T) {
	tc := buildInvoiceToolCall("12345")
	assert.Equal(t, "InvoiceLookup", tc.Name)
	assert.NotEmpty(t, tc.ID)
	assert.Equal(t, "12345", tc.Args.Get("orderId").String())
}

func TestAnswerFromToolResults_WithStatusAndTracking(t *testing.T) {
	result, _ := domain.NewJSON(map[string]string{"status": "shipped", "tracking": "1Z999"})
	messages := []Message{
		{Role: RoleTool, ToolResults: []ToolResult{{ToolCallID: "1", Result: result}}},
	}
	answer := answerFromToolResults(messages)
	assert.Contains(t, answer, "shipped")
	assert.Contains(t, answer, "1Z999")
}

func TestAnswerFromToolResults_WithStatusOnly(t *testing.T) {
	result, _ := domain.NewJSON(map[string]string{"status": "processing"})
	messages := []Message{
		{Role: RoleTool, ToolResults: []ToolResult{{ToolCallID: "1", Result: result}}},
	}
	answer := answerFromToolResults(messages)
	assert.Contains(t, answer, "processing")
	assert.NotContains(t, answer, "Tracking")
}

func TestAnswerFromToolResults_WithError(t *testing.T) {
	messages := []Message{
		{Role: RoleTool, ToolResults: []ToolResult{{ToolCallID: "1", Error: "order not found"}}},
	}
	answer := answerFromToolResults(messages)
	assert.Contains(t, answer, "order not found")
}

func TestAnswerFromToolResults_NoToolMessage(t *testing.T) {
	messages := []Message{{Role: RoleUser, Content: "hi"}}
	answer := answerFromToolResults(messages)
	assert.Equal(t, "I've looked into that for you, but found no additional details.", answer)
}
