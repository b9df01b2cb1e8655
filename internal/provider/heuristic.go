package provider

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

// orderIDPattern matches a bare run of 4+ digits, optionally preceded by
// "#" or "order" — enough to recognize "status of order #12345" for
// the InvoiceLookup heuristic.
var orderIDPattern = regexp.MustCompile(`#?(\d{4,})`)

// lastUserMessage returns the last user-role message's content and
// whether one was found at all.
func lastUserMessage(messages []Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content, true
		}
	}
	return "", false
}

// isFollowUpTurn reports whether req is the second, tool-result-bearing
// call in a tool loop: its last user turn is present but empty, the
// marker of a follow-up neutral request built with an empty final
// user turn.
func isFollowUpTurn(req Request) bool {
	content, ok := lastUserMessage(req.Messages)
	return ok && content == ""
}

// detectOrderID extracts a numeric order id from free text, if any.
func detectOrderID(content string) (string, bool) {
	m := orderIDPattern.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// buildInvoiceToolCall produces a toolCall requesting InvoiceLookup for
// the given order id.
func buildInvoiceToolCall(orderID string) domain.ToolCall {
	args, _ := domain.NewJSON(map[string]string{"orderId": orderID})
	return domain.ToolCall{
		ID:   uuid.New().String(),
		Name: "InvoiceLookup",
		Args: args,
	}
}

// answerFromToolResults renders a natural-language answer from the tool
// results attached to the most recent tool-role message, producing a
// natural-language answer on a follow-up call instead of another tool
// call.
func answerFromToolResults(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role != RoleTool || len(msg.ToolResults) == 0 {
			continue
		}
		tr := msg.ToolResults[0]
		if tr.Error != "" {
			return fmt.Sprintf("I couldn't find that order: %s", tr.Error)
		}
		status := tr.Result.Get("status").String()
		tracking := tr.Result.Get("tracking").String()
		if status == "" {
			return "Here's what I found for your order."
		}
		if tracking != "" {
			return fmt.Sprintf("Your order is currently %s. Tracking number: %s.", status, tracking)
		}
		return fmt.Sprintf("Your order is currently %s.", status)
	}
	return "I've looked into that for you, but found no additional details."
}
