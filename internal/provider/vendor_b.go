package provider

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

// vendorBWireResponse is Vendor B's raw wire shape.
type vendorBWireResponse struct {
	RequestID string `json:"request_id" jsonschema:"required"`
	Output    string `json:"output" jsonschema:"required"`
	Tokens    struct {
		Input  int `json:"input" jsonschema:"required"`
		Output int `json:"output" jsonschema:"required"`
	} `json:"tokens" jsonschema:"required"`
}

var vendorBSchema = schemaFor(vendorBWireResponse{})

// VendorB is a mocked adapter with the following fault profile:
// 30-100ms base latency, 5% return RATE_LIMITED with a
// suggested retryAfterMs in [1000, 3000].
type VendorB struct {
	rng *rand.Rand
}

func NewVendorB() *VendorB {
	return &VendorB{rng: rand.New(rand.NewSource(time.Now().UnixNano() + 1))}
}

func (v *VendorB) Name() domain.ProviderName { return domain.ProviderVendorB }

func (v *VendorB) Send(ctx context.Context, req Request) (Response, error) {
	baseLatency := 30 + v.rng.Intn(71)

	select {
	case <-time.After(time.Duration(baseLatency) * time.Millisecond):
	case <-ctx.Done():
		return Response{}, apperrors.Timeout("vendor B call exceeded deadline", ctx.Err())
	}

	if v.rng.Float64() < 0.05 {
		retryAfterMs := 1000 + v.rng.Intn(2001)
		err := apperrors.RateLimited("vendor B is rate limiting this key")
		err.Details = map[string]int{"retryAfterMs": retryAfterMs}
		return Response{}, err
	}

	raw := vendorBWireResponse{RequestID: "vendor-b-" + randomID(v.rng)}
	var toolCalls []domain.ToolCall

	if isFollowUpTurn(req) {
		raw.Output = answerFromToolResults(req.Messages)
	} else if content, ok := lastUserMessage(req.Messages); ok {
		if orderID, found := detectOrderID(content); found {
			toolCalls = []domain.ToolCall{buildInvoiceToolCall(orderID)}
		} else {
			raw.Output = "Acknowledged: " + content
		}
	}

	raw.Tokens.Input = estimateTokens(req)
	if raw.Output != "" {
		raw.Tokens.Output = estimateTokens(Request{Messages: []Message{{Content: raw.Output}}})
	} else {
		raw.Tokens.Output = 5
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return Response{}, apperrors.Internal("marshaling vendor B response", err)
	}
	if err := validateRaw(vendorBSchema, payload); err != nil {
		return Response{}, err
	}

	return Response{
		Content:   raw.Output,
		TokensIn:  raw.Tokens.Input,
		TokensOut: raw.Tokens.Output,
		LatencyMs: baseLatency,
		ToolCalls: toolCalls,
	}, nil
}
