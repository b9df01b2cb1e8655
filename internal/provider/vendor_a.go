package provider

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

// vendorAWireResponse is Vendor A's raw wire shape, used only to build and
// validate a declared schema before translation.
type vendorAWireResponse struct {
	ID      string `json:"id" jsonschema:"required"`
	Content string `json:"content" jsonschema:"required"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens" jsonschema:"required"`
		CompletionTokens int `json:"completion_tokens" jsonschema:"required"`
	} `json:"usage" jsonschema:"required"`
}

var vendorASchema = schemaFor(vendorAWireResponse{})

// VendorA is a mocked adapter with the following fault profile:
// 50-200ms base latency, 5% of calls add a 1-3s spike, 10%
// return a retryable PROVIDER_ERROR with an HTTP-500-equivalent code.
type VendorA struct {
	rng *rand.Rand
}

// NewVendorA constructs a Vendor A adapter, grounded on the teacher's
// NewOpenRouterProvider constructor shape (internal/service/llm/openrouter.go).
func NewVendorA() *VendorA {
	return &VendorA{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (v *VendorA) Name() domain.ProviderName { return domain.ProviderVendorA }

func (v *VendorA) Send(ctx context.Context, req Request) (Response, error) {
	baseLatency := 50 + v.rng.Intn(151)
	if v.rng.Float64() < 0.05 {
		baseLatency += 1000 + v.rng.Intn(2001)
	}

	select {
	case <-time.After(time.Duration(baseLatency) * time.Millisecond):
	case <-ctx.Done():
		return Response{}, apperrors.Timeout("vendor A call exceeded deadline", ctx.Err())
	}

	if v.rng.Float64() < 0.10 {
		return Response{}, apperrors.Provider("vendor A returned HTTP 500", true, nil)
	}

	raw := vendorAWireResponse{ID: "vendor-a-" + randomID(v.rng)}
	if isFollowUpTurn(req) {
		raw.Content = answerFromToolResults(req.Messages)
	} else if content, ok := lastUserMessage(req.Messages); ok {
		if orderID, found := detectOrderID(content); found {
			raw.Content = ""
			return v.respondWithToolCall(raw, orderID, baseLatency)
		}
		raw.Content = "Acknowledged: " + content
	}
	raw.Usage.PromptTokens = estimateTokens(req)
	raw.Usage.CompletionTokens = estimateTokens(Request{Messages: []Message{{Content: raw.Content}}})

	payload, err := json.Marshal(raw)
	if err != nil {
		return Response{}, apperrors.Internal("marshaling vendor A response", err)
	}
	if err := validateRaw(vendorASchema, payload); err != nil {
		return Response{}, err
	}

	return Response{
		Content:   raw.Content,
		TokensIn:  raw.Usage.PromptTokens,
		TokensOut: raw.Usage.CompletionTokens,
		LatencyMs: baseLatency,
	}, nil
}

func (v *VendorA) respondWithToolCall(raw vendorAWireResponse, orderID string, latencyMs int) (Response, error) {
	raw.Usage.PromptTokens = 20
	raw.Usage.CompletionTokens = 5
	payload, err := json.Marshal(raw)
	if err != nil {
		return Response{}, apperrors.Internal("marshaling vendor A response", err)
	}
	if err := validateRaw(vendorASchema, payload); err != nil {
		return Response{}, err
	}
	return Response{
		TokensIn:  raw.Usage.PromptTokens,
		TokensOut: raw.Usage.CompletionTokens,
		LatencyMs: latencyMs,
		ToolCalls: []domain.ToolCall{buildInvoiceToolCall(orderID)},
	}, nil
}

func estimateTokens(req Request) int {
	total := 0
	for _, m := range req.Messages {
		total += len(m.Content) / 4
	}
	if total == 0 {
		total = 1
	}
	return total
}

func randomID(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 12)
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}
