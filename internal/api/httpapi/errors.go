package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/correlation"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/logger"
)

// errorBody is the uniform error envelope every handler returns.
type errorBody struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	Details       any    `json:"details,omitempty"`
	CorrelationID string `json:"correlationId"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// writeJSON encodes v as the response body, generalizing the teacher's
// json.NewEncoder(w).Encode(...) call sites (internal/api/handlers/chat.go)
// into a single helper that always sets the content type first.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err as the uniform error envelope, generalizing the
// teacher's auth.sendError/ChatHandlers.sendError pair into a single
// dispatch on apperrors.Kind instead of a caller-supplied HTTP status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	correlationID := correlation.FromContext(r.Context())
	kind := apperrors.KindOf(err)
	status := kind.StatusCode()

	body := errorBody{
		Code:          string(kind),
		Message:       err.Error(),
		CorrelationID: correlationID,
	}
	if e, ok := apperrors.As(err); ok {
		body.Message = e.Message
		if e.Kind != apperrors.KindProviderSchema {
			body.Details = e.Details
		}
	}

	if status >= 500 {
		logger.WithCorrelation(correlationID).WithError(err).Error("request failed")
	} else {
		logger.WithCorrelation(correlationID).WithError(err).Warn("request rejected")
	}

	writeJSON(w, status, errorEnvelope{Error: body})
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, apperrors.Validation(message))
}
