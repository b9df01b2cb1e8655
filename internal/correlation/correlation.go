// Package correlation generates and threads the correlation id carried
// on every request, log line, and ProviderCall/Job
// row. It generalizes the teacher's auth.AuthMiddleware context-value
// injection (internal/auth/auth.go's context.WithValue(ctx, UserContextKey,
// ...)) to a second context key carrying this id instead of a username.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const idKey contextKey = "correlation_id"

// HeaderName is the inbound/outbound HTTP header carrying the id.
const HeaderName = "X-Correlation-Id"

// New generates a fresh correlation id.
func New() string {
	return uuid.New().String()
}

// WithID returns a context carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}

// FromContext extracts the correlation id, generating one if absent so
// callers never have to nil-check.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(idKey).(string); ok && id != "" {
		return id
	}
	return New()
}
