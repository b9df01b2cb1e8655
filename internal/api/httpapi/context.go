// Package httpapi is the gateway's HTTP boundary: routing, auth/RBAC
// middleware, request/response framing, and the uniform error envelope.
// It generalizes the teacher's internal/auth (context-value injection,
// enableCORS wrapper, sendError helper) and internal/api/handlers/chat.go
// (service-backed handler struct) from a single-user JWT chat app to a
// multi-tenant API-key gateway.
package httpapi

import (
	"context"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller, resolved by the auth middleware
// from the X-API-Key header, generalizing the teacher's UserContextKey
// (a bare username) into the tenant/role pair every handler needs.
type Principal struct {
	TenantID string
	ApiKeyID string
	Role     domain.Role
}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// principalFrom extracts the Principal a handler runs as. Handlers behind
// requireAuth may call this unconditionally.
func principalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
