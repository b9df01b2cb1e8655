package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/correlation"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/logger"
)

// enableCORS is the teacher's cmd/server/main.go helper of the same name,
// carried unchanged: permissive CORS is fine for a service with no
// browser-session cookies to leak.
func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Correlation-Id, X-Idempotency-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	}
}

// withCorrelation reads X-Correlation-Id or generates one, stores it in the
// request context, and echoes it on the response, grounded
// on the teacher's AuthMiddleware context.WithValue pattern but keyed on a
// second, independent context key.
func withCorrelation(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlation.HeaderName)
		if id == "" {
			id = correlation.New()
		}
		w.Header().Set(correlation.HeaderName, id)
		ctx := correlation.WithID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// hashAPIKey returns the SHA-256 hex digest stored/looked-up in api_keys.
// Plain SHA-256 (not bcrypt/argon2) matches the lookup-by-hash design
// literally — the key is high-entropy random
// data, not a human password, so a slow KDF buys nothing here.
func hashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// requireAuth resolves X-API-Key to a Principal, generalizing the
// teacher's Bearer-JWT AuthMiddleware (internal/auth/auth.go) into an
// API-key-hash lookup against the ApiKeyRepo.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plaintext := r.Header.Get("X-API-Key")
		if plaintext == "" {
			writeError(w, r, apperrors.Unauthorized("missing X-API-Key header"))
			return
		}

		key, err := s.store.GetApiKeyByHash(r.Context(), hashAPIKey(plaintext))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !key.IsValid(time.Now()) {
			writeError(w, r, apperrors.Unauthorized("API key is revoked or expired"))
			return
		}

		go func() {
			if err := s.store.TouchApiKeyLastUsed(context.Background(), key.ID, time.Now()); err != nil {
				logger.Log.WithError(err).Warn("failed to touch api key last-used timestamp")
			}
		}()

		principal := Principal{TenantID: key.TenantID, ApiKeyID: key.ID, Role: key.Role}
		logger.WithCorrelation(correlation.FromContext(r.Context())).WithFields(logrus.Fields{
			"tenant_id": principal.TenantID,
			"role":      principal.Role,
		}).Debug("request authenticated")

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	}
}

// requireRole rejects the request unless the authenticated Principal has
// role. It must run behind requireAuth.
func requireRole(role domain.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if !ok || p.Role != role {
			writeError(w, r, apperrors.Forbidden("this operation requires the "+string(role)+" role"))
			return
		}
		next.ServeHTTP(w, r)
	}
}
