// Package auth resolves the caller identity for admin HTTP endpoints from
// bearer API keys configured at startup.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey int

const identityKey contextKey = 0

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	TenantID string
	// Privileged callers may act on any tenant.
	Privileged bool
}

// FromContext returns the Identity set by Middleware, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}

// Keyring holds the configured API keys.
type Keyring struct {
	// tenantKeys maps API key -> tenant id.
	tenantKeys map[string]string
	adminKey   string
}

// NewKeyring builds a Keyring from configured keys. An empty adminKey
// disables the privileged bypass entirely.
func NewKeyring(tenantKeys map[string]string, adminKey string) *Keyring {
	return &Keyring{tenantKeys: tenantKeys, adminKey: adminKey}
}

// Resolve maps a bearer key to an Identity, or nil when the key is unknown.
func (k *Keyring) Resolve(key string) *Identity {
	if key == "" {
		return nil
	}
	if k.adminKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(k.adminKey)) == 1 {
		return &Identity{Privileged: true}
	}
	if tenant, ok := k.tenantKeys[key]; ok {
		return &Identity{TenantID: tenant}
	}
	return nil
}

// Middleware authenticates requests via Authorization: Bearer and stores the
// resolved Identity on the request context. Unknown or missing keys get 401.
func (k *Keyring) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := k.Resolve(bearerToken(r))
		if id == nil {
			zap.L().Debug("auth: rejected request",
				zap.String("component", "auth"),
				zap.String("path", r.URL.Path),
			)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// Authorize reports whether the identity may act on the given tenant.
func (id *Identity) Authorize(tenant string) bool {
	if id == nil {
		return false
	}
	return id.Privileged || id.TenantID == tenant
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
