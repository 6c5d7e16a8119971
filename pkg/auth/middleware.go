// Package auth is the identity collaborator boundary. Addresses arrive
// pre-verified by an upstream gateway; this package only resolves the
// address header into the request context and applies per-address rate
// limiting. No signature or credential verification happens here.
package auth

import (
	"context"
	"net/http"
	"strings"

	"nodechat/pkg/logger"
)

// AddressHeader carries the verified requester address.
const AddressHeader = "X-Nodechat-Address"

type ctxAddressKey struct{}

// Middleware resolves the requester address and rate-limits per address
// (falling back to the remote address for anonymous readers).
func Middleware(cfg SecConfig) func(http.Handler) http.Handler {
	pool := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := strings.TrimSpace(r.Header.Get(AddressHeader))
			key := addr
			if key == "" {
				key = r.RemoteAddr
			}
			if !pool.Allow(key) {
				logger.Warn("transport_rate_limited", "key", key, "path", r.URL.Path)
				http.Error(w, `{"error":"too many requests"}`, http.StatusTooManyRequests)
				return
			}
			ctx := context.WithValue(r.Context(), ctxAddressKey{}, addr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AddressFromContext returns the verified requester address or empty string
// for anonymous callers.
func AddressFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxAddressKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
