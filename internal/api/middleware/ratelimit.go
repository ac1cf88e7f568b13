// internal/api/middleware/ratelimit.go
package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"

	"wallet-ledger/pkg/ratelimit"

	"go.uber.org/zap"
)

// Limiter counts requests per key. *ratelimit.RedisLimiter implements it.
type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

// KeyFunc selects the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// ByClientIP keys requests by remote address. RealIP should run first.
func ByClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ByOwner keys requests by the authenticated owner, falling back to the client IP.
func ByOwner(r *http.Request) string {
	if ownerID, ok := OwnerIDFromContext(r.Context()); ok {
		return "owner:" + ownerID
	}
	return "ip:" + ByClientIP(r)
}

// RateLimit rejects requests over the limiter's quota with 429 and sets RateLimit-* headers.
// When the limiter itself fails the request is let through.
func RateLimit(limiter Limiter, keyFunc KeyFunc, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			resetSeconds := strconv.Itoa(int(math.Ceil(result.ResetIn.Seconds())))
			w.Header().Set("RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("RateLimit-Reset", resetSeconds)

			if !result.Allowed {
				w.Header().Set("Retry-After", resetSeconds)
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
