package middleware

import (
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/aaronli/rdt/internal/auth"
)

// RateLimitMiddleware throttles requests with one token-bucket limiter per
// operator, so one noisy job submitter can't starve another's poll/list
// traffic. Requests without a valid bearer token (rejected downstream by
// JWTMiddleware) are bucketed by remote address instead, so an unauthenticated
// flood still gets throttled rather than landing in a shared, unkeyed bucket.
func RateLimitMiddleware(manager *auth.Manager, r int, burst int) func(http.HandlerFunc) http.HandlerFunc {
	limiters := &keyedLimiters{
		byKey: make(map[string]*rate.Limiter),
		rate:  rate.Limit(r),
		burst: burst,
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			if !limiters.forKey(rateLimitKey(manager, req)).Allow() {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next(w, req)
		}
	}
}

// rateLimitKey returns the operator identity from req's bearer token, or
// req's remote address when there isn't one.
func rateLimitKey(manager *auth.Manager, req *http.Request) string {
	if tokenString := extractBearerToken(req); tokenString != "" {
		if claims, err := manager.VerifyToken(tokenString); err == nil {
			return "operator:" + claims.Operator
		}
	}
	return "addr:" + req.RemoteAddr
}

type keyedLimiters struct {
	mu    sync.Mutex
	byKey map[string]*rate.Limiter
	rate  rate.Limit
	burst int
}

func (k *keyedLimiters) forKey(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	limiter, ok := k.byKey[key]
	if !ok {
		limiter = rate.NewLimiter(k.rate, k.burst)
		k.byKey[key] = limiter
	}
	return limiter
}
