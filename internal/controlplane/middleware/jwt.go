package middleware

import (
	"net/http"
	"strings"

	"github.com/aaronli/rdt/internal/auth"
)

// JWTMiddleware rejects requests without a valid Bearer token, and attaches
// the verified operator/job-scope claims to the request context.
func JWTMiddleware(manager *auth.Manager) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractBearerToken(r)
			if tokenString == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := manager.VerifyToken(tokenString)
			if err != nil {
				switch err {
				case auth.ErrExpiredToken:
					http.Error(w, "token has expired", http.StatusUnauthorized)
				case auth.ErrInvalidSignature:
					http.Error(w, "invalid token signature", http.StatusUnauthorized)
				case auth.ErrMissingClaims:
					http.Error(w, "missing required claims", http.StatusUnauthorized)
				default:
					http.Error(w, "invalid token", http.StatusUnauthorized)
				}
				return
			}

			ctx := operatorToContext(r.Context(), claims.Operator)
			ctx = tokenJobIDToContext(ctx, claims.JobID)
			next(w, r.WithContext(ctx))
		}
	}
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
