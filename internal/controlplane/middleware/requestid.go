package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the header carrying the per-request trace ID.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware stamps every request with a request ID, reusing one
// supplied by the caller or generating a new one.
func RequestIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				requestID = "unknown"
			} else {
				requestID = id.String()
			}
		}

		w.Header().Set(RequestIDHeader, requestID)
		r = r.WithContext(requestIDToContext(r.Context(), requestID))
		next(w, r)
	}
}
