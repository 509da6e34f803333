package handler

import (
	"encoding/json"
	"net/http"

	"github.com/aaronli/rdt/internal/controlplane/middleware"
)

// Response is the envelope every JSON endpoint replies with.
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, resp Response) {
	resp.RequestID = middleware.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// SuccessResponse writes a 200 response carrying data.
func SuccessResponse(w http.ResponseWriter, r *http.Request, data interface{}) {
	writeJSON(w, r, http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// ErrorResponse writes an error response with the given status and message.
func ErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	writeJSON(w, r, statusCode, Response{Code: statusCode, Message: message})
}
