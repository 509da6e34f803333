package handler

import (
	"net/http"
	"time"

	"github.com/aaronli/rdt/internal/controlplane/svc"
)

// HealthResponse reports process liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

// HealthCheckHandler always reports UP once the process is serving requests.
func HealthCheckHandler(ctx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SuccessResponse(w, r, HealthResponse{
			Status:    "UP",
			Timestamp: time.Now(),
			Service:   "rdt-controlplane",
		})
	}
}
