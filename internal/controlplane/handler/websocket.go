package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/pathvar"

	"github.com/aaronli/rdt/internal/controlplane/svc"
)

// WebSocketHandler upgrades the connection and subscribes it to the job
// progress feed named by the path's job ID. The native browser WebSocket
// API can't set an Authorization header, so the token travels as a query
// parameter instead and is verified here rather than through JWTMiddleware.
func WebSocketHandler(ctx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := pathvar.Vars(r)
		jobID := vars["id"]
		if jobID == "" {
			http.Error(w, "missing job id", http.StatusBadRequest)
			return
		}

		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		claims, err := ctx.Auth.VerifyToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if claims.JobID != "" && claims.JobID != jobID {
			http.Error(w, "token not scoped to this job", http.StatusForbidden)
			return
		}

		ctx.Progress.HandleWebSocket(jobID)(w, r)
	}
}
