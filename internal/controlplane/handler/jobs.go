package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/rest/pathvar"
	"go.uber.org/zap"

	"github.com/aaronli/rdt/internal/controlplane/svc"
	"github.com/aaronli/rdt/internal/jobs"
)

// SubmitJobRequest is the POST /jobs request body.
type SubmitJobRequest struct {
	Protocol string `json:"protocol"`
	PeerAddr string `json:"peer_addr"`
	FilePath string `json:"file_path"`
}

// SubmitJobHandler registers a new transfer job in StatePending.
func SubmitJobHandler(ctx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ErrorResponse(w, r, http.StatusBadRequest, "malformed request body")
			return
		}

		protocol := jobs.Protocol(req.Protocol)
		if protocol != jobs.ProtocolGBN && protocol != jobs.ProtocolSR {
			ErrorResponse(w, r, http.StatusBadRequest, "protocol must be gbn or sr")
			return
		}
		if req.PeerAddr == "" || req.FilePath == "" {
			ErrorResponse(w, r, http.StatusBadRequest, "peer_addr and file_path are required")
			return
		}

		job, err := ctx.Jobs.Submit(r.Context(), protocol, req.PeerAddr, req.FilePath)
		if err != nil {
			ctx.Logger.Error("submitting job failed", zap.Error(err))
			ErrorResponse(w, r, http.StatusInternalServerError, "failed to submit job")
			return
		}
		SuccessResponse(w, r, job)
	}
}

// GetJobHandler looks up a single job by its path ID.
func GetJobHandler(ctx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseJobID(w, r)
		if !ok {
			return
		}

		job, err := ctx.Jobs.Get(r.Context(), id)
		if err != nil {
			if err == jobs.ErrNotFound {
				ErrorResponse(w, r, http.StatusNotFound, "job not found")
				return
			}
			ErrorResponse(w, r, http.StatusInternalServerError, "failed to fetch job")
			return
		}
		SuccessResponse(w, r, job)
	}
}

// ListJobsHandler lists jobs, optionally filtered by state and paginated
// with ?limit=&offset=.
func ListJobsHandler(ctx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := &jobs.Filter{}

		if s := r.URL.Query().Get("state"); s != "" {
			state, ok := parseState(s)
			if !ok {
				ErrorResponse(w, r, http.StatusBadRequest, "unknown state filter")
				return
			}
			filter.State = &state
		}
		if l := r.URL.Query().Get("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil {
				filter.Limit = n
			}
		}
		if o := r.URL.Query().Get("offset"); o != "" {
			if n, err := strconv.Atoi(o); err == nil {
				filter.Offset = n
			}
		}

		list, total, err := ctx.Jobs.List(r.Context(), filter)
		if err != nil {
			ErrorResponse(w, r, http.StatusInternalServerError, "failed to list jobs")
			return
		}
		SuccessResponse(w, r, map[string]interface{}{
			"jobs":  list,
			"total": total,
		})
	}
}

func parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vars := pathvar.Vars(r)
	idStr, ok := vars["id"]
	if !ok || idStr == "" {
		ErrorResponse(w, r, http.StatusBadRequest, "missing job id")
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		ErrorResponse(w, r, http.StatusBadRequest, "malformed job id")
		return uuid.UUID{}, false
	}
	return id, true
}

func parseState(s string) (jobs.State, bool) {
	switch s {
	case "PENDING":
		return jobs.StatePending, true
	case "RUNNING":
		return jobs.StateRunning, true
	case "DONE":
		return jobs.StateDone, true
	case "FAILED":
		return jobs.StateFailed, true
	default:
		return 0, false
	}
}
