package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/aaronli/rdt/internal/controlplane/svc"
	"github.com/aaronli/rdt/internal/jobs"
)

func newTestServiceContext(t *testing.T) *svc.ServiceContext {
	logger := zaptest.NewLogger(t)
	return &svc.ServiceContext{
		Logger: logger,
		Jobs:   jobs.NewManager(jobs.NewMemoryStore(), logger),
	}
}

func TestSubmitJobHandlerRejectsUnknownProtocol(t *testing.T) {
	ctx := newTestServiceContext(t)
	body, _ := json.Marshal(SubmitJobRequest{Protocol: "tcp", PeerAddr: "127.0.0.1:9000", FilePath: "/tmp/a"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()

	SubmitJobHandler(ctx)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSubmitJobHandlerRejectsMissingFields(t *testing.T) {
	ctx := newTestServiceContext(t)
	body, _ := json.Marshal(SubmitJobRequest{Protocol: "gbn"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()

	SubmitJobHandler(ctx)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSubmitJobHandlerSuccess(t *testing.T) {
	ctx := newTestServiceContext(t)
	body, _ := json.Marshal(SubmitJobRequest{Protocol: "sr", PeerAddr: "127.0.0.1:9000", FilePath: "/tmp/a"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()

	SubmitJobHandler(ctx)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response failed: %v", err)
	}
	if resp.Code != 0 {
		t.Errorf("Code = %d, want 0", resp.Code)
	}
}

func TestListJobsHandlerFiltersByState(t *testing.T) {
	ctx := newTestServiceContext(t)
	if _, err := ctx.Jobs.Submit(context.Background(), jobs.ProtocolGBN, "127.0.0.1:9000", "/tmp/a"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?state=PENDING", nil)
	w := httptest.NewRecorder()

	ListJobsHandler(ctx)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestListJobsHandlerRejectsUnknownState(t *testing.T) {
	ctx := newTestServiceContext(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?state=BOGUS", nil)
	w := httptest.NewRecorder()

	ListJobsHandler(ctx)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
