package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestJob(t *testing.T) *Job {
	t.Helper()
	id, err := uuid.NewRandom()
	if err != nil {
		t.Fatalf("uuid.NewRandom: %v", err)
	}
	return &Job{
		JobID:     id,
		Protocol:  ProtocolGBN,
		PeerAddr:  "127.0.0.1:9690",
		FilePath:  "/tmp/in.bin",
		State:     StatePending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestMemoryStoreCreate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	job := newTestJob(t)

	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Create(ctx, job); err == nil {
		t.Error("expected error creating duplicate job")
	}
}

func TestMemoryStoreGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	job := newTestJob(t)
	store.Create(ctx, job)

	got, err := store.Get(ctx, job.JobID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.PeerAddr != job.PeerAddr {
		t.Errorf("PeerAddr = %q, want %q", got.PeerAddr, job.PeerAddr)
	}

	unknown, _ := uuid.NewRandom()
	if _, err := store.Get(ctx, unknown); err == nil {
		t.Error("expected error getting unknown job")
	}
}

func TestMemoryStoreUpdate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	job := newTestJob(t)
	store.Create(ctx, job)

	job.State = StateRunning
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := store.Get(ctx, job.JobID)
	if got.State != StateRunning {
		t.Errorf("State = %v, want StateRunning", got.State)
	}

	unknown := newTestJob(t)
	if err := store.Update(ctx, unknown); err == nil {
		t.Error("expected error updating unknown job")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	job := newTestJob(t)
	store.Create(ctx, job)

	if err := store.Delete(ctx, job.JobID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, job.JobID); err == nil {
		t.Error("expected error getting deleted job")
	}
	if err := store.Delete(ctx, job.JobID); err == nil {
		t.Error("expected error deleting already-deleted job")
	}
}

func TestMemoryStoreListFiltersByState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	pending := newTestJob(t)
	running := newTestJob(t)
	running.State = StateRunning
	store.Create(ctx, pending)
	store.Create(ctx, running)

	wantState := StateRunning
	result, total, err := store.List(ctx, &Filter{State: &wantState})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(result) != 1 {
		t.Fatalf("List returned %d/%d, want 1/1", len(result), total)
	}
	if result[0].JobID != running.JobID {
		t.Errorf("List returned job %s, want %s", result[0].JobID, running.JobID)
	}
}

func TestMemoryStoreListPagination(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		store.Create(ctx, newTestJob(t))
	}

	result, total, err := store.List(ctx, &Filter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(result) != 2 {
		t.Errorf("len(result) = %d, want 2", len(result))
	}
}

func TestMemoryStoreCount(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Create(ctx, newTestJob(t))
	store.Create(ctx, newTestJob(t))

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}
