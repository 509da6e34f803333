package jobs

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestManagerSubmitAndGet(t *testing.T) {
	m := NewManager(NewMemoryStore(), zaptest.NewLogger(t))
	ctx := context.Background()

	job, err := m.Submit(ctx, ProtocolSR, "127.0.0.1:9790", "/tmp/out.bin")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if job.State != StatePending {
		t.Errorf("State = %v, want StatePending", job.State)
	}

	got, err := m.Get(ctx, job.JobID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Protocol != ProtocolSR {
		t.Errorf("Protocol = %v, want ProtocolSR", got.Protocol)
	}
}

func TestManagerTransitionRecordsFailureMessage(t *testing.T) {
	m := NewManager(NewMemoryStore(), zaptest.NewLogger(t))
	ctx := context.Background()

	job, _ := m.Submit(ctx, ProtocolGBN, "127.0.0.1:9690", "/tmp/in.bin")
	if err := m.Transition(ctx, job.JobID, StateFailed, "transport closed"); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	got, _ := m.Get(ctx, job.JobID)
	if !got.IsTerminal() {
		t.Error("job should be terminal after StateFailed transition")
	}
	if got.Err != "transport closed" {
		t.Errorf("Err = %q, want %q", got.Err, "transport closed")
	}
}

func TestManagerRecordProgress(t *testing.T) {
	m := NewManager(NewMemoryStore(), zaptest.NewLogger(t))
	ctx := context.Background()

	job, _ := m.Submit(ctx, ProtocolGBN, "127.0.0.1:9690", "/tmp/in.bin")
	if err := m.RecordProgress(ctx, job.JobID, 2048); err != nil {
		t.Fatalf("RecordProgress failed: %v", err)
	}

	got, _ := m.Get(ctx, job.JobID)
	if got.BytesMoved != 2048 {
		t.Errorf("BytesMoved = %d, want 2048", got.BytesMoved)
	}
}

func TestManagerListFiltersByState(t *testing.T) {
	m := NewManager(NewMemoryStore(), zaptest.NewLogger(t))
	ctx := context.Background()

	done, _ := m.Submit(ctx, ProtocolGBN, "127.0.0.1:9690", "/tmp/a.bin")
	m.Submit(ctx, ProtocolSR, "127.0.0.1:9790", "/tmp/b.bin")
	m.Transition(ctx, done.JobID, StateDone, "")

	want := StateDone
	result, total, err := m.List(ctx, &Filter{State: &want})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(result) != 1 || result[0].JobID != done.JobID {
		t.Fatalf("List = %+v (total %d), want exactly job %s", result, total, done.JobID)
	}
}
