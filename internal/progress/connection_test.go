package progress

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func newTestConnection(id string) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		ID:            id,
		send:          make(chan *Event, 8),
		subscriptions: make(map[string]bool),
		logger:        zap.NewNop(),
		ctx:           ctx,
		cancel:        cancel,
	}
}

func TestConnectionSendDeliversEvent(t *testing.T) {
	conn := newTestConnection("conn1")
	defer conn.Close()

	event := &Event{JobID: "job-1", Type: EventBytesMoved, BytesMoved: 10}
	if err := conn.Send(event); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case got := <-conn.send:
		if got.JobID != "job-1" {
			t.Errorf("JobID = %q, want job-1", got.JobID)
		}
	default:
		t.Fatal("expected event queued on send channel")
	}
}

func TestConnectionSendAfterCloseFails(t *testing.T) {
	conn := newTestConnection("conn1")
	conn.Close()

	if err := conn.Send(&Event{JobID: "job-1"}); err != ErrConnectionClosed {
		t.Errorf("Send after close = %v, want ErrConnectionClosed", err)
	}
}

func TestConnectionCloseIsIdempotent(t *testing.T) {
	conn := newTestConnection("conn1")
	if err := conn.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if !conn.IsClosed() {
		t.Error("expected connection to report closed")
	}
}

func TestConnectionOnCloseFiresOnce(t *testing.T) {
	conn := newTestConnection("conn1")
	calls := 0
	conn.SetOnClose(func(connID string) {
		calls++
		if connID != "conn1" {
			t.Errorf("onClose connID = %q, want conn1", connID)
		}
	})

	conn.Close()
	conn.Close()

	if calls != 1 {
		t.Errorf("onClose called %d times, want 1", calls)
	}
}

func TestConnectionSubscriptions(t *testing.T) {
	conn := newTestConnection("conn1")
	defer conn.Close()

	conn.Subscribe("job-1")
	conn.Subscribe("job-2")
	if !conn.IsSubscribed("job-1") {
		t.Error("expected job-1 subscribed")
	}

	conn.Unsubscribe("job-1")
	if conn.IsSubscribed("job-1") {
		t.Error("expected job-1 unsubscribed")
	}

	subs := conn.Subscriptions()
	if len(subs) != 1 || subs[0] != "job-2" {
		t.Errorf("Subscriptions() = %v, want [job-2]", subs)
	}
}
