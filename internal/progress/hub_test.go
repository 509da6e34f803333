package progress

import (
	"testing"

	"go.uber.org/zap"
)

func newTestHub() *Hub {
	return NewHub(zap.NewNop())
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	conn := newTestConnection("conn1")
	hub.Register(conn)

	hub.mu.RLock()
	total := len(hub.connections)
	hub.mu.RUnlock()
	if total != 1 {
		t.Fatalf("connections = %d, want 1", total)
	}

	hub.Unregister("conn1")

	hub.mu.RLock()
	total = len(hub.connections)
	hub.mu.RUnlock()
	if total != 0 {
		t.Fatalf("connections = %d, want 0", total)
	}
}

func TestHubSubscribeUnknownConnection(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	if err := hub.Subscribe("ghost", "job-1"); err != ErrConnectionNotFound {
		t.Errorf("Subscribe unknown conn = %v, want ErrConnectionNotFound", err)
	}
}

func TestHubSubscribeAndBroadcast(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	conn1 := newTestConnection("conn1")
	conn2 := newTestConnection("conn2")
	hub.Register(conn1)
	hub.Register(conn2)

	if err := hub.Subscribe("conn1", "job-1"); err != nil {
		t.Fatalf("Subscribe conn1 failed: %v", err)
	}
	if err := hub.Subscribe("conn2", "job-2"); err != nil {
		t.Fatalf("Subscribe conn2 failed: %v", err)
	}

	delivered := hub.BroadcastToJob(&Event{JobID: "job-1", Type: EventStateChanged, State: "running"})
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}

	select {
	case event := <-conn1.send:
		if event.State != "running" {
			t.Errorf("conn1 received State = %q, want running", event.State)
		}
	default:
		t.Fatal("expected event queued on conn1")
	}

	select {
	case <-conn2.send:
		t.Fatal("conn2 should not have received job-1's event")
	default:
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	conn := newTestConnection("conn1")
	hub.Register(conn)
	hub.Subscribe("conn1", "job-1")
	hub.Unsubscribe("conn1", "job-1")

	delivered := hub.BroadcastToJob(&Event{JobID: "job-1", Type: EventStateChanged})
	if delivered != 0 {
		t.Errorf("delivered = %d, want 0", delivered)
	}
}

func TestHubUnregisterRemovesJobSubscription(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	conn := newTestConnection("conn1")
	hub.Register(conn)
	hub.Subscribe("conn1", "job-1")
	hub.Unregister("conn1")

	hub.mu.RLock()
	_, exists := hub.jobSubs["job-1"]
	hub.mu.RUnlock()
	if exists {
		t.Error("expected job-1 subscription set to be cleaned up")
	}
}

func TestHubCleanupDeadConnections(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	conn := newTestConnection("conn1")
	hub.Register(conn)
	conn.Close()

	hub.cleanupDeadConnections()

	hub.mu.RLock()
	_, exists := hub.connections["conn1"]
	hub.mu.RUnlock()
	if exists {
		t.Error("expected closed connection to be removed by cleanup")
	}
}
