package sr

import (
	"bytes"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aaronli/rdt/pkg/wire"
)

func TestTransferLossless(t *testing.T) {
	senderConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket failed: %v", err)
	}
	defer senderConn.Close()

	receiverConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket failed: %v", err)
	}
	defer receiverConn.Close()

	input := bytes.Repeat([]byte{0xCD}, 5000)

	var output bytes.Buffer
	receiver := NewReceiver(receiverConn, zap.NewNop())
	done := make(chan error, 1)
	go func() { done <- receiver.Run(&output) }()

	sender := NewSender(senderConn, receiverConn.LocalAddr(), zap.NewNop())
	sender.timeout = 2 * time.Second
	if err := sender.Run(bytes.NewReader(input)); err != nil {
		t.Fatalf("sender.Run failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("receiver.Run failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("receiver did not observe end-of-stream in time")
	}

	if !bytes.Equal(output.Bytes(), input) {
		t.Errorf("output mismatch: got %d bytes, want %d bytes", output.Len(), len(input))
	}
}

// TestReceiverBuffersOutOfOrder covers a gap at the front of the window
// followed by later arrivals, then the gap filled.
func TestReceiverBuffersOutOfOrder(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket failed: %v", err)
	}
	defer conn.Close()

	r := NewReceiver(conn, zap.NewNop())
	r.peer = conn.LocalAddr()

	var output bytes.Buffer

	r.handle(wire.NewDataPacket(3, []byte("three")))
	if err := r.deliver(&output); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if output.Len() != 0 {
		t.Fatalf("nothing should deliver before the front slot fills, got %d bytes", output.Len())
	}

	r.handle(wire.NewDataPacket(4, []byte("four")))
	if err := r.deliver(&output); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if output.Len() != 0 {
		t.Fatalf("still nothing should deliver with seq 0-2 missing, got %d bytes", output.Len())
	}

	r.handle(wire.NewDataPacket(0, []byte("zero")))
	r.handle(wire.NewDataPacket(1, []byte("one")))
	r.handle(wire.NewDataPacket(2, []byte("two")))
	if err := r.deliver(&output); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}

	if output.String() != "zeroonetwothreefour" {
		t.Errorf("expected contiguous in-order delivery, got %q", output.String())
	}
}

// TestReceiverDuplicateDeliveredOnce covers a duplicate data packet that is
// ACKed again but never delivered twice.
func TestReceiverDuplicateDeliveredOnce(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket failed: %v", err)
	}
	defer conn.Close()

	r := NewReceiver(conn, zap.NewNop())
	r.peer = conn.LocalAddr()

	var output bytes.Buffer
	r.handle(wire.NewDataPacket(0, []byte("zero")))
	if err := r.deliver(&output); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	r.handle(wire.NewDataPacket(0, []byte("zero")))
	if err := r.deliver(&output); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}

	if output.String() != "zero" {
		t.Errorf("expected chunk 0 delivered exactly once, got %q", output.String())
	}
}

func TestSenderHandleAckSlidesOnlyOverAckedHead(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket failed: %v", err)
	}
	defer conn.Close()

	s := NewSender(conn, conn.LocalAddr(), zap.NewNop())
	s.window.Enqueue(&slot{payload: []byte("a")})
	s.window.Enqueue(&slot{payload: []byte("b")})

	s.handleAck(1)
	if s.window.Len() != 2 {
		t.Fatalf("out-of-order ack of slot 1 should not dequeue slot 0, got len %d", s.window.Len())
	}

	s.handleAck(0)
	if s.window.Len() != 0 {
		t.Errorf("acking slot 0 should drain both now-acked slots, got len %d", s.window.Len())
	}
}
