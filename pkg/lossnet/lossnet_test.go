package lossnet

import (
	"net"
	"testing"
	"time"
)

func TestZeroLossRateNeverDrops(t *testing.T) {
	a, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket failed: %v", err)
	}
	defer a.Close()

	b, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket failed: %v", err)
	}
	defer b.Close()

	c := New(a, 0, 0)

	for i := 0; i < 20; i++ {
		if _, err := c.WriteTo([]byte("x"), b.LocalAddr()); err != nil {
			t.Fatalf("WriteTo failed: %v", err)
		}
	}

	b.SetReadDeadline(time.Now().Add(2 * time.Second))
	received := 0
	buf := make([]byte, 16)
	for i := 0; i < 20; i++ {
		if _, _, err := b.ReadFrom(buf); err != nil {
			break
		}
		received++
	}

	if received != 20 {
		t.Errorf("expected all 20 datagrams with loss rate 0, got %d", received)
	}
}

func TestFullLossRateAlwaysDrops(t *testing.T) {
	a, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket failed: %v", err)
	}
	defer a.Close()

	b, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket failed: %v", err)
	}
	defer b.Close()

	c := New(a, 1, 0)

	if _, err := c.WriteTo([]byte("x"), b.LocalAddr()); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	b.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 16)
	if _, _, err := b.ReadFrom(buf); err == nil {
		t.Error("expected no datagram to arrive with loss rate 1")
	}
}
