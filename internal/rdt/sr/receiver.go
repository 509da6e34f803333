package sr

import (
	"fmt"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/aaronli/rdt/internal/metrics"
	"github.com/aaronli/rdt/pkg/ringbuffer"
	"github.com/aaronli/rdt/pkg/wire"
)

// Receiver is the Selective-Repeat receiver: it accepts packets within its
// receive window, buffers out-of-order arrivals, re-ACKs stale
// already-delivered packets, and delivers the longest contiguous prefix to
// the sink on every packet handled.
type Receiver struct {
	conn    net.PacketConn
	logger  *zap.Logger
	metrics *metrics.Metrics

	window *ringbuffer.Buffer[[]byte]
	peer   net.Addr
}

// NewReceiver builds a Receiver bound to conn. The peer address is learned
// from the first datagram received.
func NewReceiver(conn net.PacketConn, logger *zap.Logger) *Receiver {
	return &Receiver{
		conn:   conn,
		logger: logger,
		window: ringbuffer.New[[]byte](wire.SeqSpace),
	}
}

// SetMetrics attaches optional Prometheus metrics. Nil-safe.
func (r *Receiver) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
}

// Run writes the delivered byte stream to w and returns once the
// end-of-stream packet is received, or on a fatal transport error.
func (r *Receiver) Run(w io.Writer) error {
	buf := make([]byte, 4096)
	r.logger.Info("sr receiver starting")

	for {
		n, addr, err := r.conn.ReadFrom(buf)
		if err != nil {
			return fmt.Errorf("sr: receiver: read failed: %w", err)
		}
		if r.peer == nil {
			r.peer = addr
		}

		p, err := wire.UnmarshalDataPacket(buf[:n])
		if err != nil {
			r.logger.Warn("sr receiver: malformed packet, dropping", zap.Error(err))
			continue
		}

		if p.EndFlag {
			r.logger.Info("sr receiver finished")
			return nil
		}

		if r.metrics != nil {
			r.metrics.RecordReceive("sr", "receiver")
		}
		r.handle(p)
		if err := r.deliver(w); err != nil {
			return err
		}
	}
}

// handle applies the receive-window admission rule to a single arrived data packet:
// admit it if within the current window, re-ACK it without buffering if it
// falls in the previous window, or drop it silently otherwise.
func (r *Receiver) handle(p *wire.DataPacket) {
	front := r.window.Front()
	fwd := (int(p.SeqNum) - front + wire.SeqSpace) % wire.SeqSpace

	if fwd < wire.WindowSize {
		if _, occupied := r.window.At(int(p.SeqNum)); occupied {
			r.ack(p.SeqNum)
			return
		}
		if !p.VerifyChecksum() {
			// Corrupt arrival: drop without buffering or ACKing so the
			// sender's timer retransmits it. Unlike the GBN receiver, no
			// duplicate ACK is sent for it.
			if r.metrics != nil {
				r.metrics.RecordChecksumFailure("sr")
			}
			return
		}

		r.window.Set(int(p.SeqNum), p.Payload)
		newRear := (int(p.SeqNum) + 1) % wire.SeqSpace
		if r.window.ForwardDistance(front, newRear) > r.window.ForwardDistance(front, r.window.Rear()) {
			r.window.SetRear(newRear)
		}
		r.ack(p.SeqNum)
		return
	}

	bwd := (front - int(p.SeqNum) + wire.SeqSpace) % wire.SeqSpace
	if bwd <= wire.WindowSize {
		r.ack(p.SeqNum)
	}
}

// deliver dequeues and writes every contiguous occupied slot starting at
// front, advancing the window for the next arrival.
func (r *Receiver) deliver(w io.Writer) error {
	for {
		payload, occupied := r.window.At(r.window.Front())
		if !occupied {
			return nil
		}
		r.window.Dequeue()
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("sr: receiver: writing payload: %w", err)
		}
		if r.metrics != nil {
			r.metrics.RecordBytesDelivered("sr", len(payload))
		}
	}
}

func (r *Receiver) ack(seq byte) {
	a := &wire.AckPacket{AckSeq: seq}
	if _, err := r.conn.WriteTo(a.Marshal(), r.peer); err != nil {
		r.logger.Warn("sr receiver: ack write failed", zap.Error(err))
	}
}
