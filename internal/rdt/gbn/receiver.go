package gbn

import (
	"fmt"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/aaronli/rdt/internal/metrics"
	"github.com/aaronli/rdt/pkg/wire"
)

// Receiver is the strictly in-order Go-Back-N receiver: it accepts only the
// next expected sequence number, cumulatively ACKs it, and re-ACKs the last
// good sequence number for anything else.
type Receiver struct {
	conn    net.PacketConn
	logger  *zap.Logger
	metrics *metrics.Metrics

	expectSeq byte
	peer      net.Addr
}

// NewReceiver builds a Receiver bound to conn. The peer address is learned
// from the first datagram received.
func NewReceiver(conn net.PacketConn, logger *zap.Logger) *Receiver {
	return &Receiver{conn: conn, logger: logger}
}

// SetMetrics attaches optional Prometheus metrics. Nil-safe.
func (r *Receiver) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
}

// Run writes the delivered byte stream to w and returns once the
// end-of-stream packet is received, or on a fatal transport error.
func (r *Receiver) Run(w io.Writer) error {
	buf := make([]byte, 4096)
	r.logger.Info("gbn receiver starting")

	for {
		n, addr, err := r.conn.ReadFrom(buf)
		if err != nil {
			return fmt.Errorf("gbn: receiver: read failed: %w", err)
		}
		if r.peer == nil {
			r.peer = addr
		}

		p, err := wire.UnmarshalDataPacket(buf[:n])
		if err != nil {
			r.logger.Warn("gbn receiver: malformed packet, dropping", zap.Error(err))
			continue
		}

		if p.EndFlag {
			r.logger.Info("gbn receiver finished")
			return nil
		}

		if r.metrics != nil {
			r.metrics.RecordReceive("gbn", "receiver")
		}

		if p.SeqNum == r.expectSeq && p.VerifyChecksum() {
			if _, err := w.Write(p.Payload); err != nil {
				return fmt.Errorf("gbn: receiver: writing payload: %w", err)
			}
			if r.metrics != nil {
				r.metrics.RecordBytesDelivered("gbn", len(p.Payload))
			}
			r.ack(p.SeqNum)
			r.expectSeq = byte((int(r.expectSeq) + 1) % wire.SeqSpace)
			continue
		}

		if r.metrics != nil && p.SeqNum == r.expectSeq {
			r.metrics.RecordChecksumFailure("gbn")
		}
		r.ack(byte((int(r.expectSeq) - 1 + wire.SeqSpace) % wire.SeqSpace))
	}
}

func (r *Receiver) ack(seq byte) {
	a := &wire.AckPacket{AckSeq: seq}
	if _, err := r.conn.WriteTo(a.Marshal(), r.peer); err != nil {
		r.logger.Warn("gbn receiver: ack write failed", zap.Error(err))
	}
}
