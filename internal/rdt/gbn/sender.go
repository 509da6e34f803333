// Package gbn implements the Go-Back-N sender and receiver: a sliding-window
// sender with a single retransmit-all timer and a strictly in-order,
// cumulative-ACK receiver.
package gbn

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aaronli/rdt/internal/metrics"
	"github.com/aaronli/rdt/internal/rdt/timer"
	"github.com/aaronli/rdt/pkg/chunker"
	"github.com/aaronli/rdt/pkg/ringbuffer"
	"github.com/aaronli/rdt/pkg/wire"
)

// DefaultPort is the conventional GBN listening port.
const DefaultPort = 9690

// slot is a sender-side window entry: the payload, whether it has been
// transmitted at least once since admission or the last retransmit pass,
// and when it was first sent (for the passive RTT sampler).
type slot struct {
	payload []byte
	sent    bool
	sentAt  time.Time
}

// Sender drives a Go-Back-N transfer of an input stream to a peer address.
// The foreground loop (admit/send/await-ack) and the retransmit timer are
// both serialised under mu.
type Sender struct {
	conn       net.PacketConn
	peer       net.Addr
	timeout    time.Duration
	windowSize int
	logger     *zap.Logger

	metrics *metrics.Metrics
	sampler *metrics.Sampler

	mu      sync.Mutex
	window  *ringbuffer.Buffer[*slot]
	lastAck byte
	rt      *timer.RetransmitTimer
}

// SetInstrumentation attaches optional Prometheus metrics and a passive RTT
// sampler. Both are nil-safe; a Sender built without calling this records
// nothing beyond its logs.
func (s *Sender) SetInstrumentation(m *metrics.Metrics, sampler *metrics.Sampler) {
	s.metrics = m
	s.sampler = sampler
}

// NewSender builds a Sender that writes to conn, addressed to peer, with the
// default window size and retransmit timeout.
func NewSender(conn net.PacketConn, peer net.Addr, logger *zap.Logger) *Sender {
	s := &Sender{
		conn:       conn,
		peer:       peer,
		timeout:    10 * time.Second,
		windowSize: wire.WindowSize,
		logger:     logger,
		window:     ringbuffer.New[*slot](wire.SeqSpace),
		lastAck:    byte(wire.SeqSpace - 1),
	}
	s.rt = timer.New(s.timeout, s.onTimeout)
	return s
}

// Run chunks r and transfers it in full, blocking until the end-of-stream
// packets are flushed. It returns only on completion or a fatal transport
// error; packet loss and corruption are recovered internally.
func (s *Sender) Run(r io.Reader) error {
	chunks, err := chunker.Split(r)
	if err != nil {
		return fmt.Errorf("gbn: sender: chunking input: %w", err)
	}
	s.logger.Info("gbn sender starting", zap.Int("chunks", len(chunks)), zap.Stringer("peer", s.peer))

	admitted := 0
	buf := make([]byte, 4096)

	for {
		s.mu.Lock()
		if admitted >= len(chunks) && s.window.IsEmpty() {
			s.mu.Unlock()
			break
		}

		for admitted < len(chunks) && s.window.Len() < s.windowSize {
			s.window.Enqueue(&slot{payload: chunks[admitted]})
			admitted++
		}

		s.sendPassLocked()
		s.mu.Unlock()

		if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
			return fmt.Errorf("gbn: sender: set read deadline: %w", err)
		}
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("gbn: sender: reading ack: %w", err)
		}

		ack, err := wire.UnmarshalAckPacket(buf[:n])
		if err != nil {
			s.logger.Warn("gbn sender: malformed ack, ignoring", zap.Error(err))
			continue
		}
		s.handleAck(ack.AckSeq)
	}

	s.rt.Stop()
	s.flushEndOfStream()
	s.logger.Info("gbn sender finished")
	return nil
}

// sendPassLocked transmits every slot in the window that has not yet been
// sent since its last admission or retransmit pass. Callers must hold mu.
func (s *Sender) sendPassLocked() {
	s.window.ForEach(func(index int, sl *slot) {
		if sl.sent {
			return
		}
		s.send(byte(index), sl.payload, false)
		sl.sent = true
		sl.sentAt = time.Now()
	})
	if !s.window.IsEmpty() {
		s.rt.Start()
	}
}

// retransmitAllLocked resends every slot in window order regardless of its
// sent flag: after a GBN timeout, every outstanding slot is considered
// un-ACKed. Callers must hold mu.
func (s *Sender) retransmitAllLocked() {
	s.window.ForEach(func(index int, sl *slot) {
		s.send(byte(index), sl.payload, true)
		sl.sent = true
	})
}

func (s *Sender) send(seqNum byte, payload []byte, retransmit bool) {
	p := wire.NewDataPacket(seqNum, payload)
	if _, err := s.conn.WriteTo(p.Marshal(), s.peer); err != nil {
		s.logger.Warn("gbn sender: write failed", zap.Uint8("seq", seqNum), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordSend("gbn", "sender")
	}
	if retransmit {
		s.logger.Debug("gbn sender: retransmitted", zap.Uint8("seq", seqNum))
		if s.metrics != nil {
			s.metrics.RecordRetransmit("gbn", "timeout")
		}
	}
}

// handleAck applies a cumulative ACK: any forward modular distance from
// lastAck advances the window front by that many slots.
func (s *Sender) handleAck(ackSeq byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delta := (int(ackSeq) - int(s.lastAck) + wire.SeqSpace) % wire.SeqSpace
	if delta <= 0 {
		if s.metrics != nil {
			s.metrics.RecordDuplicateAck("gbn")
		}
		return
	}

	now := time.Now()
	for i := 0; i < delta; i++ {
		dequeued, ok := s.window.Dequeue()
		if !ok {
			break
		}
		if s.metrics != nil {
			s.metrics.RecordBytesDelivered("gbn", len(dequeued.payload))
		}
		if s.sampler != nil && !dequeued.sentAt.IsZero() {
			rtt := now.Sub(dequeued.sentAt)
			_, bandwidth := s.sampler.Observe(len(dequeued.payload), rtt, now)
			if s.metrics != nil {
				s.metrics.ObserveRTT("gbn", rtt)
				s.metrics.SetEstimatedBandwidth("gbn", bandwidth)
			}
		}
	}
	s.lastAck = ackSeq

	if s.metrics != nil {
		s.metrics.SetWindowOccupancy("gbn", s.window.Len())
	}
	if s.window.IsEmpty() {
		s.rt.Stop()
	} else {
		s.rt.Reset()
	}
}

// onTimeout is invoked (possibly on the timer's own goroutine) when no ACK
// progress has been made within the retransmit timeout.
func (s *Sender) onTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.window.IsEmpty() {
		s.rt.Stop()
		return
	}
	s.logger.Debug("gbn sender: retransmit timer fired")
	s.retransmitAllLocked()
	s.rt.Reset()
}

// flushEndOfStream emits the end-of-stream packet ten times to mask loss of
// the final datagrams.
func (s *Sender) flushEndOfStream() {
	p := wire.EndOfStreamPacket().Marshal()
	for i := 0; i < 10; i++ {
		if _, err := s.conn.WriteTo(p, s.peer); err != nil {
			s.logger.Warn("gbn sender: end-of-stream write failed", zap.Error(err))
		}
	}
}
