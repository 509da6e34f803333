// Package sr implements the Selective-Repeat sender and receiver: a
// sliding-window sender with per-ACK bookkeeping that retransmits only
// un-ACKed slots, and a receiver that buffers out-of-order arrivals within
// its window and delivers the longest contiguous prefix.
package sr

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

// DefaultPort is the conventional SR listening port.
const DefaultPort = 9790

// slot is a sender-side window entry carrying the payload and the two flags
// SR slots carry: whether it has been sent at least once, and whether it
// has been selectively ACKed. sentAt feeds the passive RTT sampler.
type slot struct {
	payload []byte
	sent    bool
	acked   bool
	sentAt  time.Time
}

// Sender drives a Selective-Repeat transfer. Unlike gbn.Sender, a timer
// firing retransmits only the slots that remain un-ACKed, and the timer is
// only reset when the window head actually advances.
type Sender struct {
	conn       net.PacketConn
	peer       net.Addr
	timeout    time.Duration
	windowSize int
	logger     *zap.Logger

	metrics *metrics.Metrics
	sampler *metrics.Sampler

	mu     sync.Mutex
	window *ringbuffer.Buffer[*slot]
	rt     *timer.RetransmitTimer
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
	}
	s.rt = timer.New(s.timeout, s.onTimeout)
	return s
}

// Run chunks r and transfers it in full, blocking until the end-of-stream
// packets are flushed.
func (s *Sender) Run(r io.Reader) error {
	chunks, err := chunker.Split(r)
	if err != nil {
		return fmt.Errorf("sr: sender: chunking input: %w", err)
	}
	s.logger.Info("sr sender starting", zap.Int("chunks", len(chunks)), zap.Stringer("peer", s.peer))

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
			return fmt.Errorf("sr: sender: set read deadline: %w", err)
		}
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("sr: sender: reading ack: %w", err)
		}

		ack, err := wire.UnmarshalAckPacket(buf[:n])
		if err != nil {
			s.logger.Warn("sr sender: malformed ack, ignoring", zap.Error(err))
			continue
		}
		s.handleAck(ack.AckSeq)
	}

	s.rt.Stop()
	s.flushEndOfStream()
	s.logger.Info("sr sender finished")
	return nil
}

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

func (s *Sender) send(seqNum byte, payload []byte, retransmit bool) {
	p := wire.NewDataPacket(seqNum, payload)
	if _, err := s.conn.WriteTo(p.Marshal(), s.peer); err != nil {
		s.logger.Warn("sr sender: write failed", zap.Uint8("seq", seqNum), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordSend("sr", "sender")
	}
	if retransmit {
		s.logger.Debug("sr sender: retransmitted", zap.Uint8("seq", seqNum))
		if s.metrics != nil {
			s.metrics.RecordRetransmit("sr", "timeout")
		}
	}
}

// handleAck applies a selective ACK: it marks the acked slot, then slides
// the window forward over any now-contiguous run of ACKed slots at the
// front. The timer is only reset when that forward slide actually happens.
func (s *Sender) handleAck(ackSeq byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inWindow := (int(ackSeq)-s.window.Front()+wire.SeqSpace)%wire.SeqSpace < s.windowSize
	if !inWindow {
		return
	}

	sl, ok := s.window.At(int(ackSeq))
	if !ok {
		return
	}
	if sl.acked {
		if s.metrics != nil {
			s.metrics.RecordDuplicateAck("sr")
		}
		return
	}
	sl.acked = true

	now := time.Now()
	advanced := false
	for {
		head, ok := s.window.Peek()
		if !ok || !head.acked {
			break
		}
		s.window.Dequeue()
		advanced = true

		if s.metrics != nil {
			s.metrics.RecordBytesDelivered("sr", len(head.payload))
		}
		if s.sampler != nil && !head.sentAt.IsZero() {
			rtt := now.Sub(head.sentAt)
			_, bandwidth := s.sampler.Observe(len(head.payload), rtt, now)
			if s.metrics != nil {
				s.metrics.ObserveRTT("sr", rtt)
				s.metrics.SetEstimatedBandwidth("sr", bandwidth)
			}
		}
	}

	if s.metrics != nil {
		s.metrics.SetWindowOccupancy("sr", s.window.Len())
	}
	if !advanced {
		return
	}
	if s.window.IsEmpty() {
		s.rt.Stop()
	} else {
		s.rt.Reset()
	}
}

// onTimeout retransmits every slot that has not yet been selectively ACKed,
// leaving the sent flag untouched, and restarts the timer.
func (s *Sender) onTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.window.IsEmpty() {
		s.rt.Stop()
		return
	}
	s.logger.Debug("sr sender: retransmit timer fired")
	s.window.ForEach(func(index int, sl *slot) {
		if sl.acked {
			return
		}
		s.send(byte(index), sl.payload, true)
	})
	s.rt.Reset()
}

// flushEndOfStream emits the end-of-stream packet ten times to mask loss of
// the final datagrams.
func (s *Sender) flushEndOfStream() {
	p := wire.EndOfStreamPacket().Marshal()
	for i := 0; i < 10; i++ {
		if _, err := s.conn.WriteTo(p, s.peer); err != nil {
			s.logger.Warn("sr sender: end-of-stream write failed", zap.Error(err))
		}
	}
}
