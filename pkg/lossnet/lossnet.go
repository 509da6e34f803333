// Package lossnet wraps a net.PacketConn with the test-affordance loss
// injection and artificial per-send delay: an independent Bernoulli drop
// applied to every outbound datagram, plus a fixed pacing delay that models
// transfer time. It is a test affordance, not protocol behaviour, and is a
// no-op when both LossRate and the delay are 0.
package lossnet

import (
	"context"
	"math/rand"
	"net"
	"time"

	"golang.org/x/time/rate"
)

// DefaultLossRate and DefaultDelay match the Python originals' defaults.
const (
	DefaultLossRate = 0.3
	DefaultDelay    = 300 * time.Millisecond
)

// Conn decorates a net.PacketConn, dropping outbound writes with
// probability LossRate and pacing every write (dropped or not) by Delay.
type Conn struct {
	net.PacketConn

	LossRate float64
	Delay    time.Duration

	rng     *rand.Rand
	limiter *rate.Limiter
}

// New wraps conn with the given loss rate and per-send delay. A lossRate of
// 0 disables dropping entirely; a delay of 0 disables pacing entirely.
func New(conn net.PacketConn, lossRate float64, delay time.Duration) *Conn {
	c := &Conn{
		PacketConn: conn,
		LossRate:   lossRate,
		Delay:      delay,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if delay > 0 {
		// One token per Delay interval: every send waits for its own slot,
		// modeling a fixed per-datagram transfer time rather than a
		// congestion-adaptive pace.
		c.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return c
}

// WriteTo pretends to send p to addr: with probability LossRate it is
// silently dropped (the underlying conn is never touched), and either way
// the call then waits on the pacing limiter before returning, so successive
// writes are spaced at least Delay apart. The first write, and any write
// made Delay or more after the previous one, does not wait.
func (c *Conn) WriteTo(p []byte, addr net.Addr) (int, error) {
	defer c.pace()

	if c.dropped() {
		return len(p), nil
	}
	return c.PacketConn.WriteTo(p, addr)
}

func (c *Conn) dropped() bool {
	if c.LossRate <= 0 {
		return false
	}
	return c.rng.Float64() < c.LossRate
}

func (c *Conn) pace() {
	if c.limiter == nil {
		return
	}
	c.limiter.Wait(context.Background())
}
