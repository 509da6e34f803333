package metrics

import (
	"sync"
	"time"
)

// bandwidthSample is one ack-triggered bandwidth observation.
type bandwidthSample struct {
	bytesPerSecond float64
	timestamp      time.Time
}

// maxSamples bounds how many recent bandwidth samples the estimate is drawn
// from, matching the fixed recent-history window the sampling was adapted
// from.
const maxSamples = 10

// Sampler passively observes ack round-trip-time and delivered bandwidth.
// It never feeds its estimate back into a sender's window or pacing: the
// window stays fixed, so this exists purely to report what the transfer is
// observing, not to control it.
type Sampler struct {
	mu sync.Mutex

	minRTT  time.Duration
	samples []bandwidthSample
	lastAt  time.Time
}

// NewSampler builds an empty Sampler.
func NewSampler() *Sampler {
	return &Sampler{}
}

// Observe records one ACKed payload: its size in bytes and the elapsed time
// since it was first sent. It returns the current minimum RTT and bandwidth
// estimate after incorporating the sample.
func (s *Sampler) Observe(size int, rtt time.Duration, now time.Time) (minRTT time.Duration, bandwidthBps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.minRTT == 0 || rtt < s.minRTT {
		s.minRTT = rtt
	}

	if !s.lastAt.IsZero() {
		if elapsed := now.Sub(s.lastAt); elapsed > 0 {
			s.samples = append(s.samples, bandwidthSample{
				bytesPerSecond: float64(size) / elapsed.Seconds(),
				timestamp:      now,
			})
			if len(s.samples) > maxSamples {
				s.samples = s.samples[1:]
			}
		}
	}
	s.lastAt = now

	var max float64
	for _, sample := range s.samples {
		if sample.bytesPerSecond > max {
			max = sample.bytesPerSecond
		}
	}
	return s.minRTT, max
}

// MinRTT returns the smallest RTT observed so far.
func (s *Sampler) MinRTT() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minRTT
}

// Bandwidth returns the current bandwidth estimate: the maximum of the
// recent per-ack samples, matching the "max over recent window" estimate a
// bottleneck-bandwidth sampler uses before any gain-cycling is applied.
func (s *Sampler) Bandwidth() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max float64
	for _, sample := range s.samples {
		if sample.bytesPerSecond > max {
			max = sample.bytesPerSecond
		}
	}
	return max
}
