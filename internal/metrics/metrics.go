// Package metrics exposes Prometheus instrumentation for the RDT senders,
// receivers, and control plane.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the full set of counters/gauges/histograms this process
// exposes. A sender, a receiver, and the control plane each build their own
// instance, distinguished by the subsystem passed to NewMetrics; the
// per-packet metrics also carry a protocol label.
type Metrics struct {
	PacketsSentTotal     *prometheus.CounterVec
	PacketsReceivedTotal *prometheus.CounterVec
	RetransmitsTotal     *prometheus.CounterVec
	ChecksumFailuresTotal *prometheus.CounterVec
	DuplicateAcksTotal   *prometheus.CounterVec
	BytesDeliveredTotal  *prometheus.CounterVec

	WindowOccupancy *prometheus.GaugeVec
	RTTSeconds      *prometheus.HistogramVec
	EstimatedBandwidthBps *prometheus.GaugeVec

	JobsTotal     *prometheus.CounterVec
	ActiveJobs    prometheus.Gauge
	ErrorsTotal   *prometheus.CounterVec
	GoRoutines    prometheus.Gauge

	WSConnectionsTotal  *prometheus.CounterVec
	WSActiveConnections prometheus.Gauge
}

// NewMetrics builds a Metrics registered under namespace/subsystem.
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		PacketsSentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "packets_sent_total",
				Help:      "Total number of data packets sent",
			},
			[]string{"protocol", "role"},
		),
		PacketsReceivedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "packets_received_total",
				Help:      "Total number of data packets received",
			},
			[]string{"protocol", "role"},
		),
		RetransmitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "retransmits_total",
				Help:      "Total number of packet retransmissions",
			},
			[]string{"protocol", "cause"}, // cause: timeout (the only cause the senders record)
		),
		ChecksumFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checksum_failures_total",
				Help:      "Total number of payloads that failed checksum verification",
			},
			[]string{"protocol"},
		),
		DuplicateAcksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "duplicate_acks_total",
				Help:      "Total number of acks that carried no new forward progress",
			},
			[]string{"protocol"},
		),
		BytesDeliveredTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bytes_delivered_total",
				Help:      "Total number of payload bytes delivered to the sink",
			},
			[]string{"protocol"},
		),
		WindowOccupancy: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "window_occupancy",
				Help:      "Current number of occupied slots in the sender window",
			},
			[]string{"protocol"},
		),
		RTTSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rtt_seconds",
				Help:      "Observed ack round-trip-time distribution",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"protocol"},
		),
		EstimatedBandwidthBps: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "estimated_bandwidth_bytes_per_second",
				Help:      "Passive bandwidth estimate derived from recent ack samples",
			},
			[]string{"protocol"},
		),
		JobsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_total",
				Help:      "Total number of transfer jobs by terminal state",
			},
			[]string{"state"}, // state: completed/failed/cancelled
		),
		ActiveJobs: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "active_jobs",
				Help:      "Number of transfer jobs currently running",
			},
		),
		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "errors_total",
				Help:      "Total number of errors by kind",
			},
			[]string{"kind"},
		),
		GoRoutines: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "goroutines",
				Help:      "Number of goroutines",
			},
		),
		WSConnectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "websocket_connections_total",
				Help:      "Total number of progress-stream websocket connections",
			},
			[]string{"status"}, // status: connected/disconnected
		),
		WSActiveConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "websocket_active_connections",
				Help:      "Number of active progress-stream websocket connections",
			},
		),
	}
}

// RecordSend records a data packet transmission.
func (m *Metrics) RecordSend(protocol, role string) {
	m.PacketsSentTotal.WithLabelValues(protocol, role).Inc()
}

// RecordReceive records a data packet arrival.
func (m *Metrics) RecordReceive(protocol, role string) {
	m.PacketsReceivedTotal.WithLabelValues(protocol, role).Inc()
}

// RecordRetransmit records a retransmission and its cause.
func (m *Metrics) RecordRetransmit(protocol, cause string) {
	m.RetransmitsTotal.WithLabelValues(protocol, cause).Inc()
}

// RecordChecksumFailure records a payload that failed checksum verification.
func (m *Metrics) RecordChecksumFailure(protocol string) {
	m.ChecksumFailuresTotal.WithLabelValues(protocol).Inc()
}

// RecordDuplicateAck records an ack that made no forward progress.
func (m *Metrics) RecordDuplicateAck(protocol string) {
	m.DuplicateAcksTotal.WithLabelValues(protocol).Inc()
}

// RecordBytesDelivered adds n bytes to the delivered total.
func (m *Metrics) RecordBytesDelivered(protocol string, n int) {
	m.BytesDeliveredTotal.WithLabelValues(protocol).Add(float64(n))
}

// SetWindowOccupancy records the current sender window occupancy.
func (m *Metrics) SetWindowOccupancy(protocol string, occupancy int) {
	m.WindowOccupancy.WithLabelValues(protocol).Set(float64(occupancy))
}

// ObserveRTT records one ack round-trip-time sample.
func (m *Metrics) ObserveRTT(protocol string, d time.Duration) {
	m.RTTSeconds.WithLabelValues(protocol).Observe(d.Seconds())
}

// SetEstimatedBandwidth records the passive bandwidth estimate.
func (m *Metrics) SetEstimatedBandwidth(protocol string, bytesPerSecond float64) {
	m.EstimatedBandwidthBps.WithLabelValues(protocol).Set(bytesPerSecond)
}

// RecordJob records a job reaching a terminal state.
func (m *Metrics) RecordJob(state string) {
	m.JobsTotal.WithLabelValues(state).Inc()
}

// RecordError records an error by kind.
func (m *Metrics) RecordError(kind string) {
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordWSConnection records a progress-stream websocket connect/disconnect.
func (m *Metrics) RecordWSConnection(connected bool) {
	if connected {
		m.WSConnectionsTotal.WithLabelValues("connected").Inc()
		m.WSActiveConnections.Inc()
		return
	}
	m.WSConnectionsTotal.WithLabelValues("disconnected").Inc()
	m.WSActiveConnections.Dec()
}
