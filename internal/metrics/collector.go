package metrics

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Collector periodically samples process-wide stats: the goroutine count
// goes into Metrics, and heap size and GC count are only logged at Debug
// level. It runs independently of any single transfer job.
type Collector struct {
	metrics *Metrics
	logger  *zap.Logger
	stopCh  chan struct{}
}

// NewCollector builds a Collector reporting into metrics.
func NewCollector(metrics *Metrics, logger *zap.Logger) *Collector {
	return &Collector{
		metrics: metrics,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the background sampling loop.
func (c *Collector) Start() {
	go c.collectLoop()
	c.logger.Info("metrics collector started")
}

// Stop halts the sampling loop.
func (c *Collector) Stop() {
	close(c.stopCh)
	c.logger.Info("metrics collector stopped")
}

func (c *Collector) collectLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collectSystemMetrics()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Collector) collectSystemMetrics() {
	numGoroutines := runtime.NumGoroutine()
	c.metrics.GoRoutines.Set(float64(numGoroutines))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.logger.Debug("system metrics collected",
		zap.Int("goroutines", numGoroutines),
		zap.Uint64("heap_alloc", m.HeapAlloc),
		zap.Uint64("heap_sys", m.HeapSys),
		zap.Uint32("num_gc", m.NumGC),
	)
}
