// Command rdt-sender transfers a local file to a peer over UDP using
// either the Go-Back-N or Selective-Repeat protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aaronli/rdt/internal/metrics"
	"github.com/aaronli/rdt/internal/progress"
	"github.com/aaronli/rdt/internal/rdt/gbn"
	"github.com/aaronli/rdt/internal/rdt/sr"
	"github.com/aaronli/rdt/internal/tracing"
	"github.com/aaronli/rdt/pkg/lossnet"
)

var (
	configFile = flag.String("f", "configs/sender.yaml", "the config file")
	peerAddr   = flag.String("peer", "", "override the config's peer address")
	filePath   = flag.String("file", "", "override the config's file path")
	protocol   = flag.String("protocol", "", "override the config's protocol (gbn|sr)")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rdt-sender: %v\n", err)
		os.Exit(1)
	}
	applyOverrides(cfg)

	logger, err := buildLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rdt-sender: building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.FilePath == "" || cfg.PeerAddr == "" {
		logger.Fatal("file_path and peer_addr are required")
	}

	metricsSet := metrics.NewMetrics("rdt", "sender")
	sampler := metrics.NewSampler()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	tracer, err := tracing.NewTracer(&tracing.Config{
		Enable:      cfg.Tracing.Enable,
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		Exporter:    cfg.Tracing.Exporter,
		SampleRate:  cfg.Tracing.SampleRate,
	}, logger)
	if err != nil {
		logger.Fatal("building tracer", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tracer.Shutdown(shutdownCtx)
	}()

	var publisher *progress.Publisher
	if cfg.JobID != "" {
		redisClient := progress.NewRedisClient(&progress.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		publisher = progress.NewPublisher(redisClient)
	}

	rawConn, err := net.ListenPacket("udp", cfg.ListenAddr)
	if err != nil {
		logger.Fatal("binding local socket", zap.Error(err))
	}
	defer rawConn.Close()

	var conn net.PacketConn = rawConn
	if cfg.LossRate > 0 || cfg.LossDelay > 0 {
		logger.Info("loss injection enabled",
			zap.Float64("loss_rate", cfg.LossRate), zap.Duration("loss_delay", cfg.LossDelay))
		conn = lossnet.New(rawConn, cfg.LossRate, cfg.LossDelay)
	}

	peer, err := net.ResolveUDPAddr("udp", cfg.PeerAddr)
	if err != nil {
		logger.Fatal("resolving peer address", zap.Error(err))
	}

	file, err := os.Open(cfg.FilePath)
	if err != nil {
		logger.Fatal("opening input file", zap.Error(err))
	}
	defer file.Close()

	jobCtx, span := tracer.StartJobSpan(context.Background(), cfg.JobID, cfg.Protocol)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runSender(cfg.Protocol, conn, peer, file, logger, metricsSet, sampler)
	}()

	publishState(publisher, cfg.JobID, "running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			publishState(publisher, cfg.JobID, "failed")
			tracer.RecordError(jobCtx, err)
			span.End()
			logger.Fatal("transfer failed", zap.Error(err))
		}
		publishState(publisher, cfg.JobID, "done")
		span.End()
		logger.Info("transfer complete")
	case sig := <-sigCh:
		span.End()
		logger.Info("received signal, aborting transfer", zap.String("signal", sig.String()))
	}
}

func runSender(protocol string, conn net.PacketConn, peer net.Addr, file *os.File, logger *zap.Logger, m *metrics.Metrics, sampler *metrics.Sampler) error {
	switch protocol {
	case "sr":
		s := sr.NewSender(conn, peer, logger)
		s.SetInstrumentation(m, sampler)
		return s.Run(file)
	case "gbn", "":
		s := gbn.NewSender(conn, peer, logger)
		s.SetInstrumentation(m, sampler)
		return s.Run(file)
	default:
		return fmt.Errorf("rdt-sender: unknown protocol %q", protocol)
	}
}

func publishState(p *progress.Publisher, jobID, state string) {
	if p == nil || jobID == "" {
		return
	}
	p.Publish(context.Background(), &progress.Event{
		JobID:     jobID,
		Type:      progress.EventStateChanged,
		State:     state,
		Timestamp: time.Now(),
	})
}

func applyOverrides(cfg *Config) {
	if *peerAddr != "" {
		cfg.PeerAddr = *peerAddr
	}
	if *filePath != "" {
		cfg.FilePath = *filePath
	}
	if *protocol != "" {
		cfg.Protocol = *protocol
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	return config.Build()
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
