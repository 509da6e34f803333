// Package svc wires the control plane's dependencies into a single
// ServiceContext shared by every handler.
package svc

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/aaronli/rdt/internal/auth"
	"github.com/aaronli/rdt/internal/controlplane/config"
	"github.com/aaronli/rdt/internal/jobs"
	"github.com/aaronli/rdt/internal/metrics"
	"github.com/aaronli/rdt/internal/progress"
	"github.com/aaronli/rdt/internal/tracing"
)

// ServiceContext bundles the dependencies every control-plane handler needs.
type ServiceContext struct {
	Config config.Config
	Logger *zap.Logger

	Jobs       *jobs.Manager
	Auth       *auth.Manager
	Tracer     *tracing.Tracer
	Metrics    *metrics.Metrics
	Collector  *metrics.Collector
	Progress   *progress.Server
	Hub        *progress.Hub
	Publisher  *progress.Publisher

	etcdClient  *clientv3.Client
	redisClient interface{ Close() error }
	relayCancel context.CancelFunc
}

// NewServiceContext builds every dependency from c and starts the
// background goroutines (metrics collector, Redis relay) a running control
// plane needs.
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("controlplane: building logger: %w", err)
	}

	var store jobs.Store
	var etcdClient *clientv3.Client
	if c.Etcd.Enable {
		etcdClient, err = clientv3.New(clientv3.Config{
			Endpoints:   c.Etcd.Endpoints,
			DialTimeout: time.Duration(c.Etcd.DialTimeout) * time.Second,
			Username:    c.Etcd.Username,
			Password:    c.Etcd.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("controlplane: connecting to etcd: %w", err)
		}
		store = jobs.NewEtcdStore(etcdClient, c.Etcd.KeyPrefix)
		logger.Info("job manifests backed by etcd", zap.Strings("endpoints", c.Etcd.Endpoints))
	} else {
		store = jobs.NewMemoryStore()
		logger.Info("job manifests backed by memory store")
	}
	jobManager := jobs.NewManager(store, logger)

	authManager := auth.NewManager(c.JWT.Secret, c.JWT.Expire, c.JWT.Issuer)

	tracingConfig := &tracing.Config{
		Enable:       c.Tracing.Enable,
		ServiceName:  c.Tracing.ServiceName,
		Endpoint:     c.Tracing.Endpoint,
		Exporter:     c.Tracing.Exporter,
		SampleRate:   c.Tracing.SampleRate,
		Environment:  c.Tracing.Environment,
		BatchTimeout: c.Tracing.BatchTimeout,
		MaxQueueSize: c.Tracing.MaxQueueSize,
	}
	tracer, err := tracing.NewTracer(tracingConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("controlplane: building tracer: %w", err)
	}

	metricsSet := metrics.NewMetrics("rdt", "controlplane")
	collector := metrics.NewCollector(metricsSet, logger)
	collector.Start()

	hub := progress.NewHub(logger)
	wsServer := progress.NewServer(hub, logger)

	redisClient := progress.NewRedisClient(&progress.RedisConfig{
		Addr:         c.Redis.Addr,
		Password:     c.Redis.Password,
		DB:           c.Redis.DB,
		PoolSize:     c.Redis.PoolSize,
		MinIdleConns: c.Redis.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	publisher := progress.NewPublisher(redisClient)
	relay := progress.NewRelay(redisClient, hub, logger)

	relayCtx, relayCancel := context.WithCancel(context.Background())
	go func() {
		if err := relay.Run(relayCtx); err != nil && relayCtx.Err() == nil {
			logger.Error("progress relay stopped", zap.Error(err))
		}
	}()

	return &ServiceContext{
		Config:      c,
		Logger:      logger,
		Jobs:        jobManager,
		Auth:        authManager,
		Tracer:      tracer,
		Metrics:     metricsSet,
		Collector:   collector,
		Progress:    wsServer,
		Hub:         hub,
		Publisher:   publisher,
		etcdClient:  etcdClient,
		redisClient: redisClient,
		relayCancel: relayCancel,
	}, nil
}

// Close shuts down every background goroutine and connection the
// ServiceContext started.
func (ctx *ServiceContext) Close() {
	ctx.relayCancel()
	ctx.Collector.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctx.Tracer.Shutdown(shutdownCtx); err != nil {
		ctx.Logger.Error("failed to shut down tracer", zap.Error(err))
	}

	ctx.Progress.Close()

	if ctx.etcdClient != nil {
		if err := ctx.etcdClient.Close(); err != nil {
			ctx.Logger.Error("failed to close etcd client", zap.Error(err))
		}
	}
	if err := ctx.redisClient.Close(); err != nil {
		ctx.Logger.Error("failed to close redis client", zap.Error(err))
	}
	_ = ctx.Logger.Sync()
}
