// Package tracing provides an OpenTelemetry span per transfer job for the
// control plane, exporting to either Jaeger or Zipkin.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config configures the tracer.
type Config struct {
	Enable       bool    `json:",default=false"`
	ServiceName  string  `json:",default=rdt-controlplane"`
	Endpoint     string  `json:",default=http://localhost:14268/api/traces"`
	Exporter     string  `json:",default=jaeger,options=jaeger|zipkin"`
	SampleRate   float64 `json:",default=1.0"`
	Environment  string  `json:",default=development"`
	BatchTimeout int     `json:",default=5"`
	MaxQueueSize int     `json:",default=2048"`
}

// Tracer wraps an OpenTelemetry TracerProvider. A disabled Tracer (built by
// NewTracer with Enable false) is safe to call: every method becomes a
// no-op. The zero-value Tracer is not usable: it has no config, and every
// method except Shutdown dereferences it.
type Tracer struct {
	config   *Config
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewTracer builds a Tracer from cfg. If cfg.Enable is false, it returns a
// disabled Tracer whose methods are no-ops.
func NewTracer(cfg *Config, logger *zap.Logger) (*Tracer, error) {
	if !cfg.Enable {
		logger.Info("tracing disabled")
		return &Tracer{config: cfg, logger: logger}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: building resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "jaeger":
		exporter, err = jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Endpoint)))
		if err != nil {
			return nil, fmt.Errorf("tracing: building jaeger exporter: %w", err)
		}
		logger.Info("jaeger exporter configured", zap.String("endpoint", cfg.Endpoint))
	case "zipkin":
		exporter, err = zipkin.New(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("tracing: building zipkin exporter: %w", err)
		}
		logger.Info("zipkin exporter configured", zap.String("endpoint", cfg.Endpoint))
	default:
		return nil, fmt.Errorf("tracing: unsupported exporter: %s", cfg.Exporter)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	batcher := sdktrace.NewBatchSpanProcessor(
		exporter,
		sdktrace.WithBatchTimeout(time.Duration(cfg.BatchTimeout)*time.Second),
		sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithSpanProcessor(batcher),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing initialized",
		zap.String("service", cfg.ServiceName),
		zap.String("exporter", cfg.Exporter),
		zap.Float64("sample_rate", cfg.SampleRate),
	)

	return &Tracer{
		config:   cfg,
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
		logger:   logger,
	}, nil
}

// Shutdown flushes and stops the span processor.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	t.logger.Info("tracer shutting down")
	return t.provider.Shutdown(ctx)
}

// Start begins a span named spanName.
func (t *Tracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if !t.config.Enable || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, spanName, opts...)
}

// StartJobSpan begins a span covering one transfer job's full lifecycle,
// tagged with its ID and protocol so traces can be filtered per job.
func (t *Tracer) StartJobSpan(ctx context.Context, jobID, protocol string) (context.Context, trace.Span) {
	return t.Start(ctx, "transfer_job",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.String("job.protocol", protocol),
		),
	)
}

// IsEnabled reports whether tracing is active.
func (t *Tracer) IsEnabled() bool {
	return t.config.Enable
}

// AddEvent records an event on the span in ctx.
func (t *Tracer) AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if !t.config.Enable {
		return
	}
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes sets attributes on the span in ctx.
func (t *Tracer) SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	if !t.config.Enable {
		return
	}
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// RecordError records err on the span in ctx.
func (t *Tracer) RecordError(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	if !t.config.Enable || err == nil {
		return
	}
	trace.SpanFromContext(ctx).RecordError(err, trace.WithAttributes(attrs...))
}

// GetTraceID returns the current span's trace ID, or "" if none/disabled.
func (t *Tracer) GetTraceID(ctx context.Context) string {
	if !t.config.Enable {
		return ""
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// GetSpanID returns the current span's span ID, or "" if none/disabled.
func (t *Tracer) GetSpanID(ctx context.Context) string {
	if !t.config.Enable {
		return ""
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().SpanID().String()
}

// InjectHTTPHeaders injects trace-context propagation headers into headers.
func (t *Tracer) InjectHTTPHeaders(ctx context.Context, headers map[string]string) {
	if !t.config.Enable {
		return
	}
	otel.GetTextMapPropagator().Inject(ctx, &mapCarrier{headers: headers})
}

// ExtractHTTPHeaders extracts trace-context propagation headers from headers.
func (t *Tracer) ExtractHTTPHeaders(ctx context.Context, headers map[string][]string) context.Context {
	if !t.config.Enable {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, &sliceMapCarrier{headers: headers})
}

// mapCarrier implements propagation.TextMapCarrier for injection.
type mapCarrier struct {
	headers map[string]string
}

func (c *mapCarrier) Get(key string) string { return c.headers[key] }
func (c *mapCarrier) Set(key, value string) { c.headers[key] = value }
func (c *mapCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for k := range c.headers {
		keys = append(keys, k)
	}
	return keys
}

// sliceMapCarrier implements propagation.TextMapCarrier for extraction from
// http.Header-shaped maps.
type sliceMapCarrier struct {
	headers map[string][]string
}

func (c *sliceMapCarrier) Get(key string) string {
	values := c.headers[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (c *sliceMapCarrier) Set(key, value string) {
	c.headers[key] = []string{value}
}

func (c *sliceMapCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for k := range c.headers {
		keys = append(keys, k)
	}
	return keys
}
