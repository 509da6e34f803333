// Package config holds the control plane's go-zero REST configuration.
package config

import "github.com/zeromicro/go-zero/rest"

// Config is the control plane's full configuration, loaded from YAML via
// conf.MustLoad.
type Config struct {
	rest.RestConf

	Log       LogConfig       `json:",optional"`
	Etcd      EtcdConfig      `json:",optional"`
	JWT       JWTConfig       `json:",optional"`
	Tracing   TracingConfig   `json:",optional"`
	Redis     RedisConfig     `json:",optional"`
	RateLimit RateLimitConfig `json:",optional"`
}

// LogConfig configures the process-wide zap logger.
type LogConfig struct {
	ServiceName string `json:",default=rdt-controlplane"`
	Level       string `json:",default=info,options=debug|info|warn|error"`
}

// EtcdConfig selects and configures the job manifest backend. Enable=false
// keeps jobs in memory, suitable for single-process deployments and tests.
type EtcdConfig struct {
	Enable      bool     `json:",default=false"`
	Endpoints   []string `json:",default=[127.0.0.1:2379]"`
	DialTimeout int      `json:",default=5"`
	Username    string   `json:",optional"`
	Password    string   `json:",optional"`
	KeyPrefix   string   `json:",default=/rdt/jobs/"`
}

// JWTConfig configures operator/job token issuing and verification.
type JWTConfig struct {
	Secret string `json:",default=rdt-secret-key"`
	Expire int64  `json:",default=86400"`
	Issuer string `json:",default=rdt"`
}

// TracingConfig configures the OpenTelemetry tracer shared by every job
// span the control plane starts.
type TracingConfig struct {
	Enable       bool    `json:",default=false"`
	ServiceName  string  `json:",default=rdt-controlplane"`
	Endpoint     string  `json:",default=http://localhost:14268/api/traces"`
	Exporter     string  `json:",default=jaeger,options=jaeger|zipkin"`
	SampleRate   float64 `json:",default=1.0"`
	Environment  string  `json:",default=development"`
	BatchTimeout int     `json:",default=5"`
	MaxQueueSize int     `json:",default=2048"`
}

// RedisConfig configures the pub/sub bus progress events flow through
// between job goroutines and the websocket hub.
type RedisConfig struct {
	Addr         string `json:",default=127.0.0.1:6379"`
	Password     string `json:",optional"`
	DB           int    `json:",default=0"`
	PoolSize     int    `json:",default=10"`
	MinIdleConns int    `json:",default=2"`
}

// RateLimitConfig throttles the REST API's request rate.
type RateLimitConfig struct {
	Enable bool `json:",default=true"`
	Rate   int  `json:",default=100"`
	Burst  int  `json:",default=200"`
}
