package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the rdt-sender CLI's full configuration.
type Config struct {
	// Protocol selects the wire protocol: "gbn" or "sr".
	Protocol string `yaml:"protocol"`
	// ListenAddr is the local UDP address to bind.
	ListenAddr string `yaml:"listen_addr"`
	// PeerAddr is the receiver's UDP address.
	PeerAddr string `yaml:"peer_addr"`
	// FilePath is the local file to transfer.
	FilePath string `yaml:"file_path"`

	// MetricsAddr, if non-empty, serves Prometheus metrics at /metrics.
	MetricsAddr string `yaml:"metrics_addr"`

	// LossRate, if non-zero, wraps the socket in the loss-injection test
	// affordance and drops outbound datagrams with that probability. When
	// both LossRate and LossDelay are zero (the default) the socket is not
	// wrapped: every datagram goes straight to the kernel.
	LossRate float64 `yaml:"loss_rate"`
	// LossDelay is the artificial per-send pacing delay applied alongside
	// LossRate. Zero disables pacing.
	LossDelay time.Duration `yaml:"loss_delay"`

	// JobID, if non-empty, tags progress events published to Redis so the
	// control plane's websocket hub can fan them out to this job's
	// subscribers.
	JobID string      `yaml:"job_id"`
	Redis RedisConfig `yaml:"redis"`

	Tracing TracingConfig `yaml:"tracing"`

	Log LogConfig `yaml:"log"`
}

// RedisConfig configures the progress-event publisher.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// TracingConfig configures the job span exporter.
type TracingConfig struct {
	Enable      bool    `yaml:"enable"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Exporter    string  `yaml:"exporter"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config usable without any file on disk.
func DefaultConfig() *Config {
	return &Config{
		Protocol:   "gbn",
		ListenAddr: ":0",
		Log:        LogConfig{Level: "info"},
		Tracing: TracingConfig{
			ServiceName: "rdt-sender",
			Endpoint:    "http://localhost:14268/api/traces",
			Exporter:    "jaeger",
			SampleRate:  1.0,
		},
	}
}

func loadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}
