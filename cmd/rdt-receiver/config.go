package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the rdt-receiver CLI's full configuration.
type Config struct {
	// Protocol selects the wire protocol: "gbn" or "sr".
	Protocol string `yaml:"protocol"`
	// ListenAddr is the local UDP address to bind and receive on.
	ListenAddr string `yaml:"listen_addr"`
	// FilePath is where the received stream is written.
	FilePath string `yaml:"file_path"`

	// MetricsAddr, if non-empty, serves Prometheus metrics at /metrics.
	MetricsAddr string `yaml:"metrics_addr"`

	// LossRate and LossDelay apply the same loss injection to the
	// receiver's ACK path. Zero disables both.
	LossRate  float64       `yaml:"loss_rate"`
	LossDelay time.Duration `yaml:"loss_delay"`

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
		ListenAddr: ":9690",
		Log:        LogConfig{Level: "info"},
		Tracing: TracingConfig{
			ServiceName: "rdt-receiver",
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
