package config

import (
	"strings"
	"time"
)

const defaultObservabilityName = "opscrm"

// ObservabilityConfig groups configuration that controls metrics and tracing.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig
	Tracing ObservabilityTracingConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Tracing.Sanitize()
}

// ObservabilityMetricsConfig controls OTLP/HTTP metric export.
type ObservabilityMetricsConfig struct {
	Enabled     bool          `env:"OBSERVABILITY_METRICS_ENABLED"  envDefault:"false"`
	Endpoint    string        `env:"OBSERVABILITY_METRICS_ENDPOINT" envDefault:"localhost:4318"`
	Insecure    bool          `env:"OBSERVABILITY_METRICS_INSECURE" envDefault:"true"`
	Prefix      string        `env:"OBSERVABILITY_METRICS_PREFIX"   envDefault:"opscrm"`
	Interval    time.Duration `env:"OBSERVABILITY_METRICS_INTERVAL" envDefault:"15s"`
	ServiceName string        `env:"OBSERVABILITY_METRICS_SERVICE_NAME" envDefault:"opscrm"`
}

// Sanitize disables metrics without an endpoint and restores a sane export interval.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	if c.Endpoint == "" {
		c.Enabled = false
	}
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.ServiceName = strings.TrimSpace(c.ServiceName); c.ServiceName == "" {
		c.ServiceName = defaultObservabilityName
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.Endpoint != ""
}

// ObservabilityTracingConfig controls OpenTelemetry span export over OTLP/HTTP.
type ObservabilityTracingConfig struct {
	Enabled     bool    `env:"OBSERVABILITY_TRACING_ENABLED"      envDefault:"false"`
	Endpoint    string  `env:"OBSERVABILITY_TRACING_ENDPOINT"     envDefault:"localhost:4318"`
	Insecure    bool    `env:"OBSERVABILITY_TRACING_INSECURE"     envDefault:"true"`
	ServiceName string  `env:"OBSERVABILITY_TRACING_SERVICE_NAME" envDefault:"opscrm"`
	SampleRatio float64 `env:"OBSERVABILITY_TRACING_SAMPLE_RATIO" envDefault:"1"`
}

// Sanitize disables tracing without an endpoint and clamps the sample ratio to (0, 1].
func (c *ObservabilityTracingConfig) Sanitize() {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	if c.Endpoint == "" {
		c.Enabled = false
	}
	if c.ServiceName = strings.TrimSpace(c.ServiceName); c.ServiceName == "" {
		c.ServiceName = defaultObservabilityName
	}
	if c.SampleRatio <= 0 || c.SampleRatio > 1 {
		c.SampleRatio = 1
	}
}
