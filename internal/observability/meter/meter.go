// Package meter records the CRM's counters, gauges and timings through OpenTelemetry.
package meter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ScopeName is the instrumentation scope for every instrument this package creates.
const ScopeName = "github.com/target/opscrm-api"

// Sink is the small surface services emit metrics through.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Config controls the OTLP/HTTP metrics exporter.
type Config struct {
	Endpoint    string // host:port of an OTLP/HTTP collector
	Insecure    bool
	ServiceName string
	Prefix      string
	Interval    time.Duration // export interval; 15s when zero
	GlobalTags  map[string]string
	Logger      *slog.Logger
}

// Client adapts Sink calls onto lazily created OTel instruments.
// Counters map to Int64Counter, gauges to Float64Gauge and timings to a
// millisecond Float64Histogram. It is safe for concurrent use.
type Client struct {
	meter  metric.Meter
	prefix string
	global []attribute.KeyValue
	logger *slog.Logger

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	gauges     map[string]metric.Float64Gauge
	histograms map[string]metric.Float64Histogram

	shutdown func(context.Context) error
}

var _ Sink = (*Client)(nil)

// Setup builds a MeterProvider exporting to cfg.Endpoint on a periodic reader.
func Setup(ctx context.Context, cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("metrics endpoint is required")
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil && !errors.Is(err, resource.ErrSchemaURLConflict) {
		return nil, fmt.Errorf("build metric resource: %w", err)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)

	c := New(mp.Meter(ScopeName), cfg.Prefix, cfg.GlobalTags, cfg.Logger)
	c.shutdown = mp.Shutdown
	return c, nil
}

// New returns a Client recording on m. Prefix is prepended to every metric name.
func New(m metric.Meter, prefix string, globalTags map[string]string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		meter:      m,
		prefix:     strings.Trim(strings.TrimSpace(prefix), "."),
		global:     attributes(globalTags),
		logger:     logger,
		counters:   make(map[string]metric.Int64Counter),
		gauges:     make(map[string]metric.Float64Gauge),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// Count adds value to a counter.
func (c *Client) Count(name string, value int64, tags map[string]string) {
	if c == nil {
		return
	}
	name = c.name(name)
	if name == "" {
		return
	}
	c.mu.Lock()
	inst, ok := c.counters[name]
	if !ok {
		var err error
		inst, err = c.meter.Int64Counter(name)
		if err != nil {
			c.logger.Debug("create counter failed", "metric", name, "error", err)
		}
		if inst == nil {
			inst = noop.Int64Counter{}
		}
		c.counters[name] = inst
	}
	c.mu.Unlock()
	inst.Add(context.Background(), value, c.options(tags))
}

// Gauge records the current value of a gauge.
func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	if c == nil {
		return
	}
	name = c.name(name)
	if name == "" {
		return
	}
	c.mu.Lock()
	inst, ok := c.gauges[name]
	if !ok {
		var err error
		inst, err = c.meter.Float64Gauge(name)
		if err != nil {
			c.logger.Debug("create gauge failed", "metric", name, "error", err)
		}
		if inst == nil {
			inst = noop.Float64Gauge{}
		}
		c.gauges[name] = inst
	}
	c.mu.Unlock()
	inst.Record(context.Background(), value, c.options(tags))
}

// Timing records value in milliseconds.
func (c *Client) Timing(name string, value time.Duration, tags map[string]string) {
	if c == nil {
		return
	}
	name = c.name(name)
	if name == "" {
		return
	}
	c.mu.Lock()
	inst, ok := c.histograms[name]
	if !ok {
		var err error
		inst, err = c.meter.Float64Histogram(name, metric.WithUnit("ms"))
		if err != nil {
			c.logger.Debug("create histogram failed", "metric", name, "error", err)
		}
		if inst == nil {
			inst = noop.Float64Histogram{}
		}
		c.histograms[name] = inst
	}
	c.mu.Unlock()
	inst.Record(context.Background(), float64(value)/float64(time.Millisecond), c.options(tags))
}

// Close flushes pending exports and stops the provider built by Setup.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.shutdown == nil {
		return nil
	}
	return c.shutdown(ctx)
}

func (c *Client) name(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	n = strings.NewReplacer(" ", "_", "/", "_").Replace(n)
	if c.prefix == "" {
		return n
	}
	return c.prefix + "." + n
}

func (c *Client) options(tags map[string]string) metric.MeasurementOption {
	local := attributes(tags)
	if len(c.global) == 0 {
		return metric.WithAttributes(local...)
	}
	// Local tags override global ones with the same key.
	return metric.WithAttributeSet(attribute.NewSet(append(append([]attribute.KeyValue{}, c.global...), local...)...))
}

func attributes(tags map[string]string) []attribute.KeyValue {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, attribute.String(strings.TrimSpace(k), strings.TrimSpace(tags[k])))
	}
	return out
}
