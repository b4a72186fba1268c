package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"speed-monitor/internal/models"
)

// Collector exposes measurement outcomes as Prometheus metrics and remembers
// the last completed cycle.
type Collector struct {
	registry *prometheus.Registry

	cycles          *prometheus.CounterVec
	attempts        prometheus.Counter
	attemptFailures prometheus.Counter
	lastPing        prometheus.Gauge
	lastDownload    prometheus.Gauge
	lastUpload      prometheus.Gauge
	lastCycle       prometheus.Gauge

	mu   sync.RWMutex
	last *models.MeasurementRecord
}

// New creates a Collector registered on its own registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "speedmon_cycles_total",
			Help: "Completed measurement cycles by outcome.",
		}, []string{"outcome"}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speedmon_attempts_total",
			Help: "Measurement attempts, including retries.",
		}),
		attemptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speedmon_attempt_failures_total",
			Help: "Measurement attempts that failed before reaching a server.",
		}),
		lastPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "speedmon_last_ping_ms",
			Help: "Latency of the last successful measurement in milliseconds.",
		}),
		lastDownload: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "speedmon_last_download_mbps",
			Help: "Download rate of the last successful measurement.",
		}),
		lastUpload: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "speedmon_last_upload_mbps",
			Help: "Upload rate of the last successful measurement.",
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "speedmon_last_cycle_timestamp_seconds",
			Help: "Unix time of the last completed cycle.",
		}),
	}

	for _, outcome := range []models.Outcome{models.OutcomeSuccess, models.OutcomePartial, models.OutcomeFatal} {
		c.cycles.WithLabelValues(string(outcome))
	}

	c.registry.MustRegister(
		c.cycles, c.attempts, c.attemptFailures,
		c.lastPing, c.lastDownload, c.lastUpload, c.lastCycle,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry holding all collectors
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveAttempt counts one measurement attempt
func (c *Collector) ObserveAttempt(err error) {
	c.attempts.Inc()
	if err != nil {
		c.attemptFailures.Inc()
	}
}

// ObserveCycle records the outcome of a persisted cycle
func (c *Collector) ObserveCycle(r models.MeasurementRecord) {
	c.cycles.WithLabelValues(string(r.Outcome())).Inc()
	c.lastCycle.Set(float64(r.TimestampUTC.UnixNano()) / 1e9)
	if r.PingMs != nil {
		c.lastPing.Set(*r.PingMs)
	}
	if r.DownloadMbps != nil {
		c.lastDownload.Set(*r.DownloadMbps)
	}
	if r.UploadMbps != nil {
		c.lastUpload.Set(*r.UploadMbps)
	}

	c.mu.Lock()
	c.last = &r
	c.mu.Unlock()
}

// Last returns the most recent cycle record, if any
func (c *Collector) Last() (models.MeasurementRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return models.MeasurementRecord{}, false
	}
	return *c.last, true
}
