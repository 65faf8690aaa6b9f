// Package metrics exposes Prometheus metrics for ingestion and sessions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/serial-plotter/backend/internal/ingest"
	"github.com/serial-plotter/backend/internal/models"
)

// Collector owns a private registry so tests and multiple servers in one
// process do not collide on the default one.
type Collector struct {
	registry *prometheus.Registry

	lines            *prometheus.CounterVec
	samples          prometheus.Counter
	dropped          prometheus.Counter
	trimmed          prometheus.Counter
	variablesCreated prometheus.Counter
	schemaChanges    prometheus.Counter
	sessionsActive   prometheus.Gauge
	sourcesRunning   prometheus.Gauge
	replayJobs       *prometheus.CounterVec
}

var _ ingest.Observer = (*Collector)(nil)

// NewCollector creates a collector with Go and process metrics included.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		lines: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "serialplot_lines_total",
			Help: "Lines processed by kind",
		}, []string{"kind"}),
		samples: factory.NewCounter(prometheus.CounterOpts{
			Name: "serialplot_samples_total",
			Help: "Samples appended to series",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "serialplot_samples_dropped_total",
			Help: "Values dropped because auto variable update was off",
		}),
		trimmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "serialplot_samples_trimmed_total",
			Help: "Samples discarded by the memory ceiling",
		}),
		variablesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "serialplot_variables_created_total",
			Help: "Variables created from data lines",
		}),
		schemaChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "serialplot_schema_changes_total",
			Help: "Variable list changes",
		}),
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "serialplot_sessions_active",
			Help: "Open monitor sessions",
		}),
		sourcesRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "serialplot_sources_running",
			Help: "Sources currently feeding sessions",
		}),
		replayJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "serialplot_replay_jobs_total",
			Help: "Finished replay jobs by status",
		}, []string{"status"}),
	}
}

// LineProcessed implements ingest.Observer.
func (c *Collector) LineProcessed(ev ingest.LineEvent) {
	c.lines.WithLabelValues(string(ev.Kind)).Inc()
	if n := len(ev.Samples); n > 0 {
		c.samples.Add(float64(n))
	}
	if ev.Dropped > 0 {
		c.dropped.Add(float64(ev.Dropped))
	}
	if ev.Trimmed > 0 {
		c.trimmed.Add(float64(ev.Trimmed))
	}
	if ev.Created > 0 {
		c.variablesCreated.Add(float64(ev.Created))
	}
}

// SchemaChanged implements ingest.Observer.
func (c *Collector) SchemaChanged([]models.Variable) {
	c.schemaChanges.Inc()
}

// SetSessions sets the open session gauge.
func (c *Collector) SetSessions(n int) {
	c.sessionsActive.Set(float64(n))
}

// SourceStarted increments the running source gauge.
func (c *Collector) SourceStarted() { c.sourcesRunning.Inc() }

// SourceStopped decrements the running source gauge.
func (c *Collector) SourceStopped() { c.sourcesRunning.Dec() }

// ReplayFinished counts a finished replay job.
func (c *Collector) ReplayFinished(status models.ReplayStatus) {
	c.replayJobs.WithLabelValues(string(status)).Inc()
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
