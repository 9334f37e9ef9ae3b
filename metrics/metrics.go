// Package metrics exposes Prometheus collectors for resolution passes:
// template cache behaviour, diagnostics by kind, list anomalies, emitted
// triples and reload outcomes.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/semform/diagnostic"
)

const namespace = "semform"

// Pass outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeSuperseded = "superseded"
	OutcomeFailed     = "failed"
)

// Metrics holds the collectors of one process.
type Metrics struct {
	passes            *prometheus.CounterVec
	passDuration      prometheus.Histogram
	generation        prometheus.Gauge
	storeQuads        prometheus.Gauge
	templatesResolved prometheus.Counter
	templateCacheHits prometheus.Counter
	diagnostics       *prometheus.CounterVec
	listAnomalies     prometheus.Counter
	emittedTriples    prometheus.Counter
	classCacheHits    prometheus.Gauge
	classCacheMisses  prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Resolution passes by outcome.",
		}, []string{"outcome"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Time to load and prepare a resolution pass.",
			Buckets:   prometheus.DefBuckets,
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pass_generation",
			Help:      "Generation of the installed pass.",
		}),
		storeQuads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_quads",
			Help:      "Quads in the store of the installed pass.",
		}),
		templatesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "templates_resolved_total",
			Help:      "Node templates resolved.",
		}),
		templateCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "template_cache_hits_total",
			Help:      "Node template lookups served from the pass cache.",
		}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Recoverable problems reported during resolution, by kind.",
		}, []string{"kind"}),
		listAnomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_anomalies_total",
			Help:      "Broken RDF lists found during extraction.",
		}),
		emittedTriples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emitted_triples_total",
			Help:      "Triples written by instance emission.",
		}),
		classCacheHits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "class_cache_hits",
			Help:      "Class instance lookups served from the cache.",
		}),
		classCacheMisses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "class_cache_misses",
			Help:      "Class instance lookups that reached the provider.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.passes, m.passDuration, m.generation, m.storeQuads,
		m.templatesResolved, m.templateCacheHits, m.diagnostics,
		m.listAnomalies, m.emittedTriples, m.classCacheHits, m.classCacheMisses,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// TemplateResolved counts a resolved node template.
func (m *Metrics) TemplateResolved() {
	if m == nil {
		return
	}
	m.templatesResolved.Inc()
}

// TemplateCacheHit counts a cached node template lookup.
func (m *Metrics) TemplateCacheHit() {
	if m == nil {
		return
	}
	m.templateCacheHits.Inc()
}

// Diagnostic counts a reported diagnostic. It has the signature of
// diagnostic.List.OnReport callbacks.
func (m *Metrics) Diagnostic(d diagnostic.Diagnostic) {
	if m == nil {
		return
	}
	m.diagnostics.WithLabelValues(string(d.Kind)).Inc()
}

// ListAnomalies counts broken lists.
func (m *Metrics) ListAnomalies(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.listAnomalies.Add(float64(n))
}

// Emitted counts triples written by emission.
func (m *Metrics) Emitted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.emittedTriples.Add(float64(n))
}

// PassFinished records the outcome and duration of a load.
func (m *Metrics) PassFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(outcome).Inc()
	m.passDuration.Observe(d.Seconds())
}

// PassInstalled records the generation and store size of the new pass.
func (m *Metrics) PassInstalled(generation uint64, quads int) {
	if m == nil {
		return
	}
	m.generation.Set(float64(generation))
	m.storeQuads.Set(float64(quads))
}

// ClassCache records class instance cache counters.
func (m *Metrics) ClassCache(hits, misses int64) {
	if m == nil {
		return
	}
	m.classCacheHits.Set(float64(hits))
	m.classCacheMisses.Set(float64(misses))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
