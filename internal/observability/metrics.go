package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	StageOutcomes *prometheus.CounterVec
	StageLatency  *prometheus.HistogramVec
	Verdicts      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the instruments on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewMetricsWith(namespace, reg, reg)
}

// NewMetricsWith registers the instruments on reg and serves them from g.
func NewMetricsWith(namespace string, reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StageOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_total",
			Help:      "Triage pipeline stage completions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		StageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_latency_ms",
			Help:      "Triage pipeline stage latency in milliseconds.",
			Buckets:   []float64{1, 10, 100, 300, 700, 1500, 3000, 6000, 12000},
		}, []string{"stage"}),
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "urgency_verdicts_total",
			Help:      "Delivered urgency verdicts by response language.",
		}, []string{"language", "verdict"}),
		gatherer: g,
	}
}

func (m *Metrics) ObserveStage(stage, outcome string, elapsed time.Duration) {
	m.StageOutcomes.WithLabelValues(stage, outcome).Inc()
	m.StageLatency.WithLabelValues(stage).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) ObserveVerdict(language, verdict string) {
	m.Verdicts.WithLabelValues(language, verdict).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
