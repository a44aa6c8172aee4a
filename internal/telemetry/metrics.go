// Package telemetry carries the process-wide observability plumbing: a
// Prometheus registry with the assistant's counters and an OpenTelemetry
// tracer provider exported over OTLP/HTTP.
package telemetry

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService is the service name under which Metrics is registered.
const MetricsService = "telemetry.metrics"

// Question outcomes.
const (
	OutcomeMatched  = "matched"
	OutcomeFallback = "fallback"
	OutcomeFault    = "fault"
)

const namespace = "tdsta"

// Metrics records question, ingestion and HTTP metrics. Counters are
// exported to Prometheus and mirrored in atomics for the status endpoint.
type Metrics struct {
	registry *prometheus.Registry

	questions      *prometheus.CounterVec
	topics         *prometheus.CounterVec
	images         *prometheus.CounterVec
	ingestedItems  *prometheus.CounterVec
	ingestFailures *prometheus.CounterVec
	corpusItems    prometheus.Gauge
	requests       *prometheus.HistogramVec

	matched  atomic.Int64
	fallback atomic.Int64
	faults   atomic.Int64
	failures atomic.Int64
}

// NewMetrics creates a Metrics backed by a fresh registry that also
// carries the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions answered, by outcome.",
		}, []string{"outcome"}),
		topics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topic_matches_total",
			Help:      "Questions matched, by topic.",
		}, []string{"topic"}),
		images: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_total",
			Help:      "Attached images, by decode result.",
		}, []string{"result"}),
		ingestedItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_items_total",
			Help:      "Content items appended to the corpus, by source.",
		}, []string{"source"}),
		ingestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_failures_total",
			Help:      "Ingestion passes that degraded to zero items, by source.",
		}, []string{"source"}),
		corpusItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_items",
			Help:      "Current number of items in the corpus.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.questions, m.topics, m.images,
		m.ingestedItems, m.ingestFailures, m.corpusItems,
		m.requests,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveQuestion records one answered question. topicID is empty unless
// outcome is OutcomeMatched.
func (m *Metrics) ObserveQuestion(outcome, topicID string) {
	m.questions.WithLabelValues(outcome).Inc()
	switch outcome {
	case OutcomeMatched:
		m.matched.Add(1)
		m.topics.WithLabelValues(topicID).Inc()
	case OutcomeFallback:
		m.fallback.Add(1)
	case OutcomeFault:
		m.faults.Add(1)
	}
}

// ObserveImage records an attached image and whether it decoded.
func (m *Metrics) ObserveImage(decoded bool) {
	result := "decoded"
	if !decoded {
		result = "invalid"
	}
	m.images.WithLabelValues(result).Inc()
}

// ObserveIngestion records a completed ingestion pass.
func (m *Metrics) ObserveIngestion(source string, items, corpusSize int, err error) {
	if err != nil {
		m.ingestFailures.WithLabelValues(source).Inc()
		m.failures.Add(1)
	} else {
		m.ingestedItems.WithLabelValues(source).Add(float64(items))
	}
	m.corpusItems.Set(float64(corpusSize))
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

// Snapshot returns the question and ingestion counters.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		QuestionsMatched:  m.matched.Load(),
		QuestionsFallback: m.fallback.Load(),
		QuestionFaults:    m.faults.Load(),
		IngestionFailures: m.failures.Load(),
	}
}

// Snapshot is a serialisable view of the main counters.
type Snapshot struct {
	QuestionsMatched  int64 `json:"questions_matched"`
	QuestionsFallback int64 `json:"questions_fallback"`
	QuestionFaults    int64 `json:"question_faults"`
	IngestionFailures int64 `json:"ingestion_failures"`
}
