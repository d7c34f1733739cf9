package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics owns the api process registry: request-level metrics plus
// answer-pipeline counters.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queriesTotal       *prometheus.CounterVec
	queryDuration      *prometheus.HistogramVec
	querySources       *prometheus.HistogramVec
	queryNoContext     *prometheus.CounterVec
	conversationalHits prometheus.Counter
	keywordFallbacks   prometheus.Counter
	rerankUsed         prometheus.Counter
	answerRegenerated  prometheus.Counter
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "query",
			Name:      "answered_total",
			Help:      "Total answered queries by question type.",
		},
		[]string{"service", "question_type"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Answer pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	querySources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "query",
			Name:      "cited_sources",
			Help:      "Distribution of cited sources per answered query.",
			Buckets:   []float64{0, 1, 2, 3},
		},
		[]string{"service"},
	)
	queryNoContext := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "query",
			Name:      "no_context_total",
			Help:      "Total answered queries without any retrieved context.",
		},
		[]string{"service"},
	)
	conversationalHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "query",
			Name:      "conversational_total",
			Help:      "Total queries answered without retrieval.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	keywordFallbacks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "query",
			Name:      "keyword_fallback_total",
			Help:      "Total searches downgraded to keyword-only retrieval.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rerankUsed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "query",
			Name:      "rerank_total",
			Help:      "Total queries that went through the reranker.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answerRegenerated := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "query",
			Name:      "answer_regenerated_total",
			Help:      "Total answers regenerated after a failed grounding check.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queriesTotal,
		queryDuration,
		querySources,
		queryNoContext,
		conversationalHits,
		keywordFallbacks,
		rerankUsed,
		answerRegenerated,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		queriesTotal:       queriesTotal,
		queryDuration:      queryDuration,
		querySources:       querySources,
		queryNoContext:     queryNoContext,
		conversationalHits: conversationalHits,
		keywordFallbacks:   keywordFallbacks,
		rerankUsed:         rerankUsed,
		answerRegenerated:  answerRegenerated,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordAnsweredQuery(service, questionType string, sourceCount int, duration time.Duration) {
	if questionType == "" {
		questionType = "unknown"
	}
	m.queriesTotal.WithLabelValues(service, questionType).Inc()
	m.queryDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.querySources.WithLabelValues(service).Observe(float64(sourceCount))
	if sourceCount == 0 {
		m.queryNoContext.WithLabelValues(service).Inc()
	}
}

// Pipeline returns the counters the answer pipeline increments directly.
func (m *HTTPServerMetrics) Pipeline() *PipelineCounters {
	return &PipelineCounters{
		conversational: m.conversationalHits,
		keywordOnly:    m.keywordFallbacks,
		reranked:       m.rerankUsed,
		regenerated:    m.answerRegenerated,
	}
}

// PipelineCounters feeds pipeline events into the registry without the
// orchestrator importing prometheus.
type PipelineCounters struct {
	conversational prometheus.Counter
	keywordOnly    prometheus.Counter
	reranked       prometheus.Counter
	regenerated    prometheus.Counter
}

func (p *PipelineCounters) ConversationalQuery() { p.conversational.Inc() }
func (p *PipelineCounters) KeywordFallback()     { p.keywordOnly.Inc() }
func (p *PipelineCounters) RerankUsed()          { p.reranked.Inc() }
func (p *PipelineCounters) AnswerRegenerated()   { p.regenerated.Inc() }

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
