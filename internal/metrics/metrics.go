package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "calldesk"

// Metrics holds all application metrics on a private registry
type Metrics struct {
	registry *prometheus.Registry

	mutationsTotal        *prometheus.CounterVec
	broadcastsTotal       *prometheus.CounterVec
	broadcastFailures     *prometheus.CounterVec
	broadcastWarnings     *prometheus.CounterVec
	transcriptFetches     *prometheus.CounterVec
	transcriptDuration    prometheus.Histogram
	sentimentMerges       *prometheus.CounterVec
	alertsTotal           *prometheus.CounterVec
	snapshotsTotal        *prometheus.CounterVec
	websocketConnections  prometheus.Counter
	websocketErrors       prometheus.Counter
	activeConnectionGauge prometheus.Gauge
	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec

	activeConnections atomic.Int64
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New builds an independent metrics set; tests use it to avoid shared state
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Call desk mutations by operation and result.",
		}, []string{"op", "result"}),
		broadcastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Events broadcast to subscribers.",
		}, []string{"event"}),
		broadcastFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_delivery_failures_total",
			Help:      "Per-subscriber delivery failures.",
		}, []string{"event"}),
		broadcastWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_warnings_total",
			Help:      "Notification failures after a successful write, by stage.",
		}, []string{"event", "stage"}),
		transcriptFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_fetches_total",
			Help:      "Transcript fetches by result.",
		}, []string{"result"}),
		transcriptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcript_fetch_duration_seconds",
			Help:      "Time spent fetching a transcript.",
			Buckets:   prometheus.DefBuckets,
		}),
		sentimentMerges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentiment_merges_total",
			Help:      "Sentiment merges by outcome.",
		}, []string{"outcome"}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts raised by rule and result.",
		}, []string{"rule", "result"}),
		snapshotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_snapshots_total",
			Help:      "Daily stats snapshots by result.",
		}, []string{"result"}),
		websocketConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_connections_total",
			Help:      "Websocket connections accepted.",
		}),
		websocketErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_errors_total",
			Help:      "Websocket read or write errors.",
		}),
		activeConnectionGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_active_connections",
			Help:      "Currently connected websocket subscribers.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.mutationsTotal,
		m.broadcastsTotal,
		m.broadcastFailures,
		m.broadcastWarnings,
		m.transcriptFetches,
		m.transcriptDuration,
		m.sentimentMerges,
		m.alertsTotal,
		m.snapshotsTotal,
		m.websocketConnections,
		m.websocketErrors,
		m.activeConnectionGauge,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)
	return m
}

// RecordMutation counts a mutation; result is "ok" or an error class
func (m *Metrics) RecordMutation(op, result string) {
	m.mutationsTotal.WithLabelValues(op, result).Inc()
}

// RecordBroadcast counts one broadcast and its failed deliveries
func (m *Metrics) RecordBroadcast(event string, failed int) {
	m.broadcastsTotal.WithLabelValues(event).Inc()
	if failed > 0 {
		m.broadcastFailures.WithLabelValues(event).Add(float64(failed))
	}
}

// RecordBroadcastWarning counts a rebuild or delivery failure
func (m *Metrics) RecordBroadcastWarning(event, stage string) {
	m.broadcastWarnings.WithLabelValues(event, stage).Inc()
}

// RecordTranscriptFetch records a fetch outcome and its latency
func (m *Metrics) RecordTranscriptFetch(result string, duration time.Duration) {
	m.transcriptFetches.WithLabelValues(result).Inc()
	m.transcriptDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordSentimentMerge(outcome string) {
	m.sentimentMerges.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordAlert(rule, result string) {
	m.alertsTotal.WithLabelValues(rule, result).Inc()
}

func (m *Metrics) RecordSnapshot(result string) {
	m.snapshotsTotal.WithLabelValues(result).Inc()
}

// RecordWebSocketConnect increments connection counters
func (m *Metrics) RecordWebSocketConnect() {
	m.websocketConnections.Inc()
	m.activeConnectionGauge.Inc()
	m.activeConnections.Add(1)
}

// RecordWebSocketDisconnect decrements the active connection gauge
func (m *Metrics) RecordWebSocketDisconnect() {
	m.activeConnectionGauge.Dec()
	m.activeConnections.Add(-1)
}

// RecordWebSocketError increments WebSocket error counter
func (m *Metrics) RecordWebSocketError() {
	m.websocketErrors.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(route string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// GetActiveConnections returns current WebSocket connections
func (m *Metrics) GetActiveConnections() int64 {
	return m.activeConnections.Load()
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
