package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "indranet"

// Metrics holds all Prometheus metrics. Each instance owns its registry so
// several servers (or tests) can coexist in one process. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Tree metrics
	NodesActive  prometheus.Gauge
	NodesCreated prometheus.Counter
	NodesDeleted prometheus.Counter

	// Generation metrics
	GenerationsTotal   *prometheus.CounterVec
	GenerationsActive  prometheus.Gauge
	GenerationDuration prometheus.Histogram
	GenerationChunks   *prometheus.CounterVec
	GenerationTokens   *prometheus.CounterVec

	// Session persistence metrics
	SessionSaves     *prometheus.CounterVec
	SessionsRestored prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveNodes       int64   `json:"active_nodes"`
	ActiveGenerations int64   `json:"active_generations"`
	ActiveConnections int64   `json:"active_connections"`
	TotalDuration     float64 `json:"total_duration"` // sum of all request durations
	RequestCount      int64   `json:"request_count"`  // count for averaging
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector with a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_size_bytes",
				Help:      "HTTP request size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Tree metrics
		NodesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "nodes_active",
				Help:      "Number of nodes in the navigation tree",
			},
		),
		NodesCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_created_total",
				Help:      "Total number of nodes created",
			},
		),
		NodesDeleted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_deleted_total",
				Help:      "Total number of nodes deleted, descendants included",
			},
		),

		// Generation metrics
		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Finished generation requests by outcome",
			},
			[]string{"outcome"},
		),
		GenerationsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "generations_active",
				Help:      "Generation streams currently open",
			},
		),
		GenerationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Wall time from issue to end of stream",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
			},
		),
		GenerationChunks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_chunks_total",
				Help:      "Streamed text chunks by fate",
			},
			[]string{"result"},
		),
		GenerationTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_tokens_total",
				Help:      "Model tokens reported by the provider",
			},
			[]string{"direction"},
		),

		// Session metrics
		SessionSaves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_saves_total",
				Help:      "Session blob writes by result",
			},
			[]string{"result"},
		),
		SessionsRestored: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_restored_total",
				Help:      "Total number of sessions restored",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	// System metrics
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry backing this instance
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SetNodesActive sets the current tree size
func (m *Metrics) SetNodesActive(count int) {
	if m == nil {
		return
	}
	m.NodesActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveNodes = int64(count)
	m.mu.Unlock()
}

// IncNodesCreated counts a created node
func (m *Metrics) IncNodesCreated() {
	if m == nil {
		return
	}
	m.NodesCreated.Inc()
}

// IncNodesDeleted counts a deleted node
func (m *Metrics) IncNodesDeleted() {
	if m == nil {
		return
	}
	m.NodesDeleted.Inc()
}

// GenerationStarted marks a stream as open
func (m *Metrics) GenerationStarted() {
	if m == nil {
		return
	}
	m.GenerationsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveGenerations++
	m.mu.Unlock()
}

// GenerationFinished records the outcome of a stream
func (m *Metrics) GenerationFinished(outcome string, duration time.Duration, inputTokens, outputTokens int64) {
	if m == nil {
		return
	}
	m.GenerationsActive.Dec()
	m.GenerationsTotal.WithLabelValues(outcome).Inc()
	m.GenerationDuration.Observe(duration.Seconds())
	m.GenerationTokens.WithLabelValues("input").Add(float64(inputTokens))
	m.GenerationTokens.WithLabelValues("output").Add(float64(outputTokens))
	m.mu.Lock()
	m.snapshot.ActiveGenerations--
	m.mu.Unlock()
}

// RecordChunk counts a streamed chunk as applied or discarded
func (m *Metrics) RecordChunk(applied bool) {
	if m == nil {
		return
	}
	result := "discarded"
	if applied {
		result = "applied"
	}
	m.GenerationChunks.WithLabelValues(result).Inc()
}

// RecordSessionSave counts a blob write
func (m *Metrics) RecordSessionSave(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SessionSaves.WithLabelValues(result).Inc()
}

// IncSessionsRestored increments the sessions restored counter
func (m *Metrics) IncSessionsRestored() {
	if m == nil {
		return
	}
	m.SessionsRestored.Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}
