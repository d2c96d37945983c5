package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstancesDoNotShareRegistry(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.IncNodesCreated()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.NodesCreated))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.NodesCreated))
}

func TestGenerationLifecycle(t *testing.T) {
	m := NewMetrics()

	m.GenerationStarted()
	assert.Equal(t, int64(1), m.Snapshot().ActiveGenerations)

	m.RecordChunk(true)
	m.RecordChunk(true)
	m.RecordChunk(false)
	m.GenerationFinished("superseded", 2*time.Second, 10, 20)

	assert.Equal(t, int64(0), m.Snapshot().ActiveGenerations)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.GenerationChunks.WithLabelValues("applied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GenerationChunks.WithLabelValues("discarded")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("superseded")))
	assert.Equal(t, float64(20), testutil.ToFloat64(m.GenerationTokens.WithLabelValues("output")))
}

func TestSessionSaves(t *testing.T) {
	m := NewMetrics()
	m.RecordSessionSave(nil)
	m.RecordSessionSave(errors.New("disk full"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionSaves.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionSaves.WithLabelValues("error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncNodesCreated()
		m.GenerationStarted()
		m.GenerationFinished("completed", time.Second, 0, 0)
		m.RecordWSMessage("out", "token")
		_ = m.Snapshot()
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/nodes/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for _, path := range []string{"/nodes/a", "/nodes/b", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/nodes/:id", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "indranet_http_requests_total")
	assert.Contains(t, w.Body.String(), "indranet_uptime_seconds")
}
