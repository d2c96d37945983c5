package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/indranet/internal/api/ws"
	"github.com/GriffinCanCode/indranet/internal/domain/generation"
	"github.com/GriffinCanCode/indranet/internal/domain/session"
	"github.com/GriffinCanCode/indranet/internal/infrastructure/logging"
	"github.com/GriffinCanCode/indranet/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/indranet/internal/providers/llm"
)

// Version is reported by the health endpoints
const Version = "0.3.0"

// Deps are the collaborators the handlers serve. Persister and Hub are
// optional.
type Deps struct {
	Store     *session.Store
	Pipeline  *generation.Pipeline
	Catalog   *llm.Catalog
	Factory   *llm.Factory
	Persister *session.Persister
	Hub       *ws.Hub
	Metrics   *monitoring.Metrics
	Logger    *logging.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	store     *session.Store
	pipeline  *generation.Pipeline
	catalog   *llm.Catalog
	factory   *llm.Factory
	persister *session.Persister
	hub       *ws.Hub
	metrics   *monitoring.Metrics
	logger    *logging.Logger
	started   time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(d Deps) *Handlers {
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	if d.Catalog == nil {
		d.Catalog = llm.NewCatalog()
	}
	return &Handlers{
		store:     d.Store,
		pipeline:  d.Pipeline,
		catalog:   d.Catalog,
		factory:   d.Factory,
		persister: d.Persister,
		hub:       d.Hub,
		metrics:   d.Metrics,
		logger:    d.Logger.Named("api"),
		started:   time.Now(),
	}
}

// Root handles the liveness check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "indranet explorer",
		"version": Version,
	})
}

// Health reports component state
func (h *Handlers) Health(c *gin.Context) {
	cur, ok := h.store.CurrentID()
	body := gin.H{
		"status":             "healthy",
		"version":            Version,
		"uptime_seconds":     int64(time.Since(h.started).Seconds()),
		"nodes":              h.store.Len(),
		"current_node_id":    optional(cur, ok),
		"active_generations": len(h.pipeline.Active()),
		"sequence":           h.pipeline.Sequence(),
	}
	if h.persister != nil {
		body["persistence"] = h.persister.Stats()
	}
	if h.hub != nil {
		body["stream_clients"] = h.hub.Clients()
	}
	c.JSON(http.StatusOK, body)
}

// unchanged answers a no-op
func unchanged(c *gin.Context, reason string) {
	c.JSON(http.StatusOK, gin.H{"changed": false, "reason": reason})
}

func respondError(c *gin.Context, status int, err error) {
	c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func optional(id string, ok bool) *string {
	if !ok {
		return nil
	}
	return &id
}

// generationError maps pipeline errors to responses
func (h *Handlers) generationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, generation.ErrNoCredential):
		unchanged(c, "no credential")
	case errors.Is(err, generation.ErrNoSelection):
		unchanged(c, "no selection")
	case errors.Is(err, generation.ErrClosed):
		respondError(c, http.StatusServiceUnavailable, err)
	default:
		respondError(c, http.StatusInternalServerError, err)
	}
}
