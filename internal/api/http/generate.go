package http

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/indranet/internal/domain/generation"
	"github.com/GriffinCanCode/indranet/internal/domain/session"
	"github.com/GriffinCanCode/indranet/internal/providers/browser"
)

// frameCSP sandboxes the frame even when it is loaded by URL
const frameCSP = "sandbox allow-scripts allow-forms"

type generateRequest struct {
	URL string `json:"url" binding:"required,max=2048,pageurl"`
	// ParentID nil means the current node, "" means a new root
	ParentID *string `json:"parent_id" binding:"omitempty,max=128"`
	// Wait blocks until the page has been generated
	Wait bool `json:"wait"`
}

type frameMessage struct {
	Target string `json:"target" binding:"required,max=4096"`
}

// Generate creates a node for a URL and streams its content
func (h *Handlers) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	parentID := ""
	if req.ParentID != nil {
		parentID = *req.ParentID
	} else if cur, ok := h.store.CurrentID(); ok {
		parentID = cur
	}

	if req.Wait {
		r, err := h.pipeline.Generate(c.Request.Context(), req.URL, parentID)
		if r == nil {
			h.generationError(c, err)
			return
		}
		if err != nil {
			// Stream errors are reported in the request info
			h.logger.Debug("Generation wait ended", zap.String("request_id", r.ID), zap.Error(err))
		}
		c.JSON(http.StatusOK, gin.H{"changed": true, "request": r.Info()})
		return
	}

	h.started202(c, func() (*generation.Request, error) {
		return h.pipeline.Start(req.URL, parentID)
	})
}

// Refresh regenerates the current page as a sibling
func (h *Handlers) Refresh(c *gin.Context) {
	h.started202(c, h.pipeline.Refresh)
}

// FrameMessage handles a navigation posted by the sandboxed frame
func (h *Handlers) FrameMessage(c *gin.Context) {
	var msg frameMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	r, err := h.pipeline.Navigate(msg.Target)
	if errors.Is(err, browser.ErrUnresolvableTarget) {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		h.generationError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"changed": true, "request": r.Info()})
}

func (h *Handlers) started202(c *gin.Context, start func() (*generation.Request, error)) {
	r, err := start()
	if err != nil {
		h.generationError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"changed": true, "request": r.Info()})
}

// Frame serves the sandboxed HTML of a node, the current one by default
func (h *Handlers) Frame(c *gin.Context) {
	var (
		n  session.Node
		ok bool
	)
	if id := c.Param("id"); id != "" {
		n, ok = h.store.Get(id)
	} else {
		n, ok = h.store.Current()
	}
	if !ok {
		respondError(c, http.StatusNotFound, errNodeNotFound)
		return
	}
	if n.Content == nil {
		c.Status(http.StatusNoContent)
		return
	}

	page, err := browser.Transform(*n.Content)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	sum := sha256.Sum256([]byte(page))
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")
	c.Header("Content-Security-Policy", frameCSP)
	c.Header("X-Node-Id", n.ID)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// ListRequests returns in-flight and recently finished generations
func (h *Handlers) ListRequests(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sequence": h.pipeline.Sequence(),
		"active":   h.pipeline.Active(),
		"recent":   h.pipeline.Recent(),
		"stats":    h.pipeline.Stats(),
	})
}

// GetRequest returns one generation request
func (h *Handlers) GetRequest(c *gin.Context) {
	r, ok := h.pipeline.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, errors.New("request not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": r.Info()})
}
