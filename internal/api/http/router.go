package http

import (
	"github.com/gin-gonic/gin"
)

// Register mounts every API route on r
func (h *Handlers) Register(r gin.IRouter) {
	RegisterValidators()

	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/session", h.GetSession)
	r.PUT("/session/settings", h.UpdateSettings)
	r.POST("/session/settings/:key/reset", h.ResetSetting)
	r.GET("/models", h.ListModels)

	r.GET("/nodes", h.ListNodes)
	r.GET("/nodes/tree", h.Tree)
	r.GET("/nodes/:id", h.GetNode)
	r.GET("/nodes/:id/links", h.NodeLinks)
	r.DELETE("/nodes/:id", h.DeleteNode)
	r.POST("/nodes/:id/select", h.SelectNode)
	r.POST("/navigate/:direction", h.Navigate)

	r.POST("/generate", h.Generate)
	r.POST("/refresh", h.Refresh)
	r.POST("/frame/message", h.FrameMessage)
	r.GET("/frame", h.Frame)
	r.GET("/frame/:id", h.Frame)

	r.GET("/requests", h.ListRequests)
	r.GET("/requests/:id", h.GetRequest)

	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
	if h.hub != nil {
		r.GET("/stream", h.hub.HandleConnection)
	}
}
