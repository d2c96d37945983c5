package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/indranet/internal/domain/session"
	"github.com/GriffinCanCode/indranet/internal/providers/llm"
)

type settingsRequest struct {
	APIKey        *string `json:"apiKey" binding:"omitempty,max=512,printascii"`
	Model         *string `json:"model" binding:"omitempty,min=1,max=128"`
	SystemMessage *string `json:"systemMessage" binding:"omitempty,max=65536"`
	UserMessage   *string `json:"userMessage" binding:"omitempty,max=65536"`
}

// GetSession returns settings with the credential masked
func (h *Handlers) GetSession(c *gin.Context) {
	settings := h.store.Settings()
	cur, ok := h.store.CurrentID()

	body := gin.H{
		"settings":        settings.Masked(),
		"has_credential":  settings.APIKey != "",
		"current_node_id": optional(cur, ok),
		"nodes":           h.store.Len(),
	}
	if h.factory != nil {
		body["provider"] = h.factory.Provider()
		body["requires_credential"] = h.factory.RequiresCredential()
	}
	c.JSON(http.StatusOK, body)
}

// UpdateSettings applies a partial settings update
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	updated := h.store.UpdateSettings(session.SettingsPatch{
		APIKey:        req.APIKey,
		Model:         req.Model,
		SystemMessage: req.SystemMessage,
		UserMessage:   req.UserMessage,
	})

	body := gin.H{"changed": true, "settings": updated.Masked()}
	if req.Model != nil {
		if _, known := h.catalog.Get(*req.Model); !known {
			body["warning"] = "model is not in the catalog"
		}
	}
	c.JSON(http.StatusOK, body)
}

// ResetSetting restores one setting to its default
func (h *Handlers) ResetSetting(c *gin.Context) {
	key := session.SettingKey(c.Param("key"))
	if !h.store.ResetSetting(key) {
		respondError(c, http.StatusBadRequest, errors.New("unknown setting "+string(key)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true, "settings": h.store.Settings().Masked()})
}

// ListModels returns the model catalog, optionally for one provider
func (h *Handlers) ListModels(c *gin.Context) {
	provider := llm.Provider(c.Query("provider"))
	c.JSON(http.StatusOK, gin.H{
		"models":  h.catalog.List(provider),
		"current": h.store.Settings().Model,
	})
}
