package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"io.winapps.meicho/internal/apperrors"
	promptmodels "io.winapps.meicho/internal/models/prompt"
	"io.winapps.meicho/internal/prompt"
)

func promptResponse(p *prompt.Prompt) promptmodels.PromptResponse {
	if p == nil {
		return promptmodels.PromptResponse{}
	}
	return promptmodels.PromptResponse{Text: p.Text, ExpiresAt: p.ExpiresAt, Completed: p.Completed, Active: true}
}

// GetPrompt returns today's prompt, rotating it first when the previous one expired
func (h *EntryHandler) GetPrompt(c *gin.Context) {
	store, err := h.stores.For(c.Request.Context(), callerUID(c))
	if err != nil {
		h.logError(c, err, "failed to open entry store")
		return
	}

	p, _ := store.CheckPrompt(c.Request.Context())
	c.JSON(http.StatusOK, promptResponse(p))
}

// SetPrompt replaces the active prompt, e.g. when the user picks a different challenge
func (h *EntryHandler) SetPrompt(c *gin.Context) {
	var req promptmodels.SetPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logError(c, apperrors.NewValidationError("text", "Prompt text is required"), "invalid set prompt request", "bind_error", err)
		return
	}

	store, err := h.stores.For(c.Request.Context(), callerUID(c))
	if err != nil {
		h.logError(c, err, "failed to open entry store")
		return
	}

	c.JSON(http.StatusOK, promptResponse(store.SetPrompt(c.Request.Context(), req.Text)))
}

// CompletePrompt marks the active prompt as done
func (h *EntryHandler) CompletePrompt(c *gin.Context) {
	store, err := h.stores.For(c.Request.Context(), callerUID(c))
	if err != nil {
		h.logError(c, err, "failed to open entry store")
		return
	}

	if !store.CompletePrompt(c.Request.Context()) {
		c.JSON(http.StatusConflict, gin.H{"error": "There is no active prompt to complete"})
		return
	}
	c.JSON(http.StatusOK, promptResponse(store.Prompt()))
}

// GetStreak returns the caller's consecutive-day writing streak
func (h *EntryHandler) GetStreak(c *gin.Context) {
	store, err := h.stores.For(c.Request.Context(), callerUID(c))
	if err != nil {
		h.logError(c, err, "failed to open entry store")
		return
	}
	c.JSON(http.StatusOK, promptmodels.StreakResponse{Streak: store.Streak()})
}
