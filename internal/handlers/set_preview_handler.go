package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"io.winapps.meicho/internal/apperrors"
	previewmodels "io.winapps.meicho/internal/models/set_preview"
)

// SetPreview makes one of the entry's media the preview
func (h *EntryHandler) SetPreview(c *gin.Context) {
	entryID := c.Param("id")

	var req previewmodels.SetPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logError(c, apperrors.NewValidationError("mediaId", "Media ID is required"), "invalid set preview request", "bind_error", err)
		return
	}

	store, err := h.stores.For(c.Request.Context(), callerUID(c))
	if err != nil {
		h.logError(c, err, "failed to open entry store")
		return
	}

	entry, err := store.SetPreview(c.Request.Context(), entryID, req.MediaID)
	h.respondEntry(c, store, entry, err, http.StatusOK, "failed to set preview")
}
