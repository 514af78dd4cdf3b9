package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"io.winapps.meicho/internal/apperrors"
)

// AddMedia uploads one or more files to an existing entry
func (h *EntryHandler) AddMedia(c *gin.Context) {
	entryID := c.Param("id")

	var preview *int
	if raw := c.PostForm("preview"); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			h.logError(c, apperrors.NewValidationError("preview", "Preview must be a file index"), "invalid preview index", "entry_id", entryID)
			return
		}
		preview = &idx
	}

	draft, err := h.readDraft(c, preview)
	if err != nil {
		h.logError(c, err, "failed to read media files", "entry_id", entryID)
		return
	}
	if draft == nil {
		h.logError(c, apperrors.NewValidationError("media", "Choose at least one photo or video"), "no media attached", "entry_id", entryID)
		return
	}
	defer h.discardDraft(c, draft)

	store, err := h.stores.For(c.Request.Context(), callerUID(c))
	if err != nil {
		h.logError(c, err, "failed to open entry store")
		return
	}

	entry, err := store.AttachMedia(c.Request.Context(), entryID, draft)
	h.respondEntry(c, store, entry, err, http.StatusOK, "failed to add media")
}
