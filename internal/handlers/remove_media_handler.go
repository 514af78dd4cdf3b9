package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RemoveMedia deletes one media file from an entry
func (h *EntryHandler) RemoveMedia(c *gin.Context) {
	entryID := c.Param("id")
	mediaID := c.Param("mediaId")

	store, err := h.stores.For(c.Request.Context(), callerUID(c))
	if err != nil {
		h.logError(c, err, "failed to open entry store")
		return
	}

	entry, err := store.RemoveMedia(c.Request.Context(), entryID, mediaID)
	h.respondEntry(c, store, entry, err, http.StatusOK, "failed to remove media")
}
