package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	getentrymodels "io.winapps.meicho/internal/models/get_entry"
)

// GetEntry returns one entry and records it as the caller's current entry
func (h *EntryHandler) GetEntry(c *gin.Context) {
	entryID := c.Param("id")

	store, err := h.stores.For(c.Request.Context(), callerUID(c))
	if err != nil {
		h.logError(c, err, "failed to open entry store")
		return
	}

	entry, err := store.Get(c.Request.Context(), entryID)
	if err != nil {
		h.logError(c, err, "failed to get entry", "entry_id", entryID)
		return
	}
	store.SetCurrentEntry(entry)

	c.JSON(http.StatusOK, getentrymodels.GetEntryResponse{Entry: *entry})
}
