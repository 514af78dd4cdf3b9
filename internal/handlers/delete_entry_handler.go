package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	getentrymodels "io.winapps.meicho/internal/models/get_entry"
)

// DeleteEntry handles the deletion of an entry and its media
func (h *EntryHandler) DeleteEntry(c *gin.Context) {
	entryID := c.Param("id")

	store, err := h.stores.For(c.Request.Context(), callerUID(c))
	if err != nil {
		h.logError(c, err, "failed to open entry store")
		return
	}

	if err := store.Delete(c.Request.Context(), entryID); err != nil {
		h.logError(c, err, "failed to delete entry", "entry_id", entryID)
		return
	}

	c.JSON(http.StatusOK, getentrymodels.DeleteEntryResponse{IsDeleted: true, Message: "Entry deleted successfully"})
}
