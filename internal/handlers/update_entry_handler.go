package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"io.winapps.meicho/internal/apperrors"
	journal "io.winapps.meicho/internal/models/journal"
	updatemodels "io.winapps.meicho/internal/models/update_entry"
)

// UpdateEntry applies a partial update and uploads any newly attached media
func (h *EntryHandler) UpdateEntry(c *gin.Context) {
	entryID := c.Param("id")

	var form updatemodels.UpdateEntryForm
	if err := c.ShouldBind(&form); err != nil {
		h.logError(c, apperrors.NewValidationError("entry", "Invalid request format"), "invalid update entry form", "bind_error", err)
		return
	}

	var patch journal.EntryPatch
	if strings.TrimSpace(form.Entry) != "" {
		if err := json.Unmarshal([]byte(form.Entry), &patch); err != nil {
			h.logError(c, apperrors.NewValidationError("entry", "Entry must be a JSON object"), "invalid entry patch json", "decode_error", err)
			return
		}
	}

	store, err := h.stores.For(c.Request.Context(), callerUID(c))
	if err != nil {
		h.logError(c, err, "failed to open entry store")
		return
	}

	draft, err := h.readDraft(c, form.Preview)
	if err != nil {
		h.logError(c, err, "failed to read media files", "entry_id", entryID)
		return
	}
	if draft != nil {
		defer h.discardDraft(c, draft)
	}

	entry, err := store.Update(c.Request.Context(), entryID, patch, draft)
	h.respondEntry(c, store, entry, err, http.StatusOK, "failed to update entry")
}
