package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"io.winapps.meicho/internal/apperrors"
	"io.winapps.meicho/internal/entries"
	createmodels "io.winapps.meicho/internal/models/create_entry"
	journal "io.winapps.meicho/internal/models/journal"
)

// CreateEntry handles creation of new journal entries with their media
func (h *EntryHandler) CreateEntry(c *gin.Context) {
	var form createmodels.CreateEntryForm
	if err := c.ShouldBind(&form); err != nil {
		h.logError(c, apperrors.NewValidationError("entry", "Invalid request format"), "invalid create entry form", "bind_error", err)
		return
	}

	var in journal.EntryInput
	if err := json.Unmarshal([]byte(form.Entry), &in); err != nil {
		h.logError(c, apperrors.NewValidationError("entry", "Entry must be a JSON object"), "invalid entry json", "decode_error", err)
		return
	}

	store, err := h.stores.For(c.Request.Context(), callerUID(c))
	if err != nil {
		h.logError(c, err, "failed to open entry store")
		return
	}

	draft, err := h.readDraft(c, form.Preview)
	if err != nil {
		h.logError(c, err, "failed to read media files")
		return
	}
	if draft != nil {
		defer h.discardDraft(c, draft)
	}

	entry, err := store.Create(c.Request.Context(), in, draft)
	h.respondEntry(c, store, entry, err, http.StatusCreated, "failed to create entry")
}

// respondEntry writes the result of an entry mutation. A partial upload still
// returns the saved entry, with the failed files listed.
func (h *EntryHandler) respondEntry(c *gin.Context, store *entries.Store, entry *journal.Entry, err error, okStatus int, msg string) {
	var partial *apperrors.PartialUploadError
	switch {
	case err == nil:
		c.JSON(okStatus, createmodels.EntryResponse{Entry: entry, Streak: store.Streak()})
	case errors.As(err, &partial) && entry != nil:
		logWithContext(h.logger, c, "warn", "entry saved with failed media",
			"entry_id", entry.ID, "uploaded", partial.Uploaded, "skipped", partial.Skipped, "error", err)
		resp := createmodels.EntryResponse{
			Entry:   entry,
			Streak:  store.Streak(),
			Message: apperrors.UserMessage(err),
			Skipped: partial.Skipped,
		}
		for _, f := range partial.Failures {
			resp.Failed = append(resp.Failed, createmodels.FailedUpload{
				Index:  f.Index,
				Name:   f.Name,
				Reason: apperrors.UserMessage(f.Err),
			})
		}
		c.JSON(http.StatusMultiStatus, resp)
	default:
		h.logError(c, err, msg)
	}
}
