package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"io.winapps.meicho/internal/apperrors"
	journal "io.winapps.meicho/internal/models/journal"
	listmodels "io.winapps.meicho/internal/models/list_entries"
	"io.winapps.meicho/internal/repository"
)

// ListEntries returns one page of the caller's entries, newest first
func (h *EntryHandler) ListEntries(c *gin.Context) {
	var q listmodels.ListEntriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.logError(c, apperrors.NewValidationError("query", "Invalid filter or paging parameters"), "invalid list query", "bind_error", err)
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = repository.DefaultPageSize
	}

	store, err := h.stores.For(c.Request.Context(), callerUID(c))
	if err != nil {
		h.logError(c, err, "failed to open entry store")
		return
	}

	page, err := store.List(c.Request.Context(), journal.ListFilter{
		Status:   journal.EntryStatus(q.Status),
		Location: q.Location,
		Tag:      q.Tag,
		Query:    q.Q,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
	if err != nil {
		h.logError(c, err, "failed to list entries")
		return
	}

	c.JSON(http.StatusOK, listmodels.ListEntriesResponse{
		Entries:  page.Entries,
		Total:    page.Total,
		Page:     q.Page,
		PageSize: q.PageSize,
		HasMore:  q.Page*q.PageSize < page.Total,
	})
}
