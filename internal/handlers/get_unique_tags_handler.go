package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	listmodels "io.winapps.meicho/internal/models/list_entries"
)

// GetUniqueTags returns every tag name the caller has used
func (h *EntryHandler) GetUniqueTags(c *gin.Context) {
	store, err := h.stores.For(c.Request.Context(), callerUID(c))
	if err != nil {
		h.logError(c, err, "failed to open entry store")
		return
	}

	tags, err := store.Tags(c.Request.Context())
	if err != nil {
		h.logError(c, err, "failed to fetch unique tags")
		return
	}
	if tags == nil {
		tags = []string{}
	}

	c.JSON(http.StatusOK, listmodels.ListTagsResponse{Tags: tags})
}
