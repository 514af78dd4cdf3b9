package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	listmodels "io.winapps.meicho/internal/models/list_entries"
)

// GetUniqueLocations returns every location label the caller has saved, for the location filter
func (h *EntryHandler) GetUniqueLocations(c *gin.Context) {
	store, err := h.stores.For(c.Request.Context(), callerUID(c))
	if err != nil {
		h.logError(c, err, "failed to open entry store")
		return
	}

	locations, err := store.Locations(c.Request.Context())
	if err != nil {
		h.logError(c, err, "failed to fetch unique locations")
		return
	}
	if locations == nil {
		locations = []string{}
	}

	c.JSON(http.StatusOK, listmodels.ListLocationsResponse{Locations: locations})
}
