package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"io.winapps.meicho/internal/geocoding"
	geomodels "io.winapps.meicho/internal/models/geocode"
)

// Geocoder resolves places. *geocoding.Client satisfies it.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*geocoding.Place, error)
	Search(ctx context.Context, query string, limit int) ([]geocoding.Place, error)
}

// GeocodeHandler never fails a lookup outright: when the provider is unavailable
// it answers with manual set so the client falls back to typed input.
type GeocodeHandler struct {
	geocoder Geocoder
	logger   *zap.SugaredLogger
}

func NewGeocodeHandler(geocoder Geocoder, logger *zap.SugaredLogger) *GeocodeHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &GeocodeHandler{geocoder: geocoder, logger: logger}
}

func placeResponse(p geocoding.Place) geomodels.PlaceResponse {
	return geomodels.PlaceResponse{
		City:        p.City,
		Ward:        p.Ward,
		FullAddress: p.FullAddress,
		Label:       p.Label(),
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
	}
}

// Reverse turns the device's coordinates into a location label
func (h *GeocodeHandler) Reverse(c *gin.Context) {
	var q geomodels.ReverseQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon are required"})
		return
	}

	place, err := h.geocoder.Reverse(c.Request.Context(), *q.Lat, *q.Lon)
	if err != nil {
		logWithContext(h.logger, c, "warn", "reverse geocoding failed, falling back to manual entry", "error", err)
		c.JSON(http.StatusOK, geomodels.ReverseResponse{Manual: true})
		return
	}

	resp := placeResponse(*place)
	c.JSON(http.StatusOK, geomodels.ReverseResponse{Place: &resp})
}

// Search looks up candidate places for typed text
func (h *GeocodeHandler) Search(c *gin.Context) {
	var q geomodels.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	places, err := h.geocoder.Search(c.Request.Context(), q.Q, q.Limit)
	if err != nil {
		logWithContext(h.logger, c, "warn", "place search failed, falling back to manual entry", "query", q.Q, "error", err)
		c.JSON(http.StatusOK, geomodels.SearchResponse{Places: []geomodels.PlaceResponse{}, Manual: true})
		return
	}

	resp := geomodels.SearchResponse{Places: make([]geomodels.PlaceResponse, 0, len(places))}
	for _, p := range places {
		resp.Places = append(resp.Places, placeResponse(p))
	}
	c.JSON(http.StatusOK, resp)
}
