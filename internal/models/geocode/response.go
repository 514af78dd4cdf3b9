package models

type ReverseQuery struct {
	Lat *float64 `form:"lat" binding:"required"`
	Lon *float64 `form:"lon" binding:"required"`
}

type SearchQuery struct {
	Q     string `form:"q" binding:"required"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=10"`
}

// PlaceResponse is one resolved place. Label is the short form saved as the
// entry location.
type PlaceResponse struct {
	City        string  `json:"city"`
	Ward        string  `json:"ward"`
	FullAddress string  `json:"fullAddress"`
	Label       string  `json:"label"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

// ReverseResponse sets Manual when the lookup failed and the user should type the location.
type ReverseResponse struct {
	Place  *PlaceResponse `json:"place,omitempty"`
	Manual bool           `json:"manual"`
}

type SearchResponse struct {
	Places []PlaceResponse `json:"places"`
	Manual bool            `json:"manual"`
}
