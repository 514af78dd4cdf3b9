package models

import (
	journal "io.winapps.meicho/internal/models/journal"
)

type ListEntriesResponse struct {
	Entries  []journal.Entry `json:"entries"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
	HasMore  bool            `json:"hasMore"`
}

type ListTagsResponse struct {
	Tags []string `json:"tags"`
}

type ListLocationsResponse struct {
	Locations []string `json:"locations"`
}
