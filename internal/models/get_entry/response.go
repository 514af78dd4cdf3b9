package models

import (
	journal "io.winapps.meicho/internal/models/journal"
)

type GetEntryResponse struct {
	Entry journal.Entry `json:"entry"`
}

type DeleteEntryResponse struct {
	IsDeleted bool   `json:"isDeleted"`
	Message   string `json:"message"`
}
