package models

import (
	journal "io.winapps.meicho/internal/models/journal"
)

// FailedUpload describes one file of a batch that did not make it.
type FailedUpload struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// EntryResponse is returned by every mutation that yields an entry. Failed and
// Skipped are only present after a partial media upload.
type EntryResponse struct {
	Entry   *journal.Entry `json:"entry"`
	Streak  int            `json:"streak"`
	Message string         `json:"message,omitempty"`
	Failed  []FailedUpload `json:"failed,omitempty"`
	Skipped int            `json:"skipped,omitempty"`
}
