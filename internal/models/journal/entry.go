package models

import (
	"strings"
	"time"
)

type EntryStatus string

const (
	StatusDraft     EntryStatus = "draft"
	StatusPublished EntryStatus = "published"
	StatusArchived  EntryStatus = "archived"
)

// Valid reports whether s is one of the statuses the entries table accepts.
func (s EntryStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

type Entry struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	ResearchNotes  string      `json:"researchNotes"`
	Location       string      `json:"location"`
	StreetAddress  string      `json:"streetAddress,omitempty"`
	Status         EntryStatus `json:"status"`
	Tags           []string    `json:"tags"`
	Media          []Media     `json:"mediaFiles"`
	PreviewMediaID *string     `json:"previewMediaId"`
	PromptText     string      `json:"promptText,omitempty"`
	CreatedBy      string      `json:"createdBy"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// Clone returns a deep copy so cached entries can be handed out without sharing slices.
func (e Entry) Clone() Entry {
	out := e
	out.Tags = append([]string(nil), e.Tags...)
	out.Media = append([]Media(nil), e.Media...)
	if e.PreviewMediaID != nil {
		id := *e.PreviewMediaID
		out.PreviewMediaID = &id
	}
	return out
}

// SyncPreview recomputes PreviewMediaID from the media flags.
func (e *Entry) SyncPreview() {
	e.PreviewMediaID = nil
	for i := range e.Media {
		if e.Media[i].IsPreview {
			id := e.Media[i].ID
			e.PreviewMediaID = &id
			return
		}
	}
}

// EntryInput carries the user-editable fields of a new entry.
type EntryInput struct {
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	ResearchNotes string      `json:"researchNotes"`
	Location      string      `json:"location"`
	StreetAddress string      `json:"streetAddress"`
	Status        EntryStatus `json:"status"`
	Tags          []string    `json:"tags"`
	PromptText    string      `json:"promptText"`
}

// EntryPatch is a partial update; nil fields are left untouched.
type EntryPatch struct {
	Title         *string      `json:"title,omitempty"`
	Description   *string      `json:"description,omitempty"`
	ResearchNotes *string      `json:"researchNotes,omitempty"`
	Location      *string      `json:"location,omitempty"`
	StreetAddress *string      `json:"streetAddress,omitempty"`
	Status        *EntryStatus `json:"status,omitempty"`
	Tags          []string     `json:"tags,omitempty"`
	PromptText    *string      `json:"promptText,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p EntryPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.ResearchNotes == nil &&
		p.Location == nil && p.StreetAddress == nil && p.Status == nil &&
		p.Tags == nil && p.PromptText == nil
}

// NormalizeTags trims, drops blanks and deduplicates while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ListFilter mirrors the gateway list options. Page is 1-based.
type ListFilter struct {
	OwnerID  string
	Status   EntryStatus
	Location string
	Tag      string
	// Query matches title, description or location, case-insensitively.
	Query    string
	Page     int
	PageSize int
}

type EntryPage struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
}
