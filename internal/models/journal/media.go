package models

import "time"

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

type Media struct {
	ID          string    `json:"id"`
	EntryID     string    `json:"entryId"`
	StoragePath string    `json:"storagePath"`
	URL         string    `json:"url"`
	Type        MediaType `json:"type"`
	Size        int64     `json:"size"`
	MimeType    string    `json:"mimeType"`
	Width       *int      `json:"width,omitempty"`
	Height      *int      `json:"height,omitempty"`
	Duration    *int      `json:"duration,omitempty"`
	IsPreview   bool      `json:"isPreview"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MediaMetadata is what can be decoded locally from the file bytes.
type MediaMetadata struct {
	Type     MediaType
	Width    *int
	Height   *int
	Duration *int
}

// MediaInsert is the row the orchestrator asks the gateway to create.
type MediaInsert struct {
	OwnerID     string
	EntryID     string
	StoragePath string
	Type        MediaType
	IsPreview   bool
	Size        int64
	MimeType    string
	Width       *int
	Height      *int
	Duration    *int
}
