// Package repository is the remote persistence gateway for entries, media rows and tags.
// Every query carries the owner predicate; rows owned by someone else look missing.
package repository

import (
	"context"

	journal "io.winapps.meicho/internal/models/journal"
)

type Gateway interface {
	// CreateEntry inserts the entry and its tags and returns the new id.
	CreateEntry(ctx context.Context, ownerID string, in journal.EntryInput) (string, error)
	UpdateEntry(ctx context.Context, ownerID, entryID string, patch journal.EntryPatch) error
	// DeleteEntry removes the entry (media rows cascade) and returns the storage paths
	// of the media that belonged to it.
	DeleteEntry(ctx context.Context, ownerID, entryID string) ([]string, error)
	GetEntry(ctx context.Context, ownerID, entryID string) (*journal.Entry, error)
	ListEntries(ctx context.Context, filter journal.ListFilter) (*journal.EntryPage, error)

	InsertMedia(ctx context.Context, in journal.MediaInsert) (*journal.Media, error)
	DeleteMedia(ctx context.Context, ownerID, entryID, mediaID string) (*journal.Media, error)
	SetPreviewMedia(ctx context.Context, ownerID, entryID, mediaID string) error

	ListTags(ctx context.Context, ownerID string) ([]string, error)
	ListLocations(ctx context.Context, ownerID string) ([]string, error)
}
