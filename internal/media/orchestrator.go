package media

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"io.winapps.meicho/internal/apperrors"
	"io.winapps.meicho/internal/metrics"
	journal "io.winapps.meicho/internal/models/journal"
	"io.winapps.meicho/internal/objectstore"
)

// File is one picked file. Content must be rewindable because it is read for
// sniffing, for the upload and again for metadata.
type File struct {
	Name     string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// Recorder persists media rows.
type Recorder interface {
	InsertMedia(ctx context.Context, in journal.MediaInsert) (*journal.Media, error)
}

type Orchestrator struct {
	objects objectstore.Store
	records Recorder
	limits  Limits
	paths   *PathBuilder
	logger  *zap.SugaredLogger
}

func NewOrchestrator(objects objectstore.Store, records Recorder, limits Limits, logger *zap.SugaredLogger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Orchestrator{
		objects: objects,
		records: records,
		limits:  limits,
		paths:   NewPathBuilder(time.Now),
		logger:  logger,
	}
}

func (o *Orchestrator) Limits() Limits { return o.limits }

// Prepare resolves the mime type of f in place and validates it.
func (o *Orchestrator) Prepare(f *File) (journal.MediaType, error) {
	mimeType, err := ResolveMimeType(f.MimeType, f.Content)
	if err != nil {
		return "", apperrors.NewValidationError("type", "could not determine file type")
	}
	f.MimeType = mimeType
	return o.limits.Check(f.Size, mimeType)
}

// Upload runs validate, upload, metadata and insert for one file. When the insert
// fails the uploaded object is removed again. A metadata failure leaves the object
// in storage and is reported as *apperrors.MetadataError.
func (o *Orchestrator) Upload(ctx context.Context, ownerID, entryID string, f File, isPreview bool) (*journal.Media, error) {
	mediaType, err := o.Prepare(&f)
	if err != nil {
		metrics.RecordUpload(string(mediaType), "rejected", f.Size)
		return nil, err
	}

	storagePath := o.paths.Build(entryID, mediaType, extension(f.Name, f.MimeType))

	if err := o.objects.Upload(ctx, storagePath, f.Content, f.Size, f.MimeType); err != nil {
		metrics.RecordUpload(string(mediaType), "failed", f.Size)
		o.logger.Errorw("media upload failed",
			"entry_id", entryID,
			"path", storagePath,
			"error", err,
		)
		return nil, apperrors.Gateway("upload media", err)
	}

	if _, err := f.Content.Seek(0, io.SeekStart); err != nil {
		return nil, o.orphaned(entryID, storagePath, mediaType, f.Size, err)
	}
	meta, err := ExtractMetadata(f.Content, f.MimeType, mediaType)
	if err != nil {
		return nil, o.orphaned(entryID, storagePath, mediaType, f.Size, err)
	}

	media, err := o.records.InsertMedia(ctx, journal.MediaInsert{
		OwnerID:     ownerID,
		EntryID:     entryID,
		StoragePath: storagePath,
		Type:        meta.Type,
		IsPreview:   isPreview,
		Size:        f.Size,
		MimeType:    f.MimeType,
		Width:       meta.Width,
		Height:      meta.Height,
		Duration:    meta.Duration,
	})
	if err != nil {
		metrics.RecordUpload(string(mediaType), "failed", f.Size)
		o.compensate(entryID, storagePath, err)
		return nil, apperrors.Gateway("insert media", err)
	}

	metrics.RecordUpload(string(mediaType), "uploaded", f.Size)
	o.logger.Infow("media uploaded",
		"entry_id", entryID,
		"media_id", media.ID,
		"path", storagePath,
		"type", mediaType,
		"size", f.Size,
		"preview", isPreview,
	)
	return media, nil
}

// compensate removes an object whose row was never written. It runs on a fresh
// context so a cancelled request still cleans up.
func (o *Orchestrator) compensate(entryID, storagePath string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := o.objects.Remove(ctx, []string{storagePath}); err != nil {
		metrics.RecordCompensation(false)
		metrics.RecordOrphans("compensation", 1)
		o.logger.Errorw("failed to remove uploaded media after insert failure",
			"entry_id", entryID,
			"path", storagePath,
			"insert_error", cause,
			"error", err,
		)
		return
	}
	metrics.RecordCompensation(true)
	o.logger.Warnw("removed uploaded media after insert failure",
		"entry_id", entryID,
		"path", storagePath,
		"insert_error", cause,
	)
}

func (o *Orchestrator) orphaned(entryID, storagePath string, mediaType journal.MediaType, size int64, err error) error {
	metrics.RecordUpload(string(mediaType), "failed", size)
	metrics.RecordOrphans("metadata", 1)
	o.logger.Warnw("media metadata extraction failed, object left in storage",
		"entry_id", entryID,
		"path", storagePath,
		"error", err,
	)
	return &apperrors.MetadataError{StoragePath: storagePath, Err: err}
}
