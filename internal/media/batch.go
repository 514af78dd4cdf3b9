package media

import (
	"context"

	"io.winapps.meicho/internal/apperrors"
	"io.winapps.meicho/internal/metrics"
	journal "io.winapps.meicho/internal/models/journal"
)

type Outcome string

const (
	OutcomeUploaded Outcome = "uploaded"
	OutcomeFailed   Outcome = "failed"
	OutcomeSkipped  Outcome = "skipped"
)

type Item struct {
	Index   int
	Name    string
	Outcome Outcome
	Media   *journal.Media
	Err     error
}

type BatchResult struct {
	EntryID string
	Items   []Item
}

// Media returns the rows created by the batch, in upload order.
func (r BatchResult) Media() []journal.Media {
	out := []journal.Media{}
	for _, it := range r.Items {
		if it.Outcome == OutcomeUploaded && it.Media != nil {
			out = append(out, *it.Media)
		}
	}
	return out
}

// Err is nil when every file was uploaded, otherwise a *apperrors.PartialUploadError.
func (r BatchResult) Err() error {
	pe := &apperrors.PartialUploadError{EntryID: r.EntryID}
	for _, it := range r.Items {
		switch it.Outcome {
		case OutcomeUploaded:
			pe.Uploaded++
		case OutcomeSkipped:
			pe.Skipped++
		case OutcomeFailed:
			pe.Failures = append(pe.Failures, apperrors.FileFailure{Index: it.Index, Name: it.Name, Err: it.Err})
		}
	}
	if len(pe.Failures) == 0 && pe.Skipped == 0 {
		return nil
	}
	return pe
}

type task struct {
	index     int
	file      File
	isPreview bool
}

// observer is told when a queued file starts and how it finished.
type observer struct {
	started  func(index int)
	finished func(item Item)
}

// UploadBatch uploads files one at a time in order. The first failure stops the
// queue; later files are reported as skipped. previewIndex < 0 marks none as preview.
func (o *Orchestrator) UploadBatch(ctx context.Context, ownerID, entryID string, files []File, previewIndex int) BatchResult {
	return o.runQueue(ctx, ownerID, entryID, files, previewIndex, observer{})
}

func (o *Orchestrator) runQueue(ctx context.Context, ownerID, entryID string, files []File, previewIndex int, obs observer) BatchResult {
	queue := make([]task, 0, len(files))
	for i, f := range files {
		queue = append(queue, task{index: i, file: f, isPreview: i == previewIndex})
	}

	result := BatchResult{EntryID: entryID, Items: make([]Item, 0, len(queue))}
	stopped := false
	for _, t := range queue {
		item := Item{Index: t.index, Name: t.file.Name}

		switch {
		case stopped:
			item.Outcome = OutcomeSkipped
			metrics.RecordUpload("", string(OutcomeSkipped), t.file.Size)
		case ctx.Err() != nil:
			item.Outcome = OutcomeFailed
			item.Err = ctx.Err()
			stopped = true
		default:
			if obs.started != nil {
				obs.started(t.index)
			}
			media, err := o.Upload(ctx, ownerID, entryID, t.file, t.isPreview)
			if err != nil {
				item.Outcome = OutcomeFailed
				item.Err = err
				stopped = true
				o.logger.Warnw("media queue stopped",
					"entry_id", entryID,
					"index", t.index,
					"name", t.file.Name,
					"remaining", len(queue)-t.index-1,
					"error", err,
				)
			} else {
				item.Outcome = OutcomeUploaded
				item.Media = media
			}
		}

		if obs.finished != nil {
			obs.finished(item)
		}
		result.Items = append(result.Items, item)
	}
	return result
}
