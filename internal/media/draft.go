package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"io.winapps.meicho/internal/apperrors"
	journal "io.winapps.meicho/internal/models/journal"
)

type FileState string

const (
	StatePicked    FileState = "picked"
	StateRemoved   FileState = "removed"
	StateUploading FileState = "uploading"
	StateUploaded  FileState = "uploaded"
	StateFailed    FileState = "failed"
)

type DraftFile struct {
	ID    string
	File  File
	State FileState
	Media *journal.Media
	Err   error

	closer io.Closer
	closed bool
}

// Draft holds files picked for an entry that has not been saved yet. The first
// picked file becomes the preview; removing the preview promotes the first file left.
// After KeepExistingPreview the files are uploaded without a preview.
type Draft struct {
	mu        sync.Mutex
	files     []*DraftFile
	previewID string
	chosen    bool
	keep      bool
}

func NewDraft() *Draft {
	return &Draft{}
}

// Pick adds a file. closer, when not nil, is released on Remove or Discard.
func (d *Draft) Pick(f File, closer io.Closer) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	df := &DraftFile{ID: uuid.New().String(), File: f, State: StatePicked, closer: closer}
	d.files = append(d.files, df)
	if d.previewID == "" && !d.keep {
		d.previewID = df.ID
	}
	return df.ID
}

func (d *Draft) Remove(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	df := d.find(id)
	if df == nil || df.State != StatePicked {
		return fmt.Errorf("draft file %s: %w", id, apperrors.ErrNotFound)
	}
	df.State = StateRemoved
	closeErr := df.release()

	if d.previewID == id {
		d.previewID = ""
		d.chosen = false
		if first := d.firstActive(); first != nil {
			d.previewID = first.ID
		}
	}
	if closeErr != nil {
		return fmt.Errorf("close draft file %s: %w", id, closeErr)
	}
	return nil
}

func (d *Draft) SelectPreview(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	df := d.find(id)
	if df == nil || df.State != StatePicked {
		return fmt.Errorf("draft file %s: %w", id, apperrors.ErrNotFound)
	}
	d.previewID = id
	d.chosen = true
	d.keep = false
	return nil
}

// PreviewChosen reports whether the preview was selected explicitly rather than by picking.
func (d *Draft) PreviewChosen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.chosen
}

// KeepExistingPreview drops an automatic preview selection so the files are attached
// to an entry without replacing its preview. An explicit selection is left alone.
func (d *Draft) KeepExistingPreview() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.chosen {
		return
	}
	d.keep = true
	d.previewID = ""
}

func (d *Draft) PreviewID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.previewID
}

// Files returns the picked files in pick order and the index of the preview among them.
func (d *Draft) Files() ([]File, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	files := []File{}
	previewIndex := -1
	for _, df := range d.files {
		if df.State != StatePicked {
			continue
		}
		if df.ID == d.previewID {
			previewIndex = len(files)
		}
		files = append(files, df.File)
	}
	return files, previewIndex
}

func (d *Draft) State(id string) (FileState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if df := d.find(id); df != nil {
		return df.State, true
	}
	return "", false
}

// Validate checks every picked file and the preview selection without any network call.
func (d *Draft) Validate(o *Orchestrator) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := &apperrors.ValidationError{}
	active := 0
	for _, df := range d.files {
		if df.State != StatePicked {
			continue
		}
		if _, err := o.Prepare(&df.File); err != nil {
			v.Add(fmt.Sprintf("media[%d]", active), err.Error())
		}
		active++
	}
	if active > 0 && !d.keep && d.find(d.previewID) == nil {
		v.Add("preview", "select a preview image")
	}
	return v.OrNil()
}

// Upload sends the picked files through the orchestrator queue and tracks each file's state.
func (d *Draft) Upload(ctx context.Context, o *Orchestrator, ownerID, entryID string) BatchResult {
	d.mu.Lock()
	var queued []*DraftFile
	files := []File{}
	previewIndex := -1
	for _, df := range d.files {
		if df.State != StatePicked {
			continue
		}
		if df.ID == d.previewID {
			previewIndex = len(files)
		}
		queued = append(queued, df)
		files = append(files, df.File)
	}
	d.mu.Unlock()

	return o.runQueue(ctx, ownerID, entryID, files, previewIndex, observer{
		started: func(i int) {
			d.mu.Lock()
			queued[i].State = StateUploading
			d.mu.Unlock()
		},
		finished: func(item Item) {
			d.mu.Lock()
			defer d.mu.Unlock()
			df := queued[item.Index]
			switch item.Outcome {
			case OutcomeUploaded:
				df.State = StateUploaded
				df.Media = item.Media
			case OutcomeFailed:
				df.State = StateFailed
				df.Err = item.Err
			}
		},
	})
}

// Discard releases every file handle the draft still holds and returns the close errors.
func (d *Draft) Discard() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	for _, df := range d.files {
		if df.State == StatePicked {
			df.State = StateRemoved
		}
		if err := df.release(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", df.File.Name, err))
		}
	}
	d.previewID = ""
	return errors.Join(errs...)
}

func (d *Draft) find(id string) *DraftFile {
	if id == "" {
		return nil
	}
	for _, df := range d.files {
		if df.ID == id {
			return df
		}
	}
	return nil
}

func (d *Draft) firstActive() *DraftFile {
	for _, df := range d.files {
		if df.State == StatePicked {
			return df
		}
	}
	return nil
}

func (df *DraftFile) release() error {
	if df.closed || df.closer == nil {
		return nil
	}
	df.closed = true
	return df.closer.Close()
}
