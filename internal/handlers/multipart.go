package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"io.winapps.meicho/internal/apperrors"
	"io.winapps.meicho/internal/media"
)

const mediaField = "media"

// readDraft opens every file of the media field into a draft. The caller must
// discard the draft once the request is done. A nil draft means no files were sent.
func (h *EntryHandler) readDraft(c *gin.Context, preview *int) (*media.Draft, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, apperrors.NewValidationError(mediaField, "Could not read the uploaded files")
	}
	headers := form.File[mediaField]
	if len(headers) == 0 {
		if preview != nil {
			return nil, apperrors.NewValidationError("preview", "No media to select a preview from")
		}
		return nil, nil
	}

	draft := media.NewDraft()
	ids := make([]string, 0, len(headers))
	for i, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.discardDraft(c, draft)
			return nil, apperrors.NewValidationError(fmt.Sprintf("media[%d]", i), "Could not open the file")
		}
		ids = append(ids, draft.Pick(media.File{
			Name:     fh.Filename,
			Size:     fh.Size,
			MimeType: fh.Header.Get("Content-Type"),
			Content:  f,
		}, f))
	}

	if preview != nil {
		if *preview < 0 || *preview >= len(ids) {
			h.discardDraft(c, draft)
			return nil, apperrors.NewValidationError("preview", "Preview must point at one of the uploaded files")
		}
		if err := draft.SelectPreview(ids[*preview]); err != nil {
			h.discardDraft(c, draft)
			return nil, err
		}
	}
	return draft, nil
}

// discardDraft releases the draft's file handles and logs any close failure.
func (h *EntryHandler) discardDraft(c *gin.Context, draft *media.Draft) {
	if draft == nil {
		return
	}
	if err := draft.Discard(); err != nil {
		logWithContext(h.logger, c, "warn", "failed to release uploaded files", "error", err)
	}
}
