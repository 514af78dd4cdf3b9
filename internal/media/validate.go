// Package media moves picked files into an entry: validation, upload to the object
// store, metadata extraction and the media row insert, with cleanup on failure.
package media

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"io.winapps.meicho/internal/apperrors"
	journal "io.winapps.meicho/internal/models/journal"
)

const DefaultMaxFileSize int64 = 4 << 30

var (
	DefaultImageTypes = []string{"image/jpeg", "image/png", "image/webp"}
	DefaultVideoTypes = []string{"video/mp4", "video/webm"}
)

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"video/mp4":  "mp4",
	"video/webm": "webm",
}

type Limits struct {
	MaxFileSize int64
	ImageTypes  []string
	VideoTypes  []string
}

func DefaultLimits() Limits {
	return Limits{
		MaxFileSize: DefaultMaxFileSize,
		ImageTypes:  DefaultImageTypes,
		VideoTypes:  DefaultVideoTypes,
	}
}

// TypeOf classifies an allowed mime type.
func (l Limits) TypeOf(mimeType string) (journal.MediaType, bool) {
	switch {
	case slices.Contains(l.ImageTypes, mimeType):
		return journal.MediaImage, true
	case slices.Contains(l.VideoTypes, mimeType):
		return journal.MediaVideo, true
	}
	return "", false
}

// Check validates size and type without touching the content.
func (l Limits) Check(size int64, mimeType string) (journal.MediaType, error) {
	v := &apperrors.ValidationError{}
	if size < 0 {
		v.Add("size", "file size is unknown")
	} else if size > l.MaxFileSize {
		v.Add("size", fmt.Sprintf("file size exceeds maximum limit of %s", humanSize(l.MaxFileSize)))
	}
	mediaType, ok := l.TypeOf(mimeType)
	if !ok {
		v.Add("type", "file type not supported, upload an image (JPEG, PNG, WebP) or video (MP4, WebM)")
	}
	return mediaType, v.OrNil()
}

// ResolveMimeType normalizes the declared type and sniffs the content when the
// declared type is missing or generic. The reader is rewound before returning.
func ResolveMimeType(declared string, content io.ReadSeeker) (string, error) {
	mimeType := normalizeMime(declared)
	if mimeType != "" && mimeType != "application/octet-stream" {
		return mimeType, nil
	}
	if content == nil {
		return mimeType, nil
	}

	detected, err := mimetype.DetectReader(content)
	if _, seekErr := content.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("rewind after sniffing: %w", seekErr)
	}
	if err != nil {
		return "", fmt.Errorf("sniff content type: %w", err)
	}
	return normalizeMime(detected.String()), nil
}

func normalizeMime(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}

// extension takes the suffix of the original file name and falls back to the
// canonical extension of the mime type when the name has none usable.
func extension(name, mimeType string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext != "" && isAlnum(ext) {
		return ext
	}
	if e, ok := extensions[mimeType]; ok {
		return e
	}
	return "bin"
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func humanSize(n int64) string {
	const gib = 1 << 30
	const mib = 1 << 20
	switch {
	case n >= gib && n%gib == 0:
		return fmt.Sprintf("%dGB", n/gib)
	case n >= mib && n%mib == 0:
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
