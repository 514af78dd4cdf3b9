package media

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	"github.com/abema/go-mp4"
	_ "golang.org/x/image/webp"

	journal "io.winapps.meicho/internal/models/journal"
)

// ExtractMetadata decodes dimensions (and duration for video) from the file header.
// WebM has no decoder here and yields the type only.
func ExtractMetadata(r io.ReadSeeker, mimeType string, mediaType journal.MediaType) (journal.MediaMetadata, error) {
	meta := journal.MediaMetadata{Type: mediaType}

	switch {
	case mediaType == journal.MediaImage:
		cfg, _, err := image.DecodeConfig(r)
		if err != nil {
			return meta, fmt.Errorf("decode image header: %w", err)
		}
		meta.Width = intPtr(cfg.Width)
		meta.Height = intPtr(cfg.Height)

	case mimeType == "video/mp4":
		info, err := mp4.Probe(r)
		if err != nil {
			return meta, fmt.Errorf("probe mp4: %w", err)
		}
		if info.Timescale > 0 {
			seconds := math.Round(float64(info.Duration) / float64(info.Timescale))
			meta.Duration = intPtr(int(seconds))
		}
		for _, track := range info.Tracks {
			if track.AVC != nil {
				meta.Width = intPtr(int(track.AVC.Width))
				meta.Height = intPtr(int(track.AVC.Height))
				break
			}
		}
	}
	return meta, nil
}

func intPtr(v int) *int { return &v }
