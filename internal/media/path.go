package media

import (
	"fmt"
	"sync"
	"time"

	journal "io.winapps.meicho/internal/models/journal"
)

// PathBuilder names objects <entryId>/<images|videos>/<unix millis>.<ext>.
// Millisecond stamps never repeat within one builder.
type PathBuilder struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewPathBuilder(now func() time.Time) *PathBuilder {
	if now == nil {
		now = time.Now
	}
	return &PathBuilder{now: now}
}

func (b *PathBuilder) Build(entryID string, mediaType journal.MediaType, ext string) string {
	b.mu.Lock()
	ms := b.now().UnixMilli()
	if ms <= b.last {
		ms = b.last + 1
	}
	b.last = ms
	b.mu.Unlock()

	folder := "images"
	if mediaType == journal.MediaVideo {
		folder = "videos"
	}
	return fmt.Sprintf("%s/%s/%d.%s", entryID, folder, ms, ext)
}
