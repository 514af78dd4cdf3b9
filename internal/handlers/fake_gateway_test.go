package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"io.winapps.meicho/internal/apperrors"
	journal "io.winapps.meicho/internal/models/journal"
	"io.winapps.meicho/internal/repository"
)

// memGateway keeps rows in memory. Methods the handlers never reach fall through
// to the nil embedded interface.
type memGateway struct {
	repository.Gateway

	mu          sync.Mutex
	seq         int
	entries     map[string]*journal.Entry
	createErr   error
	insertLimit int
}

func newMemGateway() *memGateway {
	return &memGateway{entries: map[string]*journal.Entry{}, insertLimit: -1}
}

func (g *memGateway) id(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

func (g *memGateway) owned(owner, id string) (*journal.Entry, error) {
	e, ok := g.entries[id]
	if !ok || e.CreatedBy != owner {
		return nil, apperrors.ErrNotFound
	}
	return e, nil
}

func (g *memGateway) CreateEntry(_ context.Context, ownerID string, in journal.EntryInput) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	status := in.Status
	if status == "" {
		status = journal.StatusDraft
	}
	now := time.Now()
	e := &journal.Entry{
		ID:          g.id("entry"),
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Status:      status,
		Tags:        append([]string{}, in.Tags...),
		Media:       []journal.Media{},
		PromptText:  in.PromptText,
		CreatedBy:   ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	g.entries[e.ID] = e
	return e.ID, nil
}

func (g *memGateway) UpdateEntry(_ context.Context, ownerID, entryID string, p journal.EntryPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, err := g.owned(ownerID, entryID)
	if err != nil {
		return err
	}
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Tags != nil {
		e.Tags = append([]string{}, p.Tags...)
	}
	e.UpdatedAt = time.Now()
	return nil
}

func (g *memGateway) DeleteEntry(_ context.Context, ownerID, entryID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, err := g.owned(ownerID, entryID)
	if err != nil {
		return nil, err
	}
	paths := []string{}
	for _, m := range e.Media {
		paths = append(paths, m.StoragePath)
	}
	delete(g.entries, entryID)
	return paths, nil
}

func (g *memGateway) GetEntry(_ context.Context, ownerID, entryID string) (*journal.Entry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, err := g.owned(ownerID, entryID)
	if err != nil {
		return nil, err
	}
	c := e.Clone()
	c.SyncPreview()
	return &c, nil
}

func (g *memGateway) ListEntries(_ context.Context, f journal.ListFilter) (*journal.EntryPage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := []journal.Entry{}
	for _, e := range g.entries {
		if e.CreatedBy != f.OwnerID || (f.Status != "" && e.Status != f.Status) {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(f.Query)) {
			continue
		}
		c := e.Clone()
		c.SyncPreview()
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	size := f.PageSize
	if size <= 0 {
		size = repository.DefaultPageSize
	}
	start := min((max(f.Page, 1)-1)*size, len(out))
	end := min(start+size, len(out))
	return &journal.EntryPage{Entries: out[start:end], Total: len(out)}, nil
}

func (g *memGateway) InsertMedia(_ context.Context, in journal.MediaInsert) (*journal.Media, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.insertLimit == 0 {
		return nil, apperrors.Gateway("insert media", fmt.Errorf("connection reset"))
	}
	if g.insertLimit > 0 {
		g.insertLimit--
	}
	e, err := g.owned(in.OwnerID, in.EntryID)
	if err != nil {
		return nil, err
	}
	if in.IsPreview {
		for i := range e.Media {
			e.Media[i].IsPreview = false
		}
	}
	m := journal.Media{
		ID:          g.id("media"),
		EntryID:     in.EntryID,
		StoragePath: in.StoragePath,
		URL:         "mem://media/" + in.StoragePath,
		Type:        in.Type,
		Size:        in.Size,
		MimeType:    in.MimeType,
		Width:       in.Width,
		Height:      in.Height,
		IsPreview:   in.IsPreview,
	}
	e.Media = append(e.Media, m)
	return &m, nil
}

func (g *memGateway) DeleteMedia(_ context.Context, ownerID, entryID, mediaID string) (*journal.Media, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, err := g.owned(ownerID, entryID)
	if err != nil {
		return nil, err
	}
	for i, m := range e.Media {
		if m.ID == mediaID {
			e.Media = append(e.Media[:i], e.Media[i+1:]...)
			return &m, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (g *memGateway) ListTags(_ context.Context, ownerID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set := map[string]struct{}{}
	for _, e := range g.entries {
		if e.CreatedBy != ownerID {
			continue
		}
		for _, t := range e.Tags {
			set[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

func (g *memGateway) ListLocations(_ context.Context, ownerID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set := map[string]struct{}{}
	for _, e := range g.entries {
		if e.CreatedBy == ownerID && e.Location != "" {
			set[e.Location] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out, nil
}
