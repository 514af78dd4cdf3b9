package entries

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"io.winapps.meicho/internal/apperrors"
	journal "io.winapps.meicho/internal/models/journal"
	"io.winapps.meicho/internal/repository"
)

// fakeGateway is an in-memory record store with per-operation failure injection.
type fakeGateway struct {
	repository.Gateway

	mu      sync.Mutex
	now     func() time.Time
	entries map[string]*journal.Entry
	seq     int
	calls   map[string]int
	fail    map[string]error
}

func newFakeGateway(now func() time.Time) *fakeGateway {
	return &fakeGateway{
		now:     now,
		entries: make(map[string]*journal.Entry),
		calls:   make(map[string]int),
		fail:    make(map[string]error),
	}
}

func (g *fakeGateway) called(op string) error {
	g.calls[op]++
	return g.fail[op]
}

func (g *fakeGateway) count(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *fakeGateway) failOn(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[op] = err
}

func (g *fakeGateway) nextID(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

// seed stores an entry directly, bypassing call accounting.
func (g *fakeGateway) seed(owner, title string, createdAt time.Time, mediaPaths ...string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID("entry")
	e := &journal.Entry{
		ID:        id,
		Title:     title,
		Status:    journal.StatusPublished,
		Tags:      []string{},
		Media:     []journal.Media{},
		CreatedBy: owner,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	for i, p := range mediaPaths {
		e.Media = append(e.Media, journal.Media{
			ID:          g.nextID("media"),
			EntryID:     id,
			StoragePath: p,
			Type:        journal.MediaImage,
			IsPreview:   i == 0,
		})
	}
	e.SyncPreview()
	g.entries[id] = e
	return id
}

func (g *fakeGateway) owned(owner, id string) (*journal.Entry, error) {
	e, ok := g.entries[id]
	if !ok || e.CreatedBy != owner {
		return nil, apperrors.ErrNotFound
	}
	return e, nil
}

func (g *fakeGateway) CreateEntry(ctx context.Context, ownerID string, in journal.EntryInput) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.called("CreateEntry"); err != nil {
		return "", err
	}
	status := in.Status
	if status == "" {
		status = journal.StatusDraft
	}
	now := g.now()
	id := g.nextID("entry")
	g.entries[id] = &journal.Entry{
		ID:            id,
		Title:         in.Title,
		Description:   in.Description,
		ResearchNotes: in.ResearchNotes,
		Location:      in.Location,
		StreetAddress: in.StreetAddress,
		Status:        status,
		Tags:          journal.NormalizeTags(in.Tags),
		Media:         []journal.Media{},
		PromptText:    in.PromptText,
		CreatedBy:     ownerID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return id, nil
}

func (g *fakeGateway) UpdateEntry(ctx context.Context, ownerID, entryID string, p journal.EntryPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.called("UpdateEntry"); err != nil {
		return err
	}
	e, err := g.owned(ownerID, entryID)
	if err != nil {
		return err
	}
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.PromptText != nil {
		e.PromptText = *p.PromptText
	}
	if p.Tags != nil {
		e.Tags = journal.NormalizeTags(p.Tags)
	}
	e.UpdatedAt = g.now()
	return nil
}

func (g *fakeGateway) DeleteEntry(ctx context.Context, ownerID, entryID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.called("DeleteEntry"); err != nil {
		return nil, err
	}
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

func (g *fakeGateway) GetEntry(ctx context.Context, ownerID, entryID string) (*journal.Entry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.called("GetEntry"); err != nil {
		return nil, err
	}
	e, err := g.owned(ownerID, entryID)
	if err != nil {
		return nil, err
	}
	c := e.Clone()
	c.SyncPreview()
	return &c, nil
}

func (g *fakeGateway) ListEntries(ctx context.Context, f journal.ListFilter) (*journal.EntryPage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.called("ListEntries"); err != nil {
		return nil, err
	}
	matched := []journal.Entry{}
	for _, e := range g.entries {
		if f.OwnerID != "" && e.CreatedBy != f.OwnerID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.Tag != "" && !slices.Contains(e.Tags, f.Tag) {
			continue
		}
		c := e.Clone()
		c.SyncPreview()
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	page, size := max(f.Page, 1), f.PageSize
	if size <= 0 {
		size = repository.DefaultPageSize
	}
	start := min((page-1)*size, len(matched))
	end := min(start+size, len(matched))
	return &journal.EntryPage{Entries: matched[start:end], Total: len(matched)}, nil
}

func (g *fakeGateway) InsertMedia(ctx context.Context, in journal.MediaInsert) (*journal.Media, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.called("InsertMedia"); err != nil {
		return nil, err
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
		ID:          g.nextID("media"),
		EntryID:     in.EntryID,
		StoragePath: in.StoragePath,
		Type:        in.Type,
		Size:        in.Size,
		MimeType:    in.MimeType,
		Width:       in.Width,
		Height:      in.Height,
		Duration:    in.Duration,
		IsPreview:   in.IsPreview,
		CreatedAt:   g.now(),
	}
	e.Media = append(e.Media, m)
	return &m, nil
}

func (g *fakeGateway) DeleteMedia(ctx context.Context, ownerID, entryID, mediaID string) (*journal.Media, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.called("DeleteMedia"); err != nil {
		return nil, err
	}
	e, err := g.owned(ownerID, entryID)
	if err != nil {
		return nil, err
	}
	for i, m := range e.Media {
		if m.ID == mediaID {
			e.Media = slices.Delete(e.Media, i, i+1)
			return &m, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (g *fakeGateway) SetPreviewMedia(ctx context.Context, ownerID, entryID, mediaID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.called("SetPreviewMedia"); err != nil {
		return err
	}
	e, err := g.owned(ownerID, entryID)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(e.Media, func(m journal.Media) bool { return m.ID == mediaID }) {
		return apperrors.ErrNotFound
	}
	for i := range e.Media {
		e.Media[i].IsPreview = e.Media[i].ID == mediaID
	}
	return nil
}

func (g *fakeGateway) ListTags(ctx context.Context, ownerID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.called("ListTags"); err != nil {
		return nil, err
	}
	set := map[string]struct{}{}
	for _, e := range g.entries {
		if e.CreatedBy == ownerID {
			for _, t := range e.Tags {
				set[t] = struct{}{}
			}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

func (g *fakeGateway) ListLocations(ctx context.Context, ownerID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.called("ListLocations"); err != nil {
		return nil, err
	}
	var out []string
	for _, e := range g.entries {
		if e.CreatedBy == ownerID && e.Location != "" && !slices.Contains(out, e.Location) {
			out = append(out, e.Location)
		}
	}
	sort.Strings(out)
	return out, nil
}
