// Package entries holds the per-owner entry store: the cached entry list, the derived
// streak and the daily prompt, kept in step with the remote record store.
//
// Mutations go to the gateway first. The cache only ever holds rows the gateway has
// confirmed, so a failed call leaves it untouched.
package entries

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"io.winapps.meicho/internal/apperrors"
	"io.winapps.meicho/internal/media"
	"io.winapps.meicho/internal/metrics"
	journal "io.winapps.meicho/internal/models/journal"
	"io.winapps.meicho/internal/objectstore"
	"io.winapps.meicho/internal/prompt"
	"io.winapps.meicho/internal/repository"
	"io.winapps.meicho/internal/streak"
)

const loadPageSize = repository.MaxPageSize

// Deps are shared by every store a Manager creates.
type Deps struct {
	Gateway   repository.Gateway
	Media     *media.Orchestrator
	Objects   objectstore.Store
	Snapshots SnapshotCache
	Logger    *zap.SugaredLogger
	// Location is the reference timezone for streak days and prompt expiry.
	Location *time.Location
	Now      func() time.Time
	Prompt   prompt.Options
}

type Store struct {
	ownerID   string
	gateway   repository.Gateway
	media     *media.Orchestrator
	objects   objectstore.Store
	snapshots SnapshotCache
	logger    *zap.SugaredLogger
	loc       *time.Location
	now       func() time.Time

	openMu sync.Mutex
	opened bool

	mu      sync.RWMutex
	entries []journal.Entry
	current *journal.Entry
	streak  int
	prompt  *prompt.Lifecycle
}

func NewStore(ownerID string, deps Deps) *Store {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	promptOpts := deps.Prompt
	promptOpts.Location = deps.Location
	if promptOpts.Now == nil {
		promptOpts.Now = deps.Now
	}

	return &Store{
		ownerID:   ownerID,
		gateway:   deps.Gateway,
		media:     deps.Media,
		objects:   deps.Objects,
		snapshots: deps.Snapshots,
		logger:    deps.Logger.With("owner", ownerID),
		loc:       deps.Location,
		now:       deps.Now,
		entries:   []journal.Entry{},
		prompt:    prompt.New(promptOpts),
	}
}

func (s *Store) OwnerID() string { return s.ownerID }

// Open hydrates the store once: from the snapshot cache when one exists, otherwise
// from the gateway. A failed remote load is retried on the next Open.
func (s *Store) Open(ctx context.Context) {
	s.openMu.Lock()
	defer s.openMu.Unlock()
	if s.opened {
		return
	}

	if s.hydrate(ctx) {
		s.opened = true
	} else {
		s.opened = s.Refresh(ctx) == nil
	}

	s.mu.Lock()
	s.prompt.Check()
	s.recomputeLocked()
	s.mu.Unlock()
	s.persist(ctx)
}

func (s *Store) hydrate(ctx context.Context) bool {
	if s.snapshots == nil {
		return false
	}
	snap, err := s.snapshots.Get(ctx, s.ownerID)
	if err != nil {
		s.logger.Warnw("entry snapshot unavailable, loading from database", "error", err)
		return false
	}
	if snap == nil {
		return false
	}

	s.mu.Lock()
	s.entries = sortEntries(snap.Entries)
	s.prompt.Restore(snap.Prompt)
	s.recomputeLocked()
	s.mu.Unlock()

	s.logger.Debugw("entry store hydrated from snapshot", "entries", len(snap.Entries), "saved_at", snap.SavedAt)
	return true
}

// Load replaces the cache with the owner's entries from the gateway. Errors are
// logged and leave the cache unchanged; use Refresh to observe them.
func (s *Store) Load(ctx context.Context) {
	_ = s.Refresh(ctx)
}

func (s *Store) Refresh(ctx context.Context) error {
	if s.ownerID == "" {
		return &apperrors.AuthError{}
	}

	all := []journal.Entry{}
	for page := 1; ; page++ {
		res, err := s.gateway.ListEntries(ctx, journal.ListFilter{
			OwnerID:  s.ownerID,
			Page:     page,
			PageSize: loadPageSize,
		})
		if err != nil {
			s.logger.Errorw("failed to load entries", "page", page, "error", err)
			return err
		}
		all = append(all, res.Entries...)
		if len(res.Entries) < loadPageSize || len(all) >= res.Total {
			break
		}
	}

	s.mu.Lock()
	s.entries = sortEntries(all)
	s.refreshCurrentLocked()
	s.recomputeLocked()
	s.mu.Unlock()

	s.logger.Infow("entries loaded", "count", len(all))
	s.persist(ctx)
	return nil
}

// Create persists a new entry, uploads the draft's files and caches the confirmed row.
// When some files fail the saved entry is returned with a *apperrors.PartialUploadError.
func (s *Store) Create(ctx context.Context, in journal.EntryInput, draft *media.Draft) (*journal.Entry, error) {
	if s.ownerID == "" {
		return nil, &apperrors.AuthError{}
	}
	in.Tags = journal.NormalizeTags(in.Tags)
	if err := s.validateInput(in, draft); err != nil {
		return nil, err
	}

	entryID, err := s.gateway.CreateEntry(ctx, s.ownerID, in)
	if err != nil {
		metrics.RecordMutation("create", err)
		s.logger.Errorw("failed to create entry", "error", err)
		return nil, err
	}

	batchErr := s.uploadDraft(ctx, entryID, draft)

	confirmed, err := s.gateway.GetEntry(ctx, s.ownerID, entryID)
	if err != nil {
		metrics.RecordMutation("create", err)
		s.logger.Errorw("entry created but could not be re-read", "entry_id", entryID, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.upsertLocked(*confirmed)
	s.recomputeLocked()
	s.mu.Unlock()
	s.persist(ctx)

	metrics.RecordMutation("create", batchErr)
	s.logger.Infow("entry created", "entry_id", entryID, "media", len(confirmed.Media))
	return confirmed, batchErr
}

// Update applies patch, uploads any new draft files and merges the confirmed row.
func (s *Store) Update(ctx context.Context, entryID string, patch journal.EntryPatch, draft *media.Draft) (*journal.Entry, error) {
	if s.ownerID == "" {
		return nil, &apperrors.AuthError{}
	}
	if patch.Tags != nil {
		patch.Tags = journal.NormalizeTags(patch.Tags)
	}
	if err := s.validatePatch(patch, draft); err != nil {
		return nil, err
	}

	if !patch.Empty() {
		if err := s.gateway.UpdateEntry(ctx, s.ownerID, entryID, patch); err != nil {
			metrics.RecordMutation("update", err)
			s.logger.Errorw("failed to update entry", "entry_id", entryID, "error", err)
			return nil, err
		}
	}

	if err := s.keepExistingPreview(ctx, entryID, draft); err != nil {
		metrics.RecordMutation("update", err)
		return nil, err
	}
	batchErr := s.uploadDraft(ctx, entryID, draft)

	confirmed, err := s.reread(ctx, entryID)
	if err != nil {
		metrics.RecordMutation("update", err)
		return nil, err
	}

	metrics.RecordMutation("update", batchErr)
	s.logger.Infow("entry updated", "entry_id", entryID)
	return confirmed, batchErr
}

// Delete removes the entry remotely, then its objects, then the cached copy.
func (s *Store) Delete(ctx context.Context, entryID string) error {
	if s.ownerID == "" {
		return &apperrors.AuthError{}
	}

	paths, err := s.gateway.DeleteEntry(ctx, s.ownerID, entryID)
	metrics.RecordMutation("delete", err)
	if err != nil {
		s.logger.Errorw("failed to delete entry", "entry_id", entryID, "error", err)
		return err
	}

	s.removeObjects(ctx, entryID, paths, "delete")

	s.mu.Lock()
	s.entries = slices.DeleteFunc(s.entries, func(e journal.Entry) bool { return e.ID == entryID })
	if s.current != nil && s.current.ID == entryID {
		s.current = nil
	}
	s.recomputeLocked()
	s.mu.Unlock()
	s.persist(ctx)

	s.logger.Infow("entry deleted", "entry_id", entryID, "media_removed", len(paths))
	return nil
}

// AttachMedia uploads the draft's files to an existing entry.
func (s *Store) AttachMedia(ctx context.Context, entryID string, draft *media.Draft) (*journal.Entry, error) {
	return s.Update(ctx, entryID, journal.EntryPatch{}, draft)
}

// RemoveMedia deletes one media row and its object. When the preview is removed the
// first remaining media becomes the preview.
func (s *Store) RemoveMedia(ctx context.Context, entryID, mediaID string) (*journal.Entry, error) {
	if s.ownerID == "" {
		return nil, &apperrors.AuthError{}
	}

	removed, err := s.gateway.DeleteMedia(ctx, s.ownerID, entryID, mediaID)
	metrics.RecordMutation("remove_media", err)
	if err != nil {
		s.logger.Errorw("failed to delete media", "entry_id", entryID, "media_id", mediaID, "error", err)
		return nil, err
	}

	s.removeObjects(ctx, entryID, []string{removed.StoragePath}, "remove_media")

	confirmed, err := s.reread(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if removed.IsPreview && len(confirmed.Media) > 0 {
		return s.SetPreview(ctx, entryID, confirmed.Media[0].ID)
	}
	return confirmed, nil
}

func (s *Store) SetPreview(ctx context.Context, entryID, mediaID string) (*journal.Entry, error) {
	if s.ownerID == "" {
		return nil, &apperrors.AuthError{}
	}
	err := s.gateway.SetPreviewMedia(ctx, s.ownerID, entryID, mediaID)
	metrics.RecordMutation("set_preview", err)
	if err != nil {
		s.logger.Errorw("failed to set preview", "entry_id", entryID, "media_id", mediaID, "error", err)
		return nil, err
	}
	return s.reread(ctx, entryID)
}

// List queries the gateway directly, always scoped to this owner.
func (s *Store) List(ctx context.Context, filter journal.ListFilter) (*journal.EntryPage, error) {
	if s.ownerID == "" {
		return nil, &apperrors.AuthError{}
	}
	filter.OwnerID = s.ownerID
	return s.gateway.ListEntries(ctx, filter)
}

func (s *Store) Tags(ctx context.Context) ([]string, error) {
	if s.ownerID == "" {
		return nil, &apperrors.AuthError{}
	}
	return s.gateway.ListTags(ctx, s.ownerID)
}

func (s *Store) Locations(ctx context.Context) ([]string, error) {
	if s.ownerID == "" {
		return nil, &apperrors.AuthError{}
	}
	return s.gateway.ListLocations(ctx, s.ownerID)
}

// Entry returns a copy of a cached entry.
func (s *Store) Entry(entryID string) (*journal.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.entries {
		if s.entries[i].ID == entryID {
			e := s.entries[i].Clone()
			return &e, true
		}
	}
	return nil, false
}

// Get returns the cached entry, or fetches and caches it when the cache misses.
func (s *Store) Get(ctx context.Context, entryID string) (*journal.Entry, error) {
	if s.ownerID == "" {
		return nil, &apperrors.AuthError{}
	}
	if e, ok := s.Entry(entryID); ok {
		return e, nil
	}
	return s.reread(ctx, entryID)
}

// Entries returns copies of the cached entries, newest first.
func (s *Store) Entries() []journal.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]journal.Entry, len(s.entries))
	for i := range s.entries {
		out[i] = s.entries[i].Clone()
	}
	return out
}

func (s *Store) Streak() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streak
}

// SetCurrentEntry records the entry being viewed; nil clears it.
func (s *Store) SetCurrentEntry(e *journal.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e == nil {
		s.current = nil
		return
	}
	c := e.Clone()
	s.current = &c
}

func (s *Store) CurrentEntry() *journal.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	c := s.current.Clone()
	return &c
}

func (s *Store) Prompt() *prompt.Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt.Current()
}

// CheckPrompt expires a stale prompt, picks a fresh one when none is active and
// recomputes the streak. It reports whether the prompt changed.
func (s *Store) CheckPrompt(ctx context.Context) (*prompt.Prompt, bool) {
	s.mu.Lock()
	_, changed := s.prompt.Check()
	s.recomputeLocked()
	p := s.prompt.Current()
	s.mu.Unlock()

	if changed {
		s.logger.Infow("daily prompt rotated", "prompt", p.Text, "expires_at", p.ExpiresAt)
		s.persist(ctx)
	}
	return p, changed
}

func (s *Store) SetPrompt(ctx context.Context, text string) *prompt.Prompt {
	s.mu.Lock()
	s.prompt.Set(text)
	s.reconcilePromptLocked()
	p := s.prompt.Current()
	s.mu.Unlock()
	s.persist(ctx)
	return p
}

// CompletePrompt reports false when there is no active prompt.
func (s *Store) CompletePrompt(ctx context.Context) bool {
	s.mu.Lock()
	ok := s.prompt.Complete()
	s.mu.Unlock()
	if ok {
		s.persist(ctx)
	}
	return ok
}

func (s *Store) validateInput(in journal.EntryInput, draft *media.Draft) error {
	v := &apperrors.ValidationError{}
	if strings.TrimSpace(in.Title) == "" {
		v.Add("title", "title is required")
	}
	if in.Status != "" && !in.Status.Valid() {
		v.Add("status", "status must be draft, published or archived")
	}
	s.validateDraft(v, draft)
	return v.OrNil()
}

func (s *Store) validatePatch(p journal.EntryPatch, draft *media.Draft) error {
	v := &apperrors.ValidationError{}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		v.Add("title", "title is required")
	}
	if p.Status != nil && !p.Status.Valid() {
		v.Add("status", "status must be draft, published or archived")
	}
	s.validateDraft(v, draft)
	return v.OrNil()
}

func (s *Store) validateDraft(v *apperrors.ValidationError, draft *media.Draft) {
	if draft == nil || s.media == nil {
		return
	}
	if err := draft.Validate(s.media); err != nil {
		var dv *apperrors.ValidationError
		if errors.As(err, &dv) {
			v.Merge(dv)
			return
		}
		v.Add("media", err.Error())
	}
}

// keepExistingPreview stops new files from replacing the preview of an entry that
// already has one, unless the caller picked a preview explicitly.
func (s *Store) keepExistingPreview(ctx context.Context, entryID string, draft *media.Draft) error {
	if draft == nil || draft.PreviewChosen() {
		return nil
	}
	if files, _ := draft.Files(); len(files) == 0 {
		return nil
	}
	existing, err := s.Get(ctx, entryID)
	if err != nil {
		return err
	}
	if existing.PreviewMediaID != nil {
		draft.KeepExistingPreview()
	}
	return nil
}

func (s *Store) uploadDraft(ctx context.Context, entryID string, draft *media.Draft) error {
	if draft == nil || s.media == nil {
		return nil
	}
	files, _ := draft.Files()
	if len(files) == 0 {
		return nil
	}
	return draft.Upload(ctx, s.media, s.ownerID, entryID).Err()
}

// reread fetches the confirmed row and merges it into the cache.
func (s *Store) reread(ctx context.Context, entryID string) (*journal.Entry, error) {
	confirmed, err := s.gateway.GetEntry(ctx, s.ownerID, entryID)
	if err != nil {
		s.logger.Errorw("failed to re-read entry", "entry_id", entryID, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.upsertLocked(*confirmed)
	s.recomputeLocked()
	s.mu.Unlock()
	s.persist(ctx)
	return confirmed, nil
}

func (s *Store) removeObjects(ctx context.Context, entryID string, paths []string, reason string) {
	if len(paths) == 0 || s.objects == nil {
		return
	}
	if err := s.objects.Remove(ctx, paths); err != nil {
		metrics.RecordOrphans(reason, len(paths))
		s.logger.Errorw("failed to remove media objects",
			"entry_id", entryID,
			"paths", paths,
			"error", err,
		)
	}
}

func (s *Store) upsertLocked(e journal.Entry) {
	for i := range s.entries {
		if s.entries[i].ID == e.ID {
			s.entries[i] = e
			s.entries = sortEntries(s.entries)
			s.refreshCurrentLocked()
			return
		}
	}
	s.entries = sortEntries(append([]journal.Entry{e}, s.entries...))
	s.refreshCurrentLocked()
}

// refreshCurrentLocked points the current entry at the latest cached copy.
func (s *Store) refreshCurrentLocked() {
	if s.current == nil {
		return
	}
	for i := range s.entries {
		if s.entries[i].ID == s.current.ID {
			c := s.entries[i].Clone()
			s.current = &c
			return
		}
	}
}

func (s *Store) recomputeLocked() {
	times := make([]time.Time, len(s.entries))
	for i := range s.entries {
		times[i] = s.entries[i].CreatedAt
	}
	s.streak = streak.Calculate(times, s.now(), s.loc)
	s.reconcilePromptLocked()
}

// reconcilePromptLocked completes the active prompt when an entry written since the
// prompt's day began answers it.
func (s *Store) reconcilePromptLocked() {
	p := s.prompt.Current()
	if p == nil || p.Completed {
		return
	}
	dayStart := p.ExpiresAt.AddDate(0, 0, -1)
	for i := range s.entries {
		e := &s.entries[i]
		if e.PromptText == p.Text && !e.CreatedAt.Before(dayStart) {
			s.prompt.Complete()
			return
		}
	}
}

func (s *Store) persist(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	s.mu.RLock()
	snap := &Snapshot{
		Entries: make([]journal.Entry, len(s.entries)),
		Prompt:  s.prompt.State(),
		SavedAt: s.now(),
	}
	copy(snap.Entries, s.entries)
	s.mu.RUnlock()

	if err := s.snapshots.Put(ctx, s.ownerID, snap); err != nil {
		s.logger.Warnw("failed to persist entry snapshot", "error", err)
	}
}

func sortEntries(in []journal.Entry) []journal.Entry {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b journal.Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}
