package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"io.winapps.meicho/internal/apperrors"
	journal "io.winapps.meicho/internal/models/journal"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// DB is the subset of pgxpool.Pool the gateway uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Postgres struct {
	db        DB
	publicURL func(storagePath string) string
	now       func() time.Time
}

// NewPostgres builds the gateway. publicURL turns a storage path into the URL clients load.
func NewPostgres(db DB, publicURL func(string) string) *Postgres {
	if publicURL == nil {
		publicURL = func(p string) string { return p }
	}
	return &Postgres{db: db, publicURL: publicURL, now: time.Now}
}

const entryColumns = `e.id, e.title, e.description, e.research_notes, e.location_label, e.street_address,
		e.status, e.prompt_text, e.created_by, e.created_at, e.updated_at`

const mediaColumns = `m.id, m.entry_id, m.storage_path, m.media_type, m.file_size, m.mime_type,
		m.width, m.height, m.duration, m.is_preview, m.created_at, m.updated_at`

func (p *Postgres) CreateEntry(ctx context.Context, ownerID string, in journal.EntryInput) (string, error) {
	entryID := uuid.New().String()
	now := p.now()
	status := in.Status
	if status == "" {
		status = journal.StatusDraft
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return "", apperrors.Gateway("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	entryQuery := `
		INSERT INTO entries (id, title, description, research_notes, location_label, street_address,
			status, prompt_text, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.Exec(ctx, entryQuery, entryID, in.Title, in.Description, in.ResearchNotes,
		in.Location, in.StreetAddress, string(status), in.PromptText, ownerID, now, now)
	if err != nil {
		return "", apperrors.Gateway("insert entry", err)
	}

	if err := replaceTags(ctx, tx, entryID, journal.NormalizeTags(in.Tags)); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", apperrors.Gateway("commit entry", err)
	}
	return entryID, nil
}

func (p *Postgres) UpdateEntry(ctx context.Context, ownerID, entryID string, patch journal.EntryPatch) error {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.ResearchNotes != nil {
		add("research_notes", *patch.ResearchNotes)
	}
	if patch.Location != nil {
		add("location_label", *patch.Location)
	}
	if patch.StreetAddress != nil {
		add("street_address", *patch.StreetAddress)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.PromptText != nil {
		add("prompt_text", *patch.PromptText)
	}
	add("updated_at", p.now())

	args = append(args, entryID, ownerID)
	updateQuery := fmt.Sprintf(`UPDATE entries SET %s WHERE id = $%d AND created_by = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return apperrors.Gateway("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, updateQuery, args...)
	if err != nil {
		return apperrors.Gateway("update entry", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if patch.Tags != nil {
		if err := replaceTags(ctx, tx, entryID, journal.NormalizeTags(patch.Tags)); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Gateway("commit entry", err)
	}
	return nil
}

func (p *Postgres) DeleteEntry(ctx context.Context, ownerID, entryID string) ([]string, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, apperrors.Gateway("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT m.storage_path
		FROM media m
		JOIN entries e ON e.id = m.entry_id
		WHERE e.id = $1 AND e.created_by = $2
		ORDER BY m.created_at
	`, entryID, ownerID)
	if err != nil {
		return nil, apperrors.Gateway("list entry media", err)
	}
	paths, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperrors.Gateway("scan entry media", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM entries WHERE id = $1 AND created_by = $2`, entryID, ownerID)
	if err != nil {
		return nil, apperrors.Gateway("delete entry", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.Gateway("commit delete", err)
	}
	return paths, nil
}

func (p *Postgres) GetEntry(ctx context.Context, ownerID, entryID string) (*journal.Entry, error) {
	row := p.db.QueryRow(ctx, `SELECT `+entryColumns+`
		FROM entries e
		WHERE e.id = $1 AND e.created_by = $2`, entryID, ownerID)

	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Gateway("get entry", err)
	}

	entries := []journal.Entry{*entry}
	if err := p.attach(ctx, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

func (p *Postgres) ListEntries(ctx context.Context, filter journal.ListFilter) (*journal.EntryPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	conditions := []string{}
	args := []any{}
	where := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if filter.OwnerID != "" {
		where("e.created_by = $%d", filter.OwnerID)
	}
	if filter.Status != "" {
		where("e.status = $%d", string(filter.Status))
	}
	if filter.Location != "" {
		where("e.location_label = $%d", filter.Location)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		where("(e.title ILIKE $%[1]d OR e.description ILIKE $%[1]d OR e.location_label ILIKE $%[1]d)", "%"+escapeLike(q)+"%")
	}
	if filter.Tag != "" {
		where(`EXISTS (SELECT 1 FROM entry_tags et JOIN tags t ON t.id = et.tag_id
			WHERE et.entry_id = e.id AND t.name = $%d)`, filter.Tag)
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM entries e `+whereClause, args...).Scan(&total); err != nil {
		return nil, apperrors.Gateway("count entries", err)
	}

	listArgs := append(append([]any{}, args...), pageSize, (page-1)*pageSize)
	listQuery := fmt.Sprintf(`SELECT %s FROM entries e %s ORDER BY e.created_at DESC LIMIT $%d OFFSET $%d`,
		entryColumns, whereClause, len(listArgs)-1, len(listArgs))

	rows, err := p.db.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, apperrors.Gateway("list entries", err)
	}
	defer rows.Close()

	entries := []journal.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, apperrors.Gateway("scan entry", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Gateway("list entries", err)
	}
	rows.Close()

	if err := p.attach(ctx, entries); err != nil {
		return nil, err
	}
	return &journal.EntryPage{Entries: entries, Total: total}, nil
}

func (p *Postgres) InsertMedia(ctx context.Context, in journal.MediaInsert) (*journal.Media, error) {
	mediaID := uuid.New().String()
	now := p.now()

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, apperrors.Gateway("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var owned bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM entries WHERE id = $1 AND created_by = $2)`,
		in.EntryID, in.OwnerID).Scan(&owned)
	if err != nil {
		return nil, apperrors.Gateway("check entry owner", err)
	}
	if !owned {
		return nil, apperrors.ErrNotFound
	}

	if in.IsPreview {
		if _, err := tx.Exec(ctx, `UPDATE media SET is_preview = FALSE, updated_at = $2
			WHERE entry_id = $1 AND is_preview`, in.EntryID, now); err != nil {
			return nil, apperrors.Gateway("clear preview", err)
		}
	}

	mediaQuery := `
		INSERT INTO media (id, entry_id, storage_path, media_type, file_size, mime_type,
			width, height, duration, is_preview, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.Exec(ctx, mediaQuery, mediaID, in.EntryID, in.StoragePath, string(in.Type), in.Size,
		in.MimeType, in.Width, in.Height, in.Duration, in.IsPreview, now, now)
	if err != nil {
		return nil, apperrors.Gateway("insert media", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.Gateway("commit media", err)
	}

	return &journal.Media{
		ID:          mediaID,
		EntryID:     in.EntryID,
		StoragePath: in.StoragePath,
		URL:         p.publicURL(in.StoragePath),
		Type:        in.Type,
		Size:        in.Size,
		MimeType:    in.MimeType,
		Width:       in.Width,
		Height:      in.Height,
		Duration:    in.Duration,
		IsPreview:   in.IsPreview,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// DeleteMedia removes mediaID only when it belongs to entryID and the entry to ownerID.
func (p *Postgres) DeleteMedia(ctx context.Context, ownerID, entryID, mediaID string) (*journal.Media, error) {
	row := p.db.QueryRow(ctx, `
		DELETE FROM media m
		USING entries e
		WHERE m.entry_id = e.id AND m.id = $1 AND e.created_by = $2 AND m.entry_id = $3
		RETURNING `+mediaColumns, mediaID, ownerID, entryID)

	media, err := p.scanMedia(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Gateway("delete media", err)
	}
	return media, nil
}

func (p *Postgres) SetPreviewMedia(ctx context.Context, ownerID, entryID, mediaID string) error {
	now := p.now()

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return apperrors.Gateway("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM media m JOIN entries e ON e.id = m.entry_id
			WHERE m.id = $1 AND m.entry_id = $2 AND e.created_by = $3
		)`, mediaID, entryID, ownerID).Scan(&exists)
	if err != nil {
		return apperrors.Gateway("check media owner", err)
	}
	if !exists {
		return apperrors.ErrNotFound
	}

	// idx_media_one_preview is checked per row, so the old preview is cleared first.
	if _, err := tx.Exec(ctx, `UPDATE media SET is_preview = FALSE, updated_at = $3
		WHERE entry_id = $1 AND is_preview AND id <> $2`, entryID, mediaID, now); err != nil {
		return apperrors.Gateway("clear preview", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE media SET is_preview = TRUE, updated_at = $2
		WHERE id = $1`, mediaID, now); err != nil {
		return apperrors.Gateway("set preview", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Gateway("commit preview", err)
	}
	return nil
}

func (p *Postgres) ListTags(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := p.db.Query(ctx, `
		SELECT DISTINCT t.name
		FROM tags t
		JOIN entry_tags et ON et.tag_id = t.id
		JOIN entries e ON e.id = et.entry_id
		WHERE e.created_by = $1
		ORDER BY t.name
	`, ownerID)
	if err != nil {
		return nil, apperrors.Gateway("list tags", err)
	}
	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperrors.Gateway("scan tags", err)
	}
	return tags, nil
}

// ListLocations returns the distinct location labels the owner has used.
func (p *Postgres) ListLocations(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := p.db.Query(ctx, `
		SELECT DISTINCT location_label
		FROM entries
		WHERE created_by = $1 AND location_label <> ''
		ORDER BY location_label
	`, ownerID)
	if err != nil {
		return nil, apperrors.Gateway("list locations", err)
	}
	locations, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperrors.Gateway("scan locations", err)
	}
	return locations, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// replaceTags makes tagNames the complete tag set of the entry.
func replaceTags(ctx context.Context, tx pgx.Tx, entryID string, tagNames []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM entry_tags WHERE entry_id = $1`, entryID); err != nil {
		return apperrors.Gateway("clear tags", err)
	}
	for i, name := range tagNames {
		var tagID string
		err := tx.QueryRow(ctx, `
			INSERT INTO tags (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, name).Scan(&tagID)
		if err != nil {
			return apperrors.Gateway("upsert tag", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO entry_tags (entry_id, tag_id, position) VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`, entryID, tagID, i); err != nil {
			return apperrors.Gateway("link tag", err)
		}
	}
	return nil
}

// attach loads media and tags for the given entries in two queries.
func (p *Postgres) attach(ctx context.Context, entries []journal.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	index := make(map[string]int, len(entries))
	for i := range entries {
		ids[i] = entries[i].ID
		index[entries[i].ID] = i
		entries[i].Tags = []string{}
		entries[i].Media = []journal.Media{}
	}

	rows, err := p.db.Query(ctx, `SELECT `+mediaColumns+`
		FROM media m
		WHERE m.entry_id = ANY($1)
		ORDER BY m.created_at, m.id`, ids)
	if err != nil {
		return apperrors.Gateway("list media", err)
	}
	defer rows.Close()
	for rows.Next() {
		media, err := p.scanMedia(rows)
		if err != nil {
			return apperrors.Gateway("scan media", err)
		}
		if i, ok := index[media.EntryID]; ok {
			entries[i].Media = append(entries[i].Media, *media)
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.Gateway("list media", err)
	}
	rows.Close()

	tagRows, err := p.db.Query(ctx, `
		SELECT et.entry_id, t.name
		FROM entry_tags et
		JOIN tags t ON t.id = et.tag_id
		WHERE et.entry_id = ANY($1)
		ORDER BY et.position`, ids)
	if err != nil {
		return apperrors.Gateway("list entry tags", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var entryID, name string
		if err := tagRows.Scan(&entryID, &name); err != nil {
			return apperrors.Gateway("scan entry tag", err)
		}
		if i, ok := index[entryID]; ok {
			entries[i].Tags = append(entries[i].Tags, name)
		}
	}
	if err := tagRows.Err(); err != nil {
		return apperrors.Gateway("list entry tags", err)
	}

	for i := range entries {
		entries[i].SyncPreview()
	}
	return nil
}

func scanEntry(row pgx.Row) (*journal.Entry, error) {
	var e journal.Entry
	var status string
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.ResearchNotes, &e.Location, &e.StreetAddress,
		&status, &e.PromptText, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = journal.EntryStatus(status)
	return &e, nil
}

func (p *Postgres) scanMedia(row pgx.Row) (*journal.Media, error) {
	var m journal.Media
	var mediaType string
	err := row.Scan(&m.ID, &m.EntryID, &m.StoragePath, &mediaType, &m.Size, &m.MimeType,
		&m.Width, &m.Height, &m.Duration, &m.IsPreview, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Type = journal.MediaType(mediaType)
	m.URL = p.publicURL(m.StoragePath)
	return &m, nil
}
