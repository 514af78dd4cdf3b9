package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"io.winapps.meicho/internal/apperrors"
	models "io.winapps.meicho/internal/models/notifications"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Registry stores one push token per user in the push_tokens table.
type Registry struct {
	db DB
}

func NewRegistry(db DB) *Registry {
	return &Registry{db: db}
}

// Register upserts the caller's token and reactivates it.
func (r *Registry) Register(ctx context.Context, userID string, req models.RegisterRequest) (string, error) {
	if userID == "" {
		return "", &apperrors.AuthError{Reason: "missing user id"}
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return "", apperrors.NewValidationError("token", "Token is required")
	}
	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	query := `
		INSERT INTO push_tokens (user_id, token, platform, timezone, active)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (user_id)
		DO UPDATE SET
			token = EXCLUDED.token,
			platform = EXCLUDED.platform,
			timezone = EXCLUDED.timezone,
			active = true,
			updated_at = NOW()
		RETURNING id`

	var id string
	if err := r.db.QueryRow(ctx, query, userID, token, req.Platform, timezone).Scan(&id); err != nil {
		return "", apperrors.Gateway("register push token", err)
	}
	return id, nil
}

// ActiveTokens returns the active tokens of the given users.
func (r *Registry) ActiveTokens(ctx context.Context, userIDs []string) ([]models.PushToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, user_id, token, platform, timezone
		FROM push_tokens
		WHERE active = true AND user_id = ANY($1)
		ORDER BY user_id`

	rows, err := r.db.Query(ctx, query, userIDs)
	if err != nil {
		return nil, apperrors.Gateway("list push tokens", err)
	}
	defer rows.Close()

	var tokens []models.PushToken
	for rows.Next() {
		t := models.PushToken{Active: true}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.Timezone); err != nil {
			return nil, apperrors.Gateway("scan push token", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Gateway("list push tokens", err)
	}
	return tokens, nil
}

// Deactivate marks a token the push service reported as unregistered.
func (r *Registry) Deactivate(ctx context.Context, token string) error {
	tag, err := r.db.Exec(ctx, `UPDATE push_tokens SET active = false, updated_at = NOW() WHERE token = $1`, token)
	if err != nil {
		return apperrors.Gateway("deactivate push token", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deactivate push token: %w", apperrors.ErrNotFound)
	}
	return nil
}
