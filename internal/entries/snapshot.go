package entries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	journal "io.winapps.meicho/internal/models/journal"
	"io.winapps.meicho/internal/prompt"
)

// Snapshot is the persisted form of a store: the entry cache and the prompt state.
// The streak is derived and never persisted.
type Snapshot struct {
	Entries []journal.Entry `json:"entries"`
	Prompt  prompt.State    `json:"prompt"`
	SavedAt time.Time       `json:"savedAt"`
}

type SnapshotCache interface {
	// Get returns nil, nil when no snapshot exists.
	Get(ctx context.Context, ownerID string) (*Snapshot, error)
	Put(ctx context.Context, ownerID string, snap *Snapshot) error
	Delete(ctx context.Context, ownerID string) error
}

type RedisSnapshots struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisSnapshots(client redis.Cmdable, ttl time.Duration) *RedisSnapshots {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSnapshots{client: client, ttl: ttl}
}

func snapshotKey(ownerID string) string {
	return fmt.Sprintf("entry_store:%s", ownerID)
}

func (r *RedisSnapshots) Get(ctx context.Context, ownerID string) (*Snapshot, error) {
	data, err := r.client.Get(ctx, snapshotKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

func (r *RedisSnapshots) Put(ctx context.Context, ownerID string, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := r.client.Set(ctx, snapshotKey(ownerID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (r *RedisSnapshots) Delete(ctx context.Context, ownerID string) error {
	if err := r.client.Del(ctx, snapshotKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
