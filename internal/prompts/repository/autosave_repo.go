package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
)

const (
	draftKeyPrefix          = "autosave:draft:"  // Draft data: autosave:draft:{id}
	userDraftIndexPrefix    = "autosave:user:"   // Sorted set of draft IDs by created_at: autosave:user:{owner_id}:drafts
	draftOwnersKey          = "autosave:owners"  // Set of owners with at least one indexed draft
	draftEventChannelPrefix = "autosave:events:" // Pub/Sub channel for saved drafts: autosave:events:{owner_id}
	minDraftTTL             = time.Second
)

// AutoSaveRepository stores drafts in Redis. Each draft key carries its own
// TTL derived from ExpiresAt; the per-owner index is cleaned up lazily when
// listing finds keys that Redis already expired.
type AutoSaveRepository struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewAutoSaveRepository creates a new AutoSaveRepository
func NewAutoSaveRepository(client *redis.Client) *AutoSaveRepository {
	return &AutoSaveRepository{
		client: client,
		logger: slog.Default().With("component", "autosave_repo"),
		now:    time.Now,
	}
}

// CreateAutoSave stores a draft and publishes it on the owner's event channel.
// Publishing is best-effort: the draft is stored even when no event goes out.
func (r *AutoSaveRepository) CreateAutoSave(ctx context.Context, a *domain.AutoSave) error {
	if a.OwnerID == "" {
		return domain.ErrInvalidInput
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}

	ttl := minDraftTTL
	if !a.ExpiresAt.IsZero() {
		if d := a.ExpiresAt.Sub(r.now()); d > ttl {
			ttl = d
		}
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	indexKey := r.userDraftIndexKey(a.OwnerID)

	// Use pipeline for atomic operations
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.draftKey(a.ID), data, ttl)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(a.CreatedAt.UnixNano()), Member: a.ID})
	pipe.SAdd(ctx, draftOwnersKey, a.OwnerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create draft: %w", err)
	}

	if err := r.client.Publish(ctx, r.draftEventChannel(a.OwnerID), data).Err(); err != nil {
		r.logger.Warn("failed to publish draft event", "autosave_id", a.ID, "owner_id", a.OwnerID, "error", err)
	}
	return nil
}

func (r *AutoSaveRepository) GetAutoSave(ctx context.Context, id string) (*domain.AutoSave, error) {
	data, err := r.client.Get(ctx, r.draftKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrAutoSaveNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	var a domain.AutoSave
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &a, nil
}

// ListAutoSaves returns the owner's live drafts, newest first.
func (r *AutoSaveRepository) ListAutoSaves(ctx context.Context, ownerID string) ([]domain.AutoSave, error) {
	indexKey := r.userDraftIndexKey(ownerID)

	ids, err := r.client.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts for user: %w", err)
	}
	if len(ids) == 0 {
		r.client.SRem(ctx, draftOwnersKey, ownerID)
		return []domain.AutoSave{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.draftKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load drafts: %w", err)
	}

	out := make([]domain.AutoSave, 0, len(ids))
	var dangling []interface{}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			dangling = append(dangling, ids[i])
			continue
		}
		var a domain.AutoSave
		if err := json.Unmarshal([]byte(s), &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal draft %s: %w", ids[i], err)
		}
		out = append(out, a)
	}

	if len(dangling) > 0 {
		pipe := r.client.Pipeline()
		pipe.ZRem(ctx, indexKey, dangling...)
		if len(out) == 0 {
			pipe.SRem(ctx, draftOwnersKey, ownerID)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to clean draft index: %w", err)
		}
	}

	return out, nil
}

func (r *AutoSaveRepository) DeleteAutoSave(ctx context.Context, id string) error {
	a, err := r.GetAutoSave(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.draftKey(id))
	pipe.ZRem(ctx, r.userDraftIndexKey(a.OwnerID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// ListOwners returns every owner that has had a draft indexed since its
// index was last found empty.
func (r *AutoSaveRepository) ListOwners(ctx context.Context) ([]string, error) {
	owners, err := r.client.SMembers(ctx, draftOwnersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list draft owners: %w", err)
	}
	return owners, nil
}

// Helper methods for key generation
func (r *AutoSaveRepository) draftKey(id string) string {
	return fmt.Sprintf("%s%s", draftKeyPrefix, id)
}

func (r *AutoSaveRepository) userDraftIndexKey(ownerID string) string {
	return fmt.Sprintf("%s%s:drafts", userDraftIndexPrefix, ownerID)
}

func (r *AutoSaveRepository) draftEventChannel(ownerID string) string {
	return fmt.Sprintf("%s%s", draftEventChannelPrefix, ownerID)
}
