package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
)

func setupAutoSaveRepo(t *testing.T) (*AutoSaveRepository, *miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewAutoSaveRepository(client), mr, client
}

func newDraft(owner, content string, created time.Time, ttl time.Duration) *domain.AutoSave {
	return &domain.AutoSave{
		OwnerID:   owner,
		Title:     "Draft",
		Content:   content,
		Tags:      []string{"wip"},
		Metadata:  map[string]interface{}{domain.MetaRevision: 1},
		CreatedAt: created,
		ExpiresAt: created.Add(ttl),
	}
}

func TestAutoSaveRepository_CreateAndGet(t *testing.T) {
	repo, mr, _ := setupAutoSaveRepo(t)
	ctx := context.Background()

	t.Run("stores draft with ttl", func(t *testing.T) {
		a := newDraft("user-1", "hello", time.Now(), time.Hour)
		require.NoError(t, repo.CreateAutoSave(ctx, a))
		assert.NotEmpty(t, a.ID)

		assert.True(t, mr.Exists(draftKeyPrefix+a.ID))
		ttl := mr.TTL(draftKeyPrefix + a.ID)
		assert.Greater(t, ttl, 59*time.Minute)
		assert.LessOrEqual(t, ttl, time.Hour)

		got, err := repo.GetAutoSave(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Content)
		assert.Equal(t, "user-1", got.OwnerID)
		assert.Equal(t, []string{"wip"}, got.Tags)
	})

	t.Run("rejects missing owner", func(t *testing.T) {
		err := repo.CreateAutoSave(ctx, &domain.AutoSave{Content: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("missing draft", func(t *testing.T) {
		_, err := repo.GetAutoSave(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrAutoSaveNotFound)
	})

	t.Run("expires with ttl", func(t *testing.T) {
		a := newDraft("user-2", "short", time.Now(), 2*time.Second)
		require.NoError(t, repo.CreateAutoSave(ctx, a))

		mr.FastForward(3 * time.Second)

		_, err := repo.GetAutoSave(ctx, a.ID)
		assert.ErrorIs(t, err, domain.ErrAutoSaveNotFound)
	})
}

func TestAutoSaveRepository_ListAutoSaves(t *testing.T) {
	repo, mr, client := setupAutoSaveRepo(t)
	ctx := context.Background()
	base := time.Now()

	older := newDraft("user-1", "older", base.Add(-time.Minute), time.Hour)
	newer := newDraft("user-1", "newer", base, time.Hour)
	short := newDraft("user-1", "short", base.Add(-30*time.Second), 2*time.Second)
	other := newDraft("user-2", "other", base, time.Hour)
	for _, a := range []*domain.AutoSave{older, newer, short, other} {
		require.NoError(t, repo.CreateAutoSave(ctx, a))
	}

	t.Run("newest first", func(t *testing.T) {
		list, err := repo.ListAutoSaves(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, short.ID, list[1].ID)
		assert.Equal(t, older.ID, list[2].ID)
	})

	t.Run("expired drafts drop out of the index", func(t *testing.T) {
		mr.FastForward(3 * time.Second)

		list, err := repo.ListAutoSaves(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, list, 2)

		members, err := client.ZRange(ctx, userDraftIndexPrefix+"user-1:drafts", 0, -1).Result()
		require.NoError(t, err)
		assert.NotContains(t, members, short.ID)
	})

	t.Run("unknown owner", func(t *testing.T) {
		list, err := repo.ListAutoSaves(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestAutoSaveRepository_DeleteAndOwners(t *testing.T) {
	repo, _, _ := setupAutoSaveRepo(t)
	ctx := context.Background()

	a := newDraft("user-1", "x", time.Now(), time.Hour)
	b := newDraft("user-2", "y", time.Now(), time.Hour)
	require.NoError(t, repo.CreateAutoSave(ctx, a))
	require.NoError(t, repo.CreateAutoSave(ctx, b))

	owners, err := repo.ListOwners(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user-1", "user-2"}, owners)

	require.NoError(t, repo.DeleteAutoSave(ctx, a.ID))
	assert.ErrorIs(t, repo.DeleteAutoSave(ctx, a.ID), domain.ErrAutoSaveNotFound)

	list, err := repo.ListAutoSaves(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	owners, err = repo.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-2"}, owners)
}

func TestAutoSaveRepository_PublishesSavedDrafts(t *testing.T) {
	repo, _, client := setupAutoSaveRepo(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, draftEventChannelPrefix+"user-1")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	a := newDraft("user-1", "published", time.Now(), time.Hour)
	require.NoError(t, repo.CreateAutoSave(ctx, a))

	select {
	case msg := <-sub.Channel():
		var got domain.AutoSave
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, "published", got.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

type refusePublishHook struct{}

func (refusePublishHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (refusePublishHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "publish" {
			return errors.New("publish refused")
		}
		return next(ctx, cmd)
	}
}

func (refusePublishHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestAutoSaveRepository_PublishFailureIsLogged(t *testing.T) {
	repo, mr, client := setupAutoSaveRepo(t)
	client.AddHook(refusePublishHook{})

	var logs bytes.Buffer
	repo.logger = slog.New(slog.NewTextHandler(&logs, nil))

	a := newDraft("user-1", "kept", time.Now(), time.Hour)
	require.NoError(t, repo.CreateAutoSave(context.Background(), a))

	assert.True(t, mr.Exists(draftKeyPrefix+a.ID), "draft is stored even when the event is not")
	assert.Contains(t, logs.String(), "failed to publish draft event")
	assert.Contains(t, logs.String(), "publish refused")
}
