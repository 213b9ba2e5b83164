package subscription

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrelay/internal/logger"
	pkgerrors "payrelay/pkg/errors"
)

func newFileSub(name string) *Subscription {
	return &Subscription{
		ID:        uuid.New().String(),
		Name:      name,
		URL:       "https://hooks.example.com/" + name,
		Title:     "t",
		Text:      "x",
		EventType: "sale_paid",
		Enabled:   true,
	}
}

func TestFileRepository_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscriptions.json")
	ctx := context.Background()

	repo, err := NewFileRepository(path, logger.NopLogger())
	require.NoError(t, err)

	sub := newFileSub("hook-a")
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	reopened, err := NewFileRepository(path, logger.NopLogger())
	require.NoError(t, err)

	retrieved, err := reopened.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "hook-a", retrieved.Name)
	assert.Equal(t, sub.URL, retrieved.URL)
}

func TestFileRepository_DuplicateName(t *testing.T) {
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "subs.json"), logger.NopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.CreateSubscription(ctx, newFileSub("hook-a")))

	err = repo.CreateSubscription(ctx, newFileSub("hook-a"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestFileRepository_UpdateAndDelete(t *testing.T) {
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "subs.json"), logger.NopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	sub := newFileSub("hook-a")
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	sub.Title = "updated"
	require.NoError(t, repo.UpdateSubscription(ctx, sub))

	retrieved, err := repo.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", retrieved.Title)
	assert.True(t, retrieved.UpdatedAt.After(retrieved.CreatedAt) || retrieved.UpdatedAt.Equal(retrieved.CreatedAt))

	require.NoError(t, repo.DeleteSubscription(ctx, sub.ID))
	_, err = repo.GetSubscription(ctx, sub.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestFileRepository_UpdateRejectsNameCollision(t *testing.T) {
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "subs.json"), logger.NopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	a := newFileSub("hook-a")
	b := newFileSub("hook-b")
	require.NoError(t, repo.CreateSubscription(ctx, a))
	require.NoError(t, repo.CreateSubscription(ctx, b))

	b.Name = "hook-a"
	err = repo.UpdateSubscription(ctx, b)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestFileRepository_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0o644))

	repo, err := NewFileRepository(path, logger.NopLogger())
	require.NoError(t, err)

	subs, err := repo.ListSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestFileRepository_ListNewestFirst(t *testing.T) {
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "subs.json"), logger.NopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.CreateSubscription(ctx, newFileSub("first")))
	require.NoError(t, repo.CreateSubscription(ctx, newFileSub("second")))

	subs, err := repo.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
}
