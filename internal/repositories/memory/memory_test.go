package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxischmaxi/code-preview-server/internal/models"
	"github.com/maxischmaxi/code-preview-server/internal/repositories"
)

func TestSessionRepoCopiesOnReadAndWrite(t *testing.T) {
	repo := NewSessionRepo()
	ctx := context.Background()

	in := &models.Session{CreatedBy: "alice", Admins: []string{"bob"}}
	created, err := repo.Create(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	in.Admins[0] = "mallory"
	created.Admins[0] = "eve"
	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, got.Admins)

	got.Code = "print(1)"
	require.NoError(t, repo.Update(ctx, got))
	again, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "print(1)", again.Code)
}

func TestSessionRepoMissing(t *testing.T) {
	repo := NewSessionRepo()
	ctx := context.Background()

	_, err := repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &models.Session{ID: "nope"}), repositories.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "nope"), repositories.ErrNotFound)
}

func TestSessionRepoDeleteAll(t *testing.T) {
	repo := NewSessionRepo()
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		_, err := repo.Create(ctx, &models.Session{ID: id})
		require.NoError(t, err)
	}

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, err = repo.Get(ctx, "a")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestTemplateRepoListIsSortedByTitle(t *testing.T) {
	repo := NewTemplateRepo()
	ctx := context.Background()
	for _, title := range []string{"Strings", "Arrays", "Graphs"} {
		_, err := repo.Create(ctx, &models.Template{Title: title, Language: "go"})
		require.NoError(t, err)
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Arrays", "Graphs", "Strings"}, []string{list[0].Title, list[1].Title, list[2].Title})

	list[0].Solution = "x"
	require.NoError(t, repo.Update(ctx, &list[0]))
	got, err := repo.Get(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Solution)

	require.NoError(t, repo.Delete(ctx, got.ID))
	assert.ErrorIs(t, repo.Delete(ctx, got.ID), repositories.ErrNotFound)
}

func TestNewStoreCloses(t *testing.T) {
	store := NewStore()
	assert.NoError(t, store.Close(context.Background()))
}
