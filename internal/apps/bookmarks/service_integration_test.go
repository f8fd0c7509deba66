//go:build integration

package bookmarks

import (
	"context"
	"testing"

	"github.com/marshallshelly/pebble-apps/internal/apperr"
	"github.com/marshallshelly/pebble-apps/internal/apps/crud"
	"github.com/marshallshelly/pebble-apps/internal/logging"
	"github.com/marshallshelly/pebble-apps/internal/testdb"
	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(builder.New(testdb.StartWithModels(t, Models()...)), logging.Discard())
}

func tagNames(b *Bookmark) []string {
	names := make([]string, len(b.Tags))
	for i, tag := range b.Tags {
		names[i] = tag.Name
	}
	return names
}

func TestBookmarks_TagsAndSearch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	golang, err := svc.CreateTag(ctx, &CreateTagInput{Name: "  GoLang "})
	require.NoError(t, err)
	assert.Equal(t, "golang", golang.Name)
	_, err = svc.CreateTag(ctx, &CreateTagInput{Name: "golang"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	db, err := svc.CreateTag(ctx, &CreateTagInput{Name: "databases"})
	require.NoError(t, err)

	first, err := svc.CreateBookmark(ctx, &CreateBookmarkInput{
		URL: "https://go.dev/doc", Title: "Go docs", TagIDs: []int64{golang.ID, db.ID, golang.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"databases", "golang"}, tagNames(first))

	second, err := svc.CreateBookmark(ctx, &CreateBookmarkInput{URL: "https://postgresql.org", Title: "Postgres"})
	require.NoError(t, err)
	assert.Equal(t, []Tag{}, second.Tags)

	_, err = svc.CreateBookmark(ctx, &CreateBookmarkInput{URL: "https://x.org", Title: "X", TagIDs: []int64{golang.ID, 777}})
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "777")

	tagged, err := svc.SearchBookmarks(ctx, &BookmarkFilter{TagID: &golang.ID})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, first.ID, tagged[0].ID)
	assert.Len(t, tagged[0].Tags, 2)

	all, err := svc.SearchBookmarks(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2, "the failed create left nothing behind")

	updated, err := svc.UpdateBookmark(ctx, &UpdateBookmarkInput{ID: first.ID, TagIDs: optional.Some([]int64{db.ID})})
	require.NoError(t, err)
	assert.Equal(t, []string{"databases"}, tagNames(updated))
	assert.Equal(t, "Go docs", updated.Title)
	assert.True(t, updated.UpdatedAt.After(first.UpdatedAt))

	kept, err := svc.UpdateBookmark(ctx, &UpdateBookmarkInput{ID: first.ID, IsFavorite: optional.Some(true)})
	require.NoError(t, err)
	assert.True(t, kept.IsFavorite)
	assert.Equal(t, []string{"databases"}, tagNames(kept), "omitted tag_ids keeps the tags")

	_, err = svc.DeleteTag(ctx, &crud.ByID{ID: db.ID})
	require.NoError(t, err)
	got, err := svc.GetBookmarkByID(ctx, &crud.ByID{ID: first.ID})
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestBookmarks_CollectionDeleteDetaches(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	c, err := svc.CreateCollection(ctx, &CreateCollectionInput{Name: "Reading", Color: ptr("#1A2B3C")})
	require.NoError(t, err)
	b, err := svc.CreateBookmark(ctx, &CreateBookmarkInput{URL: "https://example.com", Title: "Example", CollectionID: &c.ID})
	require.NoError(t, err)

	withCount, err := svc.GetCollectionByID(ctx, &crud.ByID{ID: c.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), withCount.BookmarkCount)

	_, err = svc.CreateBookmark(ctx, &CreateBookmarkInput{URL: "https://example.org", Title: "Nope", CollectionID: ptr(int64(55))})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	res, err := svc.DeleteCollection(ctx, &crud.ByID{ID: c.ID})
	require.NoError(t, err)
	assert.True(t, res.Success)

	detached, err := svc.GetBookmarkByID(ctx, &crud.ByID{ID: b.ID})
	require.NoError(t, err)
	assert.Nil(t, detached.CollectionID)

	_, err = svc.DeleteCollection(ctx, &crud.ByID{ID: c.ID})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	res, err = svc.DeleteBookmark(ctx, &crud.ByID{ID: 4242})
	require.NoError(t, err)
	assert.False(t, res.Success)
}
