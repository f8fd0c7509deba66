package bookmarks

import (
	"testing"

	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/listquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestBookmarkList(t *testing.T) {
	db := builder.New(nil)

	tests := []struct {
		name     string
		filter   *BookmarkFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "absent filter",
			wantSQL: "SELECT * FROM bookmarks ORDER BY id ASC LIMIT 50",
		},
		{
			name:     "tag filter is an EXISTS on the junction",
			filter:   &BookmarkFilter{Search: ptr("go"), TagID: ptr(int64(2)), IsFavorite: ptr(true)},
			wantSQL:  "SELECT * FROM bookmarks WHERE (title ILIKE $1 OR description ILIKE $2 OR url ILIKE $3) AND EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = bookmarks.id AND bt.tag_id = $4) AND is_favorite = $5 ORDER BY id ASC LIMIT 50",
			wantArgs: []any{"%go%", "%go%", "%go%", int64(2), true},
		},
		{
			name:     "collection and page",
			filter:   &BookmarkFilter{CollectionID: ptr(int64(9)), Page: listquery.Page{Offset: ptr(50)}},
			wantSQL:  "SELECT * FROM bookmarks WHERE collection_id = $1 ORDER BY id ASC LIMIT 50 OFFSET 50",
			wantArgs: []any{int64(9)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := listquery.Apply(builder.Select[Bookmark](db), bookmarkList, tt.filter).ToSQL()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestTagList(t *testing.T) {
	sql, args, err := listquery.Apply(builder.Select[Tag](builder.New(nil)), tagList, &TagFilter{Search: ptr("50%")}).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM tags WHERE name ILIKE $1 ORDER BY name ASC", sql)
	assert.Equal(t, []any{`%50\%%`}, args)
}

func TestSelectTagsOf(t *testing.T) {
	sql, args, err := selectTagsOf(builder.New(nil), []int64{4, 5}).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT bt.bookmark_id, t.id, t.name, t.created_at FROM bookmark_tags bt INNER JOIN tags t ON t.id = bt.tag_id WHERE bt.bookmark_id IN ($1, $2) ORDER BY bt.bookmark_id ASC, t.name ASC", sql)
	assert.Equal(t, []any{int64(4), int64(5)}, args)
}

func TestSelectCounts(t *testing.T) {
	sql, args, err := selectCounts(builder.New(nil), []int64{1}).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT collection_id, count(*) AS bookmark_count FROM bookmarks WHERE collection_id IN ($1) GROUP BY collection_id", sql)
	assert.Equal(t, []any{int64(1)}, args)
}
