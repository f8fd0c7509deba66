package bookmarks

import (
	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/listquery"
)

// BookmarkFilter filters searchBookmarks.
type BookmarkFilter struct {
	Search       *string `json:"search"`
	CollectionID *int64  `json:"collection_id"`
	TagID        *int64  `json:"tag_id"`
	IsFavorite   *bool   `json:"is_favorite"`
	listquery.Page
}

var bookmarkList = listquery.Definition[BookmarkFilter]{
	Predicates: []listquery.Predicate[BookmarkFilter]{
		listquery.Search(func(f *BookmarkFilter) *string { return f.Search }, "title", "description", "url"),
		listquery.Equals("collection_id", func(f *BookmarkFilter) *int64 { return f.CollectionID }),
		listquery.When(func(f *BookmarkFilter) *int64 { return f.TagID }, func(tagID int64) builder.Condition {
			return builder.Exists("SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = bookmarks.id AND bt.tag_id = ?", tagID)
		}),
		listquery.Equals("is_favorite", func(f *BookmarkFilter) *bool { return f.IsFavorite }),
	},
	Limit: listquery.Limit{Default: 50, Max: 200},
}

// CollectionFilter filters getCollections.
type CollectionFilter struct {
	Search *string `json:"search"`
}

var collectionList = listquery.Definition[CollectionFilter]{
	Predicates: []listquery.Predicate[CollectionFilter]{
		listquery.Search(func(f *CollectionFilter) *string { return f.Search }, "name", "description"),
	},
}

// TagFilter filters getTags.
type TagFilter struct {
	Search *string `json:"search"`
}

var tagList = listquery.Definition[TagFilter]{
	Predicates: []listquery.Predicate[TagFilter]{
		listquery.Search(func(f *TagFilter) *string { return f.Search }, "name"),
	},
	Order: []builder.OrderBy{{Column: "name", Direction: builder.Asc}},
}

// selectTagsOf loads the tags of the given bookmarks in one query.
func selectTagsOf(q builder.Querier, bookmarkIDs []int64) *builder.SelectQuery[taggedRow] {
	return builder.Select[taggedRow](q).
		From("bookmark_tags bt").
		InnerJoin("tags t", "t.id = bt.tag_id").
		Columns("bt.bookmark_id", "t.id", "t.name", "t.created_at").
		Where(builder.In("bt.bookmark_id", builder.Args(bookmarkIDs)...)).
		Order(
			builder.OrderBy{Column: "bt.bookmark_id", Direction: builder.Asc},
			builder.OrderBy{Column: "t.name", Direction: builder.Asc},
		)
}

// selectCounts counts bookmarks per collection for the given collections.
func selectCounts(q builder.Querier, collectionIDs []int64) *builder.SelectQuery[collectionCount] {
	return builder.Select[collectionCount](q).
		From("bookmarks").
		Columns("collection_id", "count(*) AS bookmark_count").
		Where(builder.In("collection_id", builder.Args(collectionIDs)...)).
		GroupBy("collection_id")
}
