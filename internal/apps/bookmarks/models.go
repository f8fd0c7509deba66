// Package bookmarks stores links grouped into collections and labelled with tags.
package bookmarks

import "time"

// Collection groups bookmarks. Deleting one detaches its bookmarks.
type Collection struct {
	ID          int64     `json:"id" po:"id,primaryKey,bigserial"`
	Name        string    `json:"name" po:"name,text,notNull,unique"`
	Description *string   `json:"description" po:"description,text"`
	Color       *string   `json:"color" po:"color,varchar(7),check(color ~ '^#[0-9A-Fa-f]{6}$')"`
	CreatedAt   time.Time `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt   time.Time `json:"updated_at" po:"updated_at,timestamptz,notNull,default(now())"`
}

func (Collection) TableName() string { return "collections" }

// CollectionWithCount is a collection with the number of bookmarks in it.
type CollectionWithCount struct {
	Collection
	BookmarkCount int64 `json:"bookmark_count"`
}

// Bookmark is a saved link. Tags is filled from the junction table on read.
type Bookmark struct {
	ID           int64     `json:"id" po:"id,primaryKey,bigserial"`
	URL          string    `json:"url" po:"url,text,notNull"`
	Title        string    `json:"title" po:"title,text,notNull"`
	Description  *string   `json:"description" po:"description,text"`
	CollectionID *int64    `json:"collection_id" po:"collection_id,bigint,index,fk:collections(id),onDelete:setnull"`
	IsFavorite   bool      `json:"is_favorite" po:"is_favorite,boolean,notNull,default(false)"`
	CreatedAt    time.Time `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt    time.Time `json:"updated_at" po:"updated_at,timestamptz,notNull,default(now())"`
	Tags         []Tag     `json:"tags"`
}

func (Bookmark) TableName() string { return "bookmarks" }

// Tag is a lowercase label.
type Tag struct {
	ID        int64     `json:"id" po:"id,primaryKey,bigserial"`
	Name      string    `json:"name" po:"name,varchar(50),notNull,unique"`
	CreatedAt time.Time `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
}

func (Tag) TableName() string { return "tags" }

// BookmarkTag links a bookmark to a tag. Rows are only inserted and deleted.
type BookmarkTag struct {
	BookmarkID int64 `po:"bookmark_id,bigint,primaryKey,fk:bookmarks(id),onDelete:cascade"`
	TagID      int64 `po:"tag_id,bigint,primaryKey,index,fk:tags(id),onDelete:cascade"`
}

func (BookmarkTag) TableName() string { return "bookmark_tags" }

// taggedRow is a tag joined with the bookmark it is attached to.
type taggedRow struct {
	BookmarkID int64     `po:"bookmark_id,bigint"`
	ID         int64     `po:"id,bigint"`
	Name       string    `po:"name,text"`
	CreatedAt  time.Time `po:"created_at,timestamptz"`
}

// collectionCount is one row of the per-collection bookmark count.
type collectionCount struct {
	CollectionID  int64 `po:"collection_id,bigint"`
	BookmarkCount int64 `po:"bookmark_count,bigint"`
}

// Models returns the persisted models of the app.
func Models() []any {
	return []any{Collection{}, Tag{}, Bookmark{}, BookmarkTag{}}
}
