package bookmarks

import (
	"context"
	"log/slog"
	"slices"

	"github.com/marshallshelly/pebble-apps/internal/apperr"
	"github.com/marshallshelly/pebble-apps/internal/apps/crud"
	"github.com/marshallshelly/pebble-apps/internal/sanitize"
	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/listquery"
	"github.com/marshallshelly/pebble-apps/pkg/optional"
)

const (
	entityCollection = "Collection"
	entityBookmark   = "Bookmark"
	entityTag        = "Tag"

	duplicateCollection = "a collection with this name already exists"
	duplicateTag        = "a tag with this name already exists"
)

// Service implements the bookmark procedures.
type Service struct {
	db     *builder.DB
	logger *slog.Logger
}

// NewService creates the bookmarks service.
func NewService(db *builder.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger.With(slog.String("app", "bookmarks"))}
}

// CreateCollectionInput is the input of createCollection.
type CreateCollectionInput struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Color       *string `json:"color" binding:"omitempty,rgbhex"`
}

// UpdateCollectionInput is the patch of updateCollection.
type UpdateCollectionInput struct {
	ID          int64                   `json:"id" binding:"required,min=1"`
	Name        optional.Field[string]  `json:"name" binding:"omitempty,min=1,max=100"`
	Description optional.Field[*string] `json:"description" binding:"omitempty,max=1000"`
	Color       optional.Field[*string] `json:"color" binding:"omitempty,rgbhex"`
}

// CreateCollection adds a collection.
func (s *Service) CreateCollection(ctx context.Context, in *CreateCollectionInput) (*CollectionWithCount, error) {
	c, err := builder.Insert[Collection](s.db).Values(Collection{
		Name:        sanitize.Text(in.Name),
		Description: sanitize.Ptr(in.Description),
		Color:       in.Color,
	}).One(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, duplicateCollection)
	}
	return &CollectionWithCount{Collection: *c}, nil
}

// GetCollections lists collections with their bookmark counts.
func (s *Service) GetCollections(ctx context.Context, f *CollectionFilter) ([]CollectionWithCount, error) {
	collections, err := listquery.Apply(builder.Select[Collection](s.db), collectionList, f).All(ctx)
	if err != nil {
		return nil, err
	}
	return s.withCounts(ctx, s.db, collections)
}

// GetCollectionByID returns one collection with its bookmark count.
func (s *Service) GetCollectionByID(ctx context.Context, in *crud.ByID) (*CollectionWithCount, error) {
	c, err := crud.Get[Collection](ctx, s.db, entityCollection, in.ID)
	if err != nil {
		return nil, err
	}
	out, err := s.withCounts(ctx, s.db, []Collection{*c})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// UpdateCollection changes the fields present in the patch.
func (s *Service) UpdateCollection(ctx context.Context, in *UpdateCollectionInput) (*CollectionWithCount, error) {
	u := builder.Update[Collection](s.db).
		SetIf(in.Name.Present(), "name", sanitize.Text(in.Name.Get())).
		SetIf(in.Description.Present(), "description", sanitize.Ptr(in.Description.Get())).
		SetIf(in.Color.Present(), "color", in.Color.Get())
	c, err := crud.Update(ctx, s.db, u, entityCollection, in.ID, duplicateCollection)
	if err != nil {
		return nil, err
	}
	out, err := s.withCounts(ctx, s.db, []Collection{*c})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// DeleteCollection removes a collection. Its bookmarks stay, without a collection.
func (s *Service) DeleteCollection(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	return crud.Delete[Collection](ctx, s.db, entityCollection, in.ID, crud.MissingFails)
}

func (s *Service) withCounts(ctx context.Context, q builder.Querier, collections []Collection) ([]CollectionWithCount, error) {
	out := make([]CollectionWithCount, len(collections))
	if len(collections) == 0 {
		return out, nil
	}
	ids := make([]int64, len(collections))
	for i, c := range collections {
		ids[i] = c.ID
	}
	counts, err := selectCounts(q, ids).All(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]int64, len(counts))
	for _, c := range counts {
		byID[c.CollectionID] = c.BookmarkCount
	}
	for i, c := range collections {
		out[i] = CollectionWithCount{Collection: c, BookmarkCount: byID[c.ID]}
	}
	return out, nil
}

// CreateTagInput is the input of createTag.
type CreateTagInput struct {
	Name string `json:"name" binding:"required,max=50"`
}

// CreateTag adds a tag. Names are stored trimmed and lowercased.
func (s *Service) CreateTag(ctx context.Context, in *CreateTagInput) (*Tag, error) {
	name := crud.Lower(sanitize.Text(in.Name))
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	tag, err := builder.Insert[Tag](s.db).Values(Tag{Name: name}).One(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, duplicateTag)
	}
	return tag, nil
}

// GetTags lists tags by name.
func (s *Service) GetTags(ctx context.Context, f *TagFilter) ([]Tag, error) {
	return listquery.Apply(builder.Select[Tag](s.db), tagList, f).All(ctx)
}

// DeleteTag removes a tag from every bookmark and deletes it.
func (s *Service) DeleteTag(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	return crud.Delete[Tag](ctx, s.db, entityTag, in.ID, crud.MissingFails)
}

// CreateBookmarkInput is the input of createBookmark.
type CreateBookmarkInput struct {
	URL          string  `json:"url" binding:"required,url,max=2048"`
	Title        string  `json:"title" binding:"required,max=300"`
	Description  *string `json:"description" binding:"omitempty,max=5000"`
	CollectionID *int64  `json:"collection_id" binding:"omitempty,min=1"`
	IsFavorite   bool    `json:"is_favorite"`
	TagIDs       []int64 `json:"tag_ids" binding:"omitempty,max=50,dive,min=1"`
}

// UpdateBookmarkInput is the patch of updateBookmark. A present tag_ids
// replaces every tag of the bookmark.
type UpdateBookmarkInput struct {
	ID           int64                   `json:"id" binding:"required,min=1"`
	URL          optional.Field[string]  `json:"url" binding:"omitempty,url,max=2048"`
	Title        optional.Field[string]  `json:"title" binding:"omitempty,min=1,max=300"`
	Description  optional.Field[*string] `json:"description" binding:"omitempty,max=5000"`
	CollectionID optional.Field[*int64]  `json:"collection_id" binding:"omitempty,min=1"`
	IsFavorite   optional.Field[bool]    `json:"is_favorite"`
	TagIDs       optional.Field[[]int64] `json:"tag_ids" binding:"omitempty,max=50"`
}

// CreateBookmark saves a link with its tags in one transaction.
func (s *Service) CreateBookmark(ctx context.Context, in *CreateBookmarkInput) (*Bookmark, error) {
	var bookmark *Bookmark
	err := s.db.WithTx(ctx, func(tx *builder.Tx) error {
		if in.CollectionID != nil {
			if err := crud.MustExist[Collection](ctx, tx, entityCollection, *in.CollectionID); err != nil {
				return err
			}
		}
		tagIDs, err := existingTags(ctx, tx, in.TagIDs)
		if err != nil {
			return err
		}

		bookmark, err = builder.Insert[Bookmark](tx).Values(Bookmark{
			URL:          in.URL,
			Title:        sanitize.Text(in.Title),
			Description:  sanitize.Ptr(in.Description),
			CollectionID: in.CollectionID,
			IsFavorite:   in.IsFavorite,
		}).One(ctx)
		if err != nil {
			return apperr.FromStore(err, "")
		}
		if err := attachTags(ctx, tx, bookmark.ID, tagIDs); err != nil {
			return err
		}
		return loadTags(ctx, tx, []*Bookmark{bookmark})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Created bookmark", slog.Int64("id", bookmark.ID), slog.Int("tags", len(bookmark.Tags)))
	return bookmark, nil
}

// SearchBookmarks lists bookmarks with their tags.
func (s *Service) SearchBookmarks(ctx context.Context, f *BookmarkFilter) ([]Bookmark, error) {
	rows, err := listquery.Apply(builder.Select[Bookmark](s.db), bookmarkList, f).All(ctx)
	if err != nil {
		return nil, err
	}
	page := make([]*Bookmark, len(rows))
	for i := range rows {
		page[i] = &rows[i]
	}
	if err := loadTags(ctx, s.db, page); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetBookmarkByID returns one bookmark with its tags.
func (s *Service) GetBookmarkByID(ctx context.Context, in *crud.ByID) (*Bookmark, error) {
	b, err := crud.Get[Bookmark](ctx, s.db, entityBookmark, in.ID)
	if err != nil {
		return nil, err
	}
	if err := loadTags(ctx, s.db, []*Bookmark{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBookmark changes the fields present in the patch and, when tag_ids is
// present, replaces the tags, all in one transaction.
func (s *Service) UpdateBookmark(ctx context.Context, in *UpdateBookmarkInput) (*Bookmark, error) {
	var bookmark *Bookmark
	err := s.db.WithTx(ctx, func(tx *builder.Tx) error {
		if _, err := crud.Lock[Bookmark](ctx, tx, entityBookmark, in.ID); err != nil {
			return err
		}
		if collectionID := in.CollectionID.Get(); collectionID != nil {
			if err := crud.MustExist[Collection](ctx, tx, entityCollection, *collectionID); err != nil {
				return err
			}
		}

		u := builder.Update[Bookmark](tx).
			SetIf(in.URL.Present(), "url", in.URL.Get()).
			SetIf(in.Title.Present(), "title", sanitize.Text(in.Title.Get())).
			SetIf(in.Description.Present(), "description", sanitize.Ptr(in.Description.Get())).
			SetIf(in.CollectionID.Present(), "collection_id", in.CollectionID.Get()).
			SetIf(in.IsFavorite.Present(), "is_favorite", in.IsFavorite.Get())

		if tagIDs, ok := in.TagIDs.Value(); ok {
			ids, err := existingTags(ctx, tx, tagIDs)
			if err != nil {
				return err
			}
			if _, err := builder.Delete[BookmarkTag](tx).Where(builder.Eq("bookmark_id", in.ID)).Exec(ctx); err != nil {
				return err
			}
			if err := attachTags(ctx, tx, in.ID, ids); err != nil {
				return err
			}
		}

		var err error
		bookmark, err = crud.Update(ctx, tx, u, entityBookmark, in.ID, "")
		if err != nil {
			return err
		}
		return loadTags(ctx, tx, []*Bookmark{bookmark})
	})
	if err != nil {
		return nil, err
	}
	return bookmark, nil
}

// DeleteBookmark removes a bookmark and its tag links. A missing id reports success=false.
func (s *Service) DeleteBookmark(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	return crud.Delete[Bookmark](ctx, s.db, entityBookmark, in.ID, crud.MissingIsFalse)
}

// existingTags dedupes ids and fails with not-found on the first id that has no tag.
func existingTags(ctx context.Context, q builder.Querier, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	unique := slices.Clone(ids)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	found, err := builder.Select[Tag](q).Where(builder.In("id", builder.Args(unique)...)).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(found) == len(unique) {
		return unique, nil
	}
	have := make(map[int64]bool, len(found))
	for _, t := range found {
		have[t.ID] = true
	}
	for _, id := range ids {
		if !have[id] {
			return nil, apperr.NotFound(entityTag, id)
		}
	}
	return unique, nil
}

func attachTags(ctx context.Context, q builder.Querier, bookmarkID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	links := make([]BookmarkTag, len(tagIDs))
	for i, tagID := range tagIDs {
		links[i] = BookmarkTag{BookmarkID: bookmarkID, TagID: tagID}
	}
	_, err := builder.Insert[BookmarkTag](q).
		Values(links...).
		OnConflictDoNothing("bookmark_id", "tag_id").
		Exec(ctx)
	if err != nil {
		return apperr.FromStore(err, "")
	}
	return nil
}

// loadTags fills Tags on every bookmark with one query. Bookmarks without tags
// get an empty slice.
func loadTags(ctx context.Context, q builder.Querier, page []*Bookmark) error {
	if len(page) == 0 {
		return nil
	}
	ids := make([]int64, len(page))
	byID := make(map[int64]*Bookmark, len(page))
	for i, b := range page {
		ids[i] = b.ID
		byID[b.ID] = b
		b.Tags = []Tag{}
	}
	rows, err := selectTagsOf(q, ids).All(ctx)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if b, ok := byID[r.BookmarkID]; ok {
			b.Tags = append(b.Tags, Tag{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt})
		}
	}
	return nil
}
