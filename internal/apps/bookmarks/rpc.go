package bookmarks

import "github.com/marshallshelly/pebble-apps/internal/rpc"

// Register exposes the bookmark procedures on srv.
func (s *Service) Register(srv *rpc.Server) {
	rpc.Register(srv, "bookmarks.createCollection", s.CreateCollection)
	rpc.Register(srv, "bookmarks.getCollections", s.GetCollections)
	rpc.Register(srv, "bookmarks.getCollectionById", s.GetCollectionByID)
	rpc.Register(srv, "bookmarks.updateCollection", s.UpdateCollection)
	rpc.Register(srv, "bookmarks.deleteCollection", s.DeleteCollection)

	rpc.Register(srv, "bookmarks.createBookmark", s.CreateBookmark)
	rpc.Register(srv, "bookmarks.searchBookmarks", s.SearchBookmarks)
	rpc.Register(srv, "bookmarks.getBookmarks", s.SearchBookmarks)
	rpc.Register(srv, "bookmarks.getBookmarkById", s.GetBookmarkByID)
	rpc.Register(srv, "bookmarks.updateBookmark", s.UpdateBookmark)
	rpc.Register(srv, "bookmarks.deleteBookmark", s.DeleteBookmark)

	rpc.Register(srv, "bookmarks.createTag", s.CreateTag)
	rpc.Register(srv, "bookmarks.getTags", s.GetTags)
	rpc.Register(srv, "bookmarks.deleteTag", s.DeleteTag)
}
