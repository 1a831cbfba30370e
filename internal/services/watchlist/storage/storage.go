// Package storage defines persistence contracts for watchlist service state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage/filter"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness constraint rejected the write.
	ErrAlreadyExists = errors.New("record already exists")
)

// OwnerQuery narrows an owner listing.
type OwnerQuery struct {
	// NameKey matches watchlists whose name key contains it.
	NameKey string
	// Condition is an additional filter over watchlist columns.
	Condition filter.Condition
	Limit     int
	Offset    int
}

// WatchlistStore persists watchlist records.
//
// CreateWatchlist and UpdateWatchlist clear is_default on the owner's other
// watchlists when the written record is default. Callers run them inside a
// transaction so the owner never has zero or two defaults mid-write.
type WatchlistStore interface {
	CreateWatchlist(ctx context.Context, watchlist domain.Watchlist) (domain.Watchlist, error)
	UpdateWatchlist(ctx context.Context, id int64, patch domain.WatchlistPatch, updatedAt time.Time) (domain.Watchlist, error)
	DeleteWatchlist(ctx context.Context, id int64) error
	GetWatchlist(ctx context.Context, id int64) (domain.Watchlist, error)
	GetDefaultWatchlist(ctx context.Context, ownerID string) (domain.Watchlist, error)
	GetPublicWatchlistByOwnerAndName(ctx context.Context, ownerID, nameKey string) (domain.Watchlist, error)
	ListWatchlistsByOwner(ctx context.Context, ownerID string, query OwnerQuery) ([]domain.Watchlist, error)
	ListPublicWatchlistsByName(ctx context.Context, nameKey string, limit, offset int) ([]domain.Watchlist, error)
	// ListForks lists direct forks of sourceID that viewerID can see: public
	// forks, forks viewerID owns, and forks shared with viewerID. An empty
	// viewerID sees public forks only.
	ListForks(ctx context.Context, sourceID int64, viewerID string, limit, offset int) ([]domain.Watchlist, error)
	ListTrending(ctx context.Context, limit, offset int) ([]domain.TrendingWatchlist, error)
	// IncrementForkCount adds one to fork_count without reading it first.
	IncrementForkCount(ctx context.Context, id int64) error
}

// ItemStore persists watchlist items.
//
// Lists are ordered by position ascending with nulls last, then creation
// time. Duplicate (symbol, exchange) pairs surface as ErrAlreadyExists.
type ItemStore interface {
	ListItems(ctx context.Context, watchlistID int64) ([]domain.Item, error)
	ListItemsForWatchlists(ctx context.Context, watchlistIDs []int64) (map[int64][]domain.Item, error)
	GetItem(ctx context.Context, itemID int64) (domain.Item, error)
	CreateItem(ctx context.Context, item domain.Item) (domain.Item, error)
	CreateItems(ctx context.Context, watchlistID int64, items []domain.Item) ([]domain.Item, error)
	UpdateItem(ctx context.Context, itemID int64, patch domain.ItemPatch, updatedAt time.Time) (domain.Item, error)
	DeleteItem(ctx context.Context, itemID int64) (domain.Item, error)
	DeleteItemsByWatchlist(ctx context.Context, watchlistID int64) (int, error)
}

// ShareStore persists per-user watchlist grants.
type ShareStore interface {
	CreateShare(ctx context.Context, share domain.Share) (domain.Share, error)
	GetShare(ctx context.Context, watchlistID int64, userID string) (domain.Share, error)
	UpdateShare(ctx context.Context, watchlistID int64, userID string, canEdit bool) (domain.Share, error)
	DeleteShare(ctx context.Context, watchlistID int64, userID string) error
	ListShares(ctx context.Context, watchlistID int64) ([]domain.Share, error)
}

// BookmarkStore persists saved references to watchlists.
type BookmarkStore interface {
	CreateBookmark(ctx context.Context, bookmark domain.Bookmark) (domain.Bookmark, error)
	GetBookmark(ctx context.Context, watchlistID int64, userID string) (domain.Bookmark, error)
	DeleteBookmark(ctx context.Context, watchlistID int64, userID string) error
	// ListBookmarks returns the user's bookmarks newest first.
	ListBookmarks(ctx context.Context, userID string, limit, offset int) ([]domain.Bookmark, error)
}

// Tx is the set of stores available inside one transaction.
type Tx interface {
	WatchlistStore
	ItemStore
	ShareStore
	BookmarkStore
}

// Store opens transactions over watchlist state.
type Store interface {
	// RunInTx runs fn in one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}
