// Package bookmark lets users save references to public watchlists.
package bookmark

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/equitalks/equitalks/internal/platform/errors"
	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/permission"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage"
)

// Store is the subset of a transaction the bookmark manager uses.
type Store interface {
	GetWatchlist(ctx context.Context, id int64) (domain.Watchlist, error)
	GetShare(ctx context.Context, watchlistID int64, userID string) (domain.Share, error)
	storage.BookmarkStore
}

// Manager creates and removes bookmarks.
type Manager struct {
	now func() time.Time
}

// NewManager builds a manager. A nil clock uses time.Now.
func NewManager(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{now: now}
}

// Bookmark saves the public watchlist for userID.
func (m *Manager) Bookmark(ctx context.Context, store Store, userID string, watchlistID int64) (domain.Bookmark, error) {
	if _, err := publicWatchlist(ctx, store, watchlistID); err != nil {
		return domain.Bookmark{}, err
	}
	created, err := store.CreateBookmark(ctx, domain.Bookmark{
		WatchlistID: watchlistID,
		UserID:      userID,
		CreatedAt:   m.now().UTC(),
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return domain.Bookmark{}, apperrors.WithMetadata(apperrors.CodeBookmarkAlreadyExists,
			"watchlist is already bookmarked", bookmarkMetadata(watchlistID))
	}
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("create bookmark: %w", err)
	}
	return created, nil
}

// Unbookmark removes userID's bookmark. The watchlist must still be public.
func (m *Manager) Unbookmark(ctx context.Context, store Store, userID string, watchlistID int64) error {
	if _, err := publicWatchlist(ctx, store, watchlistID); err != nil {
		return err
	}
	err := store.DeleteBookmark(ctx, watchlistID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.WithMetadata(apperrors.CodeBookmarkNotFound, "bookmark not found",
			bookmarkMetadata(watchlistID))
	}
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

// List returns userID's bookmarks newest first. Targets the user can no
// longer view are returned without their watchlist.
func (m *Manager) List(ctx context.Context, store Store, userID string, limit, offset int) ([]domain.BookmarkedWatchlist, error) {
	bookmarks, err := store.ListBookmarks(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	out := make([]domain.BookmarkedWatchlist, 0, len(bookmarks))
	for _, b := range bookmarks {
		entry := domain.BookmarkedWatchlist{Bookmark: b}
		w, err := store.GetWatchlist(ctx, b.WatchlistID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("get bookmarked watchlist: %w", err)
		default:
			visible, err := permission.CanView(ctx, store, userID, w)
			if err != nil {
				return nil, err
			}
			if visible {
				entry.Watchlist = &w
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func publicWatchlist(ctx context.Context, store Store, watchlistID int64) (domain.Watchlist, error) {
	w, err := store.GetWatchlist(ctx, watchlistID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Watchlist{}, permission.NotFound(watchlistID)
	}
	if err != nil {
		return domain.Watchlist{}, fmt.Errorf("get watchlist: %w", err)
	}
	if !w.IsPublic() {
		return domain.Watchlist{}, permission.NotFound(watchlistID)
	}
	return w, nil
}

func bookmarkMetadata(watchlistID int64) map[string]string {
	return map[string]string{"watchlist_id": strconv.FormatInt(watchlistID, 10)}
}
