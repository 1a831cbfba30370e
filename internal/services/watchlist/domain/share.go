package domain

import "time"

// Share grants one user access to a watchlist they do not own.
type Share struct {
	WatchlistID int64     `json:"watchlist_id"`
	UserID      string    `json:"user_id"`
	CanEdit     bool      `json:"can_edit"`
	CreatedAt   time.Time `json:"created_at"`
}

// Bookmark is a saved reference to a public watchlist.
type Bookmark struct {
	ID          int64     `json:"id"`
	WatchlistID int64     `json:"watchlist_id"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// BookmarkedWatchlist pairs a bookmark with its target. Watchlist is nil when
// the caller can no longer view the target.
type BookmarkedWatchlist struct {
	Bookmark  Bookmark   `json:"bookmark"`
	Watchlist *Watchlist `json:"watchlist,omitempty"`
}
