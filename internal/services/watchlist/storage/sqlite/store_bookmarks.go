package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage"
)

func scanBookmark(row rowScanner) (domain.Bookmark, error) {
	var (
		bookmark  domain.Bookmark
		createdAt int64
	)
	if err := row.Scan(&bookmark.ID, &bookmark.WatchlistID, &bookmark.UserID, &createdAt); err != nil {
		return domain.Bookmark{}, err
	}
	bookmark.CreatedAt = fromMillis(createdAt)
	return bookmark, nil
}

// CreateBookmark inserts a bookmark.
func (t *txStore) CreateBookmark(ctx context.Context, bookmark domain.Bookmark) (domain.Bookmark, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Bookmark{}, err
	}
	bookmark.UserID = strings.TrimSpace(bookmark.UserID)
	if bookmark.UserID == "" {
		return domain.Bookmark{}, fmt.Errorf("user id is required")
	}
	if bookmark.CreatedAt.IsZero() {
		bookmark.CreatedAt = time.Now().UTC()
	}
	res, err := t.q.ExecContext(
		ctx,
		`INSERT INTO watchlist_bookmarks (watchlist_id, user_id, created_at) VALUES (?, ?, ?)`,
		bookmark.WatchlistID,
		bookmark.UserID,
		toMillis(bookmark.CreatedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.Bookmark{}, storage.ErrAlreadyExists
		case isForeignKeyViolation(err):
			return domain.Bookmark{}, storage.ErrNotFound
		}
		return domain.Bookmark{}, fmt.Errorf("create bookmark: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("create bookmark id: %w", err)
	}
	bookmark.ID = id
	bookmark.CreatedAt = fromMillis(toMillis(bookmark.CreatedAt))
	return bookmark, nil
}

// GetBookmark returns the user's bookmark of a watchlist.
func (t *txStore) GetBookmark(ctx context.Context, watchlistID int64, userID string) (domain.Bookmark, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Bookmark{}, err
	}
	row := t.q.QueryRowContext(
		ctx,
		`SELECT id, watchlist_id, user_id, created_at
		   FROM watchlist_bookmarks
		  WHERE watchlist_id = ? AND user_id = ?`,
		watchlistID,
		strings.TrimSpace(userID),
	)
	bookmark, err := scanBookmark(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Bookmark{}, storage.ErrNotFound
		}
		return domain.Bookmark{}, fmt.Errorf("get bookmark: %w", err)
	}
	return bookmark, nil
}

// DeleteBookmark removes the user's bookmark of a watchlist.
func (t *txStore) DeleteBookmark(ctx context.Context, watchlistID int64, userID string) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	res, err := t.q.ExecContext(
		ctx,
		`DELETE FROM watchlist_bookmarks WHERE watchlist_id = ? AND user_id = ?`,
		watchlistID,
		strings.TrimSpace(userID),
	)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bookmark rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListBookmarks returns the user's bookmarks, newest first.
func (t *txStore) ListBookmarks(ctx context.Context, userID string, limit, offset int) ([]domain.Bookmark, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	if err := checkLimit(limit, offset); err != nil {
		return nil, err
	}
	rows, err := t.q.QueryContext(
		ctx,
		`SELECT id, watchlist_id, user_id, created_at
		   FROM watchlist_bookmarks
		  WHERE user_id = ?
		  ORDER BY created_at DESC, id DESC
		  LIMIT ? OFFSET ?`,
		strings.TrimSpace(userID),
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := make([]domain.Bookmark, 0)
	for rows.Next() {
		bookmark, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("list bookmarks: %w", err)
		}
		bookmarks = append(bookmarks, bookmark)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return bookmarks, nil
}
