package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage"
	"github.com/jackc/pgx/v5"
)

const bookmarkColumns = `id, watchlist_id, user_id, created_at`

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
	row := t.q.QueryRow(
		ctx,
		`INSERT INTO watchlist_bookmarks (watchlist_id, user_id, created_at)
		 VALUES ($1, $2, $3)
		 RETURNING `+bookmarkColumns,
		bookmark.WatchlistID,
		bookmark.UserID,
		toMillis(bookmark.CreatedAt),
	)
	created, err := scanBookmark(row)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.Bookmark{}, storage.ErrAlreadyExists
		case isForeignKeyViolation(err):
			return domain.Bookmark{}, storage.ErrNotFound
		}
		return domain.Bookmark{}, fmt.Errorf("create bookmark: %w", err)
	}
	return created, nil
}

// GetBookmark returns the user's bookmark of a watchlist.
func (t *txStore) GetBookmark(ctx context.Context, watchlistID int64, userID string) (domain.Bookmark, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Bookmark{}, err
	}
	row := t.q.QueryRow(
		ctx,
		`SELECT `+bookmarkColumns+` FROM watchlist_bookmarks WHERE watchlist_id = $1 AND user_id = $2`,
		watchlistID,
		strings.TrimSpace(userID),
	)
	bookmark, err := scanBookmark(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	tag, err := t.q.Exec(
		ctx,
		`DELETE FROM watchlist_bookmarks WHERE watchlist_id = $1 AND user_id = $2`,
		watchlistID,
		strings.TrimSpace(userID),
	)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if tag.RowsAffected() == 0 {
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
	rows, err := t.q.Query(
		ctx,
		`SELECT `+bookmarkColumns+` FROM watchlist_bookmarks
		  WHERE user_id = $1
		  ORDER BY created_at DESC, id DESC
		  LIMIT $2 OFFSET $3`,
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
