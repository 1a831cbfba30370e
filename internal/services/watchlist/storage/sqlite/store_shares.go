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

func scanShare(row rowScanner) (domain.Share, error) {
	var (
		share     domain.Share
		canEdit   int64
		createdAt int64
	)
	if err := row.Scan(&share.WatchlistID, &share.UserID, &canEdit, &createdAt); err != nil {
		return domain.Share{}, err
	}
	share.CanEdit = canEdit != 0
	share.CreatedAt = fromMillis(createdAt)
	return share, nil
}

// CreateShare inserts a grant for (watchlist, user).
func (t *txStore) CreateShare(ctx context.Context, share domain.Share) (domain.Share, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Share{}, err
	}
	share.UserID = strings.TrimSpace(share.UserID)
	if share.UserID == "" {
		return domain.Share{}, fmt.Errorf("user id is required")
	}
	if share.CreatedAt.IsZero() {
		share.CreatedAt = time.Now().UTC()
	}
	if _, err := t.q.ExecContext(
		ctx,
		`INSERT INTO watchlist_shares (watchlist_id, user_id, can_edit, created_at) VALUES (?, ?, ?, ?)`,
		share.WatchlistID,
		share.UserID,
		boolInt(share.CanEdit),
		toMillis(share.CreatedAt),
	); err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.Share{}, storage.ErrAlreadyExists
		case isForeignKeyViolation(err):
			return domain.Share{}, storage.ErrNotFound
		}
		return domain.Share{}, fmt.Errorf("create share: %w", err)
	}
	share.CreatedAt = fromMillis(toMillis(share.CreatedAt))
	return share, nil
}

// GetShare returns the grant for (watchlist, user).
func (t *txStore) GetShare(ctx context.Context, watchlistID int64, userID string) (domain.Share, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Share{}, err
	}
	row := t.q.QueryRowContext(
		ctx,
		`SELECT watchlist_id, user_id, can_edit, created_at
		   FROM watchlist_shares
		  WHERE watchlist_id = ? AND user_id = ?`,
		watchlistID,
		strings.TrimSpace(userID),
	)
	share, err := scanShare(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Share{}, storage.ErrNotFound
		}
		return domain.Share{}, fmt.Errorf("get share: %w", err)
	}
	return share, nil
}

// UpdateShare sets can_edit on an existing grant.
func (t *txStore) UpdateShare(ctx context.Context, watchlistID int64, userID string, canEdit bool) (domain.Share, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Share{}, err
	}
	res, err := t.q.ExecContext(
		ctx,
		`UPDATE watchlist_shares SET can_edit = ? WHERE watchlist_id = ? AND user_id = ?`,
		boolInt(canEdit),
		watchlistID,
		strings.TrimSpace(userID),
	)
	if err != nil {
		return domain.Share{}, fmt.Errorf("update share: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Share{}, fmt.Errorf("update share rows: %w", err)
	}
	if affected == 0 {
		return domain.Share{}, storage.ErrNotFound
	}
	return t.GetShare(ctx, watchlistID, userID)
}

// DeleteShare removes a grant.
func (t *txStore) DeleteShare(ctx context.Context, watchlistID int64, userID string) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	res, err := t.q.ExecContext(
		ctx,
		`DELETE FROM watchlist_shares WHERE watchlist_id = ? AND user_id = ?`,
		watchlistID,
		strings.TrimSpace(userID),
	)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete share rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListShares returns a watchlist's grants, oldest first.
func (t *txStore) ListShares(ctx context.Context, watchlistID int64) ([]domain.Share, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := t.q.QueryContext(
		ctx,
		`SELECT watchlist_id, user_id, can_edit, created_at
		   FROM watchlist_shares
		  WHERE watchlist_id = ?
		  ORDER BY created_at ASC, user_id ASC`,
		watchlistID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	shares := make([]domain.Share, 0)
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("list shares: %w", err)
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return shares, nil
}
