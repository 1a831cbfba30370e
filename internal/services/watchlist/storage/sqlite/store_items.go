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

const itemColumns = `id, watchlist_id, symbol, exchange, note, position, percentage, quantity, created_at, updated_at`

// itemOrder sorts by position with nulls last, then insertion.
const itemOrder = `position IS NULL, position ASC, created_at ASC, id ASC`

func scanItem(row rowScanner) (domain.Item, error) {
	var (
		item      domain.Item
		position  sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&item.ID,
		&item.WatchlistID,
		&item.Symbol,
		&item.Exchange,
		&item.Note,
		&position,
		&item.Percentage,
		&item.Quantity,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Item{}, err
	}
	if position.Valid {
		value := position.Int64
		item.Position = &value
	}
	item.CreatedAt = fromMillis(createdAt)
	item.UpdatedAt = fromMillis(updatedAt)
	return item, nil
}

func nullPosition(position *int64) sql.NullInt64 {
	if position == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *position, Valid: true}
}

// ListItems returns a watchlist's items in display order.
func (t *txStore) ListItems(ctx context.Context, watchlistID int64) ([]domain.Item, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := t.q.QueryContext(
		ctx,
		"SELECT "+itemColumns+" FROM watchlist_items WHERE watchlist_id = ? ORDER BY "+itemOrder,
		watchlistID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// ListItemsForWatchlists loads the items of several watchlists in one query.
func (t *txStore) ListItemsForWatchlists(ctx context.Context, watchlistIDs []int64) (map[int64][]domain.Item, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	out := make(map[int64][]domain.Item, len(watchlistIDs))
	if len(watchlistIDs) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(watchlistIDs))
	args := make([]any, len(watchlistIDs))
	for i, id := range watchlistIDs {
		placeholders[i] = "?"
		args[i] = id
		out[id] = []domain.Item{}
	}
	rows, err := t.q.QueryContext(
		ctx,
		"SELECT "+itemColumns+" FROM watchlist_items WHERE watchlist_id IN ("+strings.Join(placeholders, ", ")+
			") ORDER BY watchlist_id ASC, "+itemOrder,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("batch list items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("batch list items: %w", err)
		}
		out[item.WatchlistID] = append(out[item.WatchlistID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("batch list items: %w", err)
	}
	return out, nil
}

// GetItem returns one item by id.
func (t *txStore) GetItem(ctx context.Context, itemID int64) (domain.Item, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Item{}, err
	}
	row := t.q.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM watchlist_items WHERE id = ?", itemID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, storage.ErrNotFound
		}
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (t *txStore) insertItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	item.Symbol = strings.TrimSpace(item.Symbol)
	item.Exchange = strings.TrimSpace(item.Exchange)
	if item.WatchlistID == 0 {
		return domain.Item{}, fmt.Errorf("watchlist id is required")
	}
	if item.Symbol == "" || item.Exchange == "" {
		return domain.Item{}, fmt.Errorf("symbol and exchange are required")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}

	res, err := t.q.ExecContext(
		ctx,
		`INSERT INTO watchlist_items (
		   watchlist_id, symbol, exchange, note, position, percentage, quantity, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.WatchlistID,
		item.Symbol,
		item.Exchange,
		item.Note,
		nullPosition(item.Position),
		item.Percentage,
		item.Quantity,
		toMillis(item.CreatedAt),
		toMillis(item.UpdatedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.Item{}, storage.ErrAlreadyExists
		case isForeignKeyViolation(err):
			return domain.Item{}, storage.ErrNotFound
		}
		return domain.Item{}, fmt.Errorf("create item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Item{}, fmt.Errorf("create item id: %w", err)
	}
	item.ID = id
	item.CreatedAt = fromMillis(toMillis(item.CreatedAt))
	item.UpdatedAt = fromMillis(toMillis(item.UpdatedAt))
	return item, nil
}

// CreateItem inserts one item.
func (t *txStore) CreateItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Item{}, err
	}
	return t.insertItem(ctx, item)
}

// CreateItems inserts items into watchlistID and returns them in input order.
func (t *txStore) CreateItems(ctx context.Context, watchlistID int64, items []domain.Item) ([]domain.Item, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	created := make([]domain.Item, 0, len(items))
	for _, item := range items {
		item.WatchlistID = watchlistID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		out, err := t.insertItem(ctx, item)
		if err != nil {
			return nil, err
		}
		created = append(created, out)
	}
	return created, nil
}

// UpdateItem applies patch to an item.
func (t *txStore) UpdateItem(ctx context.Context, itemID int64, patch domain.ItemPatch, updatedAt time.Time) (domain.Item, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Item{}, err
	}
	current, err := t.GetItem(ctx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	next := patch.Apply(current)
	next.UpdatedAt = updatedAt

	if _, err := t.q.ExecContext(
		ctx,
		`UPDATE watchlist_items
		    SET symbol = ?, exchange = ?, note = ?, position = ?, percentage = ?, quantity = ?, updated_at = ?
		  WHERE id = ?`,
		next.Symbol,
		next.Exchange,
		next.Note,
		nullPosition(next.Position),
		next.Percentage,
		next.Quantity,
		toMillis(next.UpdatedAt),
		itemID,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.Item{}, storage.ErrAlreadyExists
		}
		return domain.Item{}, fmt.Errorf("update item: %w", err)
	}
	return t.GetItem(ctx, itemID)
}

// DeleteItem removes one item and returns it.
func (t *txStore) DeleteItem(ctx context.Context, itemID int64) (domain.Item, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Item{}, err
	}
	item, err := t.GetItem(ctx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	if _, err := t.q.ExecContext(ctx, `DELETE FROM watchlist_items WHERE id = ?`, itemID); err != nil {
		return domain.Item{}, fmt.Errorf("delete item: %w", err)
	}
	return item, nil
}

// DeleteItemsByWatchlist removes every item of a watchlist.
func (t *txStore) DeleteItemsByWatchlist(ctx context.Context, watchlistID int64) (int, error) {
	if err := t.ready(ctx); err != nil {
		return 0, err
	}
	res, err := t.q.ExecContext(ctx, `DELETE FROM watchlist_items WHERE watchlist_id = ?`, watchlistID)
	if err != nil {
		return 0, fmt.Errorf("delete watchlist items: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete watchlist items rows: %w", err)
	}
	return int(affected), nil
}
