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

const itemColumns = `id, watchlist_id, symbol, exchange, note, position,
	percentage::TEXT, quantity::TEXT, created_at, updated_at`

// itemOrder sorts by position with nulls last, then insertion.
const itemOrder = `position ASC NULLS LAST, created_at ASC, id ASC`

func scanItem(row rowScanner) (domain.Item, error) {
	var (
		item       domain.Item
		percentage *string
		quantity   *string
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(
		&item.ID,
		&item.WatchlistID,
		&item.Symbol,
		&item.Exchange,
		&item.Note,
		&item.Position,
		&percentage,
		&quantity,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Item{}, err
	}
	var err error
	if item.Percentage, err = parseNumeric(percentage); err != nil {
		return domain.Item{}, err
	}
	if item.Quantity, err = parseNumeric(quantity); err != nil {
		return domain.Item{}, err
	}
	item.CreatedAt = fromMillis(createdAt)
	item.UpdatedAt = fromMillis(updatedAt)
	return item, nil
}

func collectItems(rows pgx.Rows, op string) ([]domain.Item, error) {
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// ListItems returns a watchlist's items in display order.
func (t *txStore) ListItems(ctx context.Context, watchlistID int64) ([]domain.Item, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := t.q.Query(
		ctx,
		"SELECT "+itemColumns+" FROM watchlist_items WHERE watchlist_id = $1 ORDER BY "+itemOrder,
		watchlistID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return collectItems(rows, "list items")
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
	for _, id := range watchlistIDs {
		out[id] = []domain.Item{}
	}
	rows, err := t.q.Query(
		ctx,
		"SELECT "+itemColumns+" FROM watchlist_items WHERE watchlist_id = ANY($1) ORDER BY watchlist_id ASC, "+itemOrder,
		watchlistIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("batch list items: %w", err)
	}
	items, err := collectItems(rows, "batch list items")
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.WatchlistID] = append(out[item.WatchlistID], item)
	}
	return out, nil
}

// GetItem returns one item by id.
func (t *txStore) GetItem(ctx context.Context, itemID int64) (domain.Item, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Item{}, err
	}
	row := t.q.QueryRow(ctx, "SELECT "+itemColumns+" FROM watchlist_items WHERE id = $1", itemID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

	row := t.q.QueryRow(
		ctx,
		`INSERT INTO watchlist_items (
		   watchlist_id, symbol, exchange, note, position, percentage, quantity, created_at, updated_at
		 ) VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8, $9)
		 RETURNING `+itemColumns,
		item.WatchlistID,
		item.Symbol,
		item.Exchange,
		item.Note,
		item.Position,
		numericArg(item.Percentage),
		numericArg(item.Quantity),
		toMillis(item.CreatedAt),
		toMillis(item.UpdatedAt),
	)
	created, err := scanItem(row)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.Item{}, storage.ErrAlreadyExists
		case isForeignKeyViolation(err):
			return domain.Item{}, storage.ErrNotFound
		}
		return domain.Item{}, fmt.Errorf("create item: %w", err)
	}
	return created, nil
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

	row := t.q.QueryRow(
		ctx,
		`UPDATE watchlist_items
		    SET symbol = $1, exchange = $2, note = $3, position = $4,
		        percentage = $5::NUMERIC, quantity = $6::NUMERIC, updated_at = $7
		  WHERE id = $8
		 RETURNING `+itemColumns,
		next.Symbol,
		next.Exchange,
		next.Note,
		next.Position,
		numericArg(next.Percentage),
		numericArg(next.Quantity),
		toMillis(updatedAt),
		itemID,
	)
	updated, err := scanItem(row)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.Item{}, storage.ErrNotFound
		case isUniqueViolation(err):
			return domain.Item{}, storage.ErrAlreadyExists
		}
		return domain.Item{}, fmt.Errorf("update item: %w", err)
	}
	return updated, nil
}

// DeleteItem removes one item and returns it.
func (t *txStore) DeleteItem(ctx context.Context, itemID int64) (domain.Item, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Item{}, err
	}
	row := t.q.QueryRow(ctx, `DELETE FROM watchlist_items WHERE id = $1 RETURNING `+itemColumns, itemID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Item{}, storage.ErrNotFound
		}
		return domain.Item{}, fmt.Errorf("delete item: %w", err)
	}
	return item, nil
}

// DeleteItemsByWatchlist removes every item of a watchlist.
func (t *txStore) DeleteItemsByWatchlist(ctx context.Context, watchlistID int64) (int, error) {
	if err := t.ready(ctx); err != nil {
		return 0, err
	}
	tag, err := t.q.Exec(ctx, `DELETE FROM watchlist_items WHERE watchlist_id = $1`, watchlistID)
	if err != nil {
		return 0, fmt.Errorf("delete watchlist items: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
