package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	apperrors "github.com/equitalks/equitalks/internal/platform/errors"
	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage"
)

// AddItem adds one ticker to a watchlist the caller can edit.
func (s *Service) AddItem(ctx context.Context, callerID string, watchlistID int64, item domain.Item) (domain.Item, error) {
	items, err := s.AddItems(ctx, callerID, watchlistID, []domain.Item{item})
	if err != nil {
		return domain.Item{}, err
	}
	return items[0], nil
}

// AddItems adds a batch of tickers. Any duplicate, within the batch or
// against existing items, rejects the whole batch.
func (s *Service) AddItems(ctx context.Context, callerID string, watchlistID int64, items []domain.Item) ([]domain.Item, error) {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.New(apperrors.CodeItemBatchEmpty, "at least one item is required")
	}
	batch := make([]domain.Item, 0, len(items))
	for _, item := range items {
		normalized, err := domain.NormalizeItem(item)
		if err != nil {
			return nil, err
		}
		batch = append(batch, normalized)
	}

	var created []domain.Item
	err = s.run(ctx, "add_items", callerID, watchlistID, func(ctx context.Context, tx storage.Tx) error {
		if _, err := editableWatchlist(ctx, tx, callerID, watchlistID); err != nil {
			return err
		}
		existing, err := tx.ListItems(ctx, watchlistID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		if dups := domain.DuplicateKeys(existing, batch); len(dups) > 0 {
			return duplicateItems(dups)
		}

		now := s.now().UTC()
		for i := range batch {
			batch[i].CreatedAt = now
			batch[i].UpdatedAt = now
		}
		out, err := tx.CreateItems(ctx, watchlistID, batch)
		if errors.Is(err, storage.ErrAlreadyExists) {
			// A concurrent insert won the race past the check above.
			return apperrors.New(apperrors.CodeItemDuplicate, "item already exists in this watchlist")
		}
		if err != nil {
			return fmt.Errorf("create items: %w", err)
		}
		created = out
		return nil
	})
	return created, err
}

// UpdateItem patches one item of a watchlist the caller can edit.
func (s *Service) UpdateItem(ctx context.Context, callerID string, watchlistID, itemID int64, patch domain.ItemPatch) (domain.Item, error) {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return domain.Item{}, err
	}
	patch, err = domain.NormalizeItemPatch(patch)
	if err != nil {
		return domain.Item{}, err
	}

	var updated domain.Item
	err = s.run(ctx, "update_item", callerID, watchlistID, func(ctx context.Context, tx storage.Tx) error {
		if _, err := editableWatchlist(ctx, tx, callerID, watchlistID); err != nil {
			return err
		}
		current, err := itemOf(ctx, tx, watchlistID, itemID)
		if err != nil {
			return err
		}
		next := patch.Apply(current)
		if next.Key() != current.Key() {
			siblings, err := tx.ListItems(ctx, watchlistID)
			if err != nil {
				return fmt.Errorf("list items: %w", err)
			}
			for _, sibling := range siblings {
				if sibling.ID != itemID && sibling.Key() == next.Key() {
					return duplicateItems([]domain.ItemKey{next.Key()})
				}
			}
		}
		item, err := tx.UpdateItem(ctx, itemID, patch, s.now().UTC())
		if errors.Is(err, storage.ErrAlreadyExists) {
			return duplicateItems([]domain.ItemKey{next.Key()})
		}
		if err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		updated = item
		return nil
	})
	return updated, err
}

// RemoveItem deletes one item and returns it.
func (s *Service) RemoveItem(ctx context.Context, callerID string, watchlistID, itemID int64) (domain.Item, error) {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return domain.Item{}, err
	}
	var removed domain.Item
	err = s.run(ctx, "remove_item", callerID, watchlistID, func(ctx context.Context, tx storage.Tx) error {
		if _, err := editableWatchlist(ctx, tx, callerID, watchlistID); err != nil {
			return err
		}
		if _, err := itemOf(ctx, tx, watchlistID, itemID); err != nil {
			return err
		}
		item, err := tx.DeleteItem(ctx, itemID)
		if errors.Is(err, storage.ErrNotFound) {
			return itemNotFound(itemID)
		}
		if err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		removed = item
		return nil
	})
	return removed, err
}

// ListItems returns the items of a watchlist the caller can view.
func (s *Service) ListItems(ctx context.Context, callerID string, watchlistID int64) ([]domain.Item, error) {
	callerID, err := optionalCaller(callerID)
	if err != nil {
		return nil, err
	}
	var items []domain.Item
	err = s.run(ctx, "list_items", callerID, watchlistID, func(ctx context.Context, tx storage.Tx) error {
		w, err := viewableWatchlist(ctx, tx, callerID, watchlistID)
		if err != nil {
			return err
		}
		loaded, err := withItems(ctx, tx, w)
		items = loaded.Items
		return err
	})
	return items, err
}

// itemOf loads an item and checks it belongs to watchlistID.
func itemOf(ctx context.Context, tx storage.Tx, watchlistID, itemID int64) (domain.Item, error) {
	item, err := tx.GetItem(ctx, itemID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Item{}, itemNotFound(itemID)
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}
	if item.WatchlistID != watchlistID {
		return domain.Item{}, itemNotFound(itemID)
	}
	return item, nil
}

func duplicateItems(keys []domain.ItemKey) error {
	return apperrors.WithMetadata(apperrors.CodeItemDuplicate,
		"items already exist in this watchlist: "+domain.JoinItemKeys(keys),
		map[string]string{
			"duplicates": domain.JoinItemKeys(keys),
			"count":      strconv.Itoa(len(keys)),
		})
}
