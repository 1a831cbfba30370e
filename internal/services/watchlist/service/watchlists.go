package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/equitalks/equitalks/internal/platform/errors"
	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/permission"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage/filter"
)

// CreateInput describes a new watchlist. Visibility is a label and defaults
// to private.
type CreateInput struct {
	Name        string
	Description string
	Visibility  string
	IsDefault   bool
}

// UpdateInput lists the fields to change. Nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
	Visibility  *string
	IsDefault   *bool
}

// OwnerListQuery narrows ListByOwner. Filter is an AIP-160 expression over
// visibility, is_default, fork_count, forked, created_at and updated_at.
type OwnerListQuery struct {
	Name   string
	Filter string
	Page   Page
}

// Create stores a new watchlist owned by the caller. Requesting the default
// flag moves it off the caller's other watchlists.
func (s *Service) Create(ctx context.Context, callerID string, input CreateInput) (domain.Watchlist, error) {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return domain.Watchlist{}, err
	}
	name, _, err := domain.NormalizeName(input.Name)
	if err != nil {
		return domain.Watchlist{}, err
	}
	description, err := domain.NormalizeDescription(input.Description)
	if err != nil {
		return domain.Watchlist{}, err
	}
	visibility, err := domain.ParseVisibility(input.Visibility)
	if err != nil {
		return domain.Watchlist{}, err
	}

	var created domain.Watchlist
	err = s.run(ctx, "create", callerID, 0, func(ctx context.Context, tx storage.Tx) error {
		now := s.now().UTC()
		w, err := tx.CreateWatchlist(ctx, domain.Watchlist{
			OwnerID:          callerID,
			Name:             name,
			Description:      description,
			Visibility:       visibility,
			IsDefault:        input.IsDefault,
			OriginalAuthorID: callerID,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nameTaken(name)
		}
		if err != nil {
			return fmt.Errorf("create watchlist: %w", err)
		}
		created = w
		return nil
	})
	return created, err
}

// Update changes the provided fields of a watchlist the caller owns.
func (s *Service) Update(ctx context.Context, callerID string, id int64, input UpdateInput) (domain.Watchlist, error) {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return domain.Watchlist{}, err
	}
	patch, err := normalizePatch(input)
	if err != nil {
		return domain.Watchlist{}, err
	}

	var updated domain.Watchlist
	err = s.run(ctx, "update", callerID, id, func(ctx context.Context, tx storage.Tx) error {
		current, err := ownedWatchlist(ctx, tx, callerID, id)
		if err != nil {
			return err
		}
		if patch.Empty() {
			updated = current
			return nil
		}
		w, err := tx.UpdateWatchlist(ctx, id, patch, s.now().UTC())
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nameTaken(*patch.Name)
		}
		if err != nil {
			return fmt.Errorf("update watchlist: %w", err)
		}
		updated = w
		return nil
	})
	return updated, err
}

func normalizePatch(input UpdateInput) (domain.WatchlistPatch, error) {
	var patch domain.WatchlistPatch
	if input.Name != nil {
		name, _, err := domain.NormalizeName(*input.Name)
		if err != nil {
			return patch, err
		}
		patch.Name = &name
	}
	if input.Description != nil {
		description, err := domain.NormalizeDescription(*input.Description)
		if err != nil {
			return patch, err
		}
		patch.Description = &description
	}
	if input.Visibility != nil {
		if strings.TrimSpace(*input.Visibility) == "" {
			return patch, apperrors.New(apperrors.CodeWatchlistInvalidVisibility, "visibility must not be blank")
		}
		visibility, err := domain.ParseVisibility(*input.Visibility)
		if err != nil {
			return patch, err
		}
		patch.Visibility = &visibility
	}
	patch.IsDefault = input.IsDefault
	return patch, nil
}

// Delete removes a watchlist the caller owns with its items, shares and
// bookmarks.
func (s *Service) Delete(ctx context.Context, callerID string, id int64) error {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return err
	}
	return s.run(ctx, "delete", callerID, id, func(ctx context.Context, tx storage.Tx) error {
		if _, err := ownedWatchlist(ctx, tx, callerID, id); err != nil {
			return err
		}
		if err := tx.DeleteWatchlist(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return permission.NotFound(id)
			}
			return fmt.Errorf("delete watchlist: %w", err)
		}
		return nil
	})
}

// Get returns a watchlist the caller can view, with its items.
func (s *Service) Get(ctx context.Context, callerID string, id int64) (domain.WatchlistWithItems, error) {
	callerID, err := optionalCaller(callerID)
	if err != nil {
		return domain.WatchlistWithItems{}, err
	}
	var out domain.WatchlistWithItems
	err = s.run(ctx, "get", callerID, id, func(ctx context.Context, tx storage.Tx) error {
		w, err := viewableWatchlist(ctx, tx, callerID, id)
		if err != nil {
			return err
		}
		out, err = withItems(ctx, tx, w)
		return err
	})
	return out, err
}

// GetDefault returns the caller's default watchlist with its items.
func (s *Service) GetDefault(ctx context.Context, callerID string) (domain.WatchlistWithItems, error) {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return domain.WatchlistWithItems{}, err
	}
	var out domain.WatchlistWithItems
	err = s.run(ctx, "get_default", callerID, 0, func(ctx context.Context, tx storage.Tx) error {
		w, err := tx.GetDefaultWatchlist(ctx, callerID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.New(apperrors.CodeWatchlistNotFound, "no default watchlist")
		}
		if err != nil {
			return fmt.Errorf("get default watchlist: %w", err)
		}
		out, err = withItems(ctx, tx, w)
		return err
	})
	return out, err
}

// GetPublicByOwnerAndName finds an owner's public watchlist by name, ignoring
// case and surrounding whitespace.
func (s *Service) GetPublicByOwnerAndName(ctx context.Context, ownerID, name string) (domain.WatchlistWithItems, error) {
	ownerID, err := domain.NormalizeUserID(ownerID)
	if err != nil {
		return domain.WatchlistWithItems{}, err
	}
	key := domain.NameKey(name)
	if key == "" {
		return domain.WatchlistWithItems{}, apperrors.New(apperrors.CodeWatchlistInvalidName, "watchlist name is required")
	}
	var out domain.WatchlistWithItems
	err = s.run(ctx, "get_public_by_name", "", 0, func(ctx context.Context, tx storage.Tx) error {
		w, err := tx.GetPublicWatchlistByOwnerAndName(ctx, ownerID, key)
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.WithMetadata(apperrors.CodeWatchlistNotFound, "watchlist not found",
				map[string]string{"owner_id": ownerID, "name": strings.TrimSpace(name)})
		}
		if err != nil {
			return fmt.Errorf("get public watchlist: %w", err)
		}
		out, err = withItems(ctx, tx, w)
		return err
	})
	return out, err
}

// ListByOwner lists the caller's own watchlists, default first and then oldest
// first.
func (s *Service) ListByOwner(ctx context.Context, callerID string, query OwnerListQuery) ([]domain.Watchlist, error) {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return nil, err
	}
	cond, err := filter.Parse(query.Filter)
	if err != nil {
		return nil, apperrors.WithMetadata(apperrors.CodeWatchlistInvalidFilter, err.Error(),
			map[string]string{"filter": query.Filter})
	}
	page := query.Page.normalize()

	var out []domain.Watchlist
	err = s.run(ctx, "list_by_owner", callerID, 0, func(ctx context.Context, tx storage.Tx) error {
		list, err := tx.ListWatchlistsByOwner(ctx, callerID, storage.OwnerQuery{
			NameKey:   domain.NameKey(query.Name),
			Condition: cond,
			Limit:     page.Limit,
			Offset:    page.Offset,
		})
		if err != nil {
			return fmt.Errorf("list owner watchlists: %w", err)
		}
		out = list
		return nil
	})
	return out, err
}

// SearchPublicByName returns public watchlists whose name contains query,
// newest first, each with its items.
func (s *Service) SearchPublicByName(ctx context.Context, query string, page Page) ([]domain.WatchlistWithItems, error) {
	key := domain.NameKey(query)
	if key == "" {
		return nil, apperrors.New(apperrors.CodeSearchQueryEmpty, "search query is required")
	}
	page = page.normalize()

	var out []domain.WatchlistWithItems
	err := s.run(ctx, "search", "", 0, func(ctx context.Context, tx storage.Tx) error {
		list, err := tx.ListPublicWatchlistsByName(ctx, key, page.Limit, page.Offset)
		if err != nil {
			return fmt.Errorf("search public watchlists: %w", err)
		}
		ids := make([]int64, 0, len(list))
		for _, w := range list {
			ids = append(ids, w.ID)
		}
		items, err := tx.ListItemsForWatchlists(ctx, ids)
		if err != nil {
			return fmt.Errorf("load search items: %w", err)
		}
		out = make([]domain.WatchlistWithItems, 0, len(list))
		for _, w := range list {
			entry := domain.WatchlistWithItems{Watchlist: w, Items: items[w.ID]}
			if entry.Items == nil {
				entry.Items = []domain.Item{}
			}
			out = append(out, entry)
		}
		return nil
	})
	return out, err
}

// Trending ranks public watchlists by fork count plus vote total.
func (s *Service) Trending(ctx context.Context, page Page) ([]domain.TrendingWatchlist, error) {
	page = page.normalize()
	var out []domain.TrendingWatchlist
	err := s.run(ctx, "trending", "", 0, func(ctx context.Context, tx storage.Tx) error {
		list, err := tx.ListTrending(ctx, page.Limit, page.Offset)
		if err != nil {
			return fmt.Errorf("list trending: %w", err)
		}
		out = list
		return nil
	})
	return out, err
}

func loadWatchlist(ctx context.Context, tx storage.Tx, id int64) (domain.Watchlist, error) {
	w, err := tx.GetWatchlist(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Watchlist{}, permission.NotFound(id)
	}
	if err != nil {
		return domain.Watchlist{}, fmt.Errorf("get watchlist: %w", err)
	}
	return w, nil
}

func viewableWatchlist(ctx context.Context, tx storage.Tx, callerID string, id int64) (domain.Watchlist, error) {
	w, err := loadWatchlist(ctx, tx, id)
	if err != nil {
		return domain.Watchlist{}, err
	}
	if err := permission.RequireView(ctx, tx, callerID, w); err != nil {
		return domain.Watchlist{}, err
	}
	return w, nil
}

func editableWatchlist(ctx context.Context, tx storage.Tx, callerID string, id int64) (domain.Watchlist, error) {
	w, err := loadWatchlist(ctx, tx, id)
	if err != nil {
		return domain.Watchlist{}, err
	}
	if err := permission.RequireEdit(ctx, tx, callerID, w); err != nil {
		return domain.Watchlist{}, err
	}
	return w, nil
}

func ownedWatchlist(ctx context.Context, tx storage.Tx, callerID string, id int64) (domain.Watchlist, error) {
	w, err := loadWatchlist(ctx, tx, id)
	if err != nil {
		return domain.Watchlist{}, err
	}
	if err := permission.RequireOwnership(ctx, tx, callerID, w); err != nil {
		return domain.Watchlist{}, err
	}
	return w, nil
}

func withItems(ctx context.Context, tx storage.Tx, w domain.Watchlist) (domain.WatchlistWithItems, error) {
	items, err := tx.ListItems(ctx, w.ID)
	if err != nil {
		return domain.WatchlistWithItems{}, fmt.Errorf("list items: %w", err)
	}
	return domain.WatchlistWithItems{Watchlist: w, Items: items}, nil
}
