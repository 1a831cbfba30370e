// Package lineage forks public watchlists, re-syncs forks with their source,
// and walks fork ancestry.
package lineage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	apperrors "github.com/equitalks/equitalks/internal/platform/errors"
	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/permission"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage"
)

// MaxDepth bounds an ancestry walk. Chains are acyclic by construction, so
// hitting the bound means the stored links are corrupt.
const MaxDepth = 1024

// Store is the subset of a transaction the lineage manager uses.
type Store interface {
	storage.WatchlistStore
	storage.ItemStore
	GetShare(ctx context.Context, watchlistID int64, userID string) (domain.Share, error)
}

// ForkOptions overrides fields of the new fork. Nil fields keep the derived
// value: the source name plus " (forked)", the source description, private.
type ForkOptions struct {
	Name        *string
	Description *string
	Visibility  *domain.Visibility
}

// ForkResult is a created fork with its copied items.
type ForkResult struct {
	Watchlist domain.Watchlist `json:"watchlist"`
	Source    domain.Watchlist `json:"source"`
	Items     []domain.Item    `json:"items"`
}

// PullResult summarizes a re-sync.
type PullResult struct {
	Watchlist    domain.Watchlist `json:"watchlist"`
	Source       domain.Watchlist `json:"source"`
	Items        []domain.Item    `json:"items"`
	RemovedItems int              `json:"removed_items"`
}

// Ancestor is one link of a lineage chain. Ancestors the caller can no longer
// view keep only their lineage fields.
type Ancestor struct {
	Watchlist domain.Watchlist `json:"watchlist"`
	Hidden    bool             `json:"hidden,omitempty"`
}

// Lineage is the ancestor chain of a watchlist, oldest first, ending with the
// watchlist itself. When an ancestor was deleted the chain starts after it
// and MissingAncestorID names it.
type Lineage struct {
	Chain             []Ancestor `json:"chain"`
	MissingAncestorID int64      `json:"missing_ancestor_id,omitempty"`
}

// Origin returns the first reachable link of the chain.
func (l Lineage) Origin() Ancestor {
	if len(l.Chain) == 0 {
		return Ancestor{}
	}
	return l.Chain[0]
}

// Manager runs fork, pull and lineage operations.
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

// Fork clones the public source into a new private watchlist owned by
// callerID.
func (m *Manager) Fork(ctx context.Context, store Store, callerID string, sourceID int64) (ForkResult, error) {
	return m.ForkCustom(ctx, store, callerID, sourceID, ForkOptions{})
}

// ForkCustom is Fork with caller-supplied name, description or visibility.
// Every precondition is checked before the first write.
func (m *Manager) ForkCustom(ctx context.Context, store Store, callerID string, sourceID int64, opts ForkOptions) (ForkResult, error) {
	source, err := loadWatchlist(ctx, store, sourceID)
	if err != nil {
		return ForkResult{}, err
	}
	if source.OwnerID == callerID {
		return ForkResult{}, apperrors.WithMetadata(apperrors.CodeForkOwnWatchlist,
			"cannot fork your own watchlist", idMetadata(sourceID))
	}
	if err := requirePublicSource(ctx, store, callerID, source); err != nil {
		return ForkResult{}, err
	}

	fork, err := m.forkRecord(callerID, source, opts)
	if err != nil {
		return ForkResult{}, err
	}
	items, err := store.ListItems(ctx, source.ID)
	if err != nil {
		return ForkResult{}, fmt.Errorf("list source items: %w", err)
	}

	created, err := store.CreateWatchlist(ctx, fork)
	if errors.Is(err, storage.ErrAlreadyExists) {
		return ForkResult{}, apperrors.WithMetadata(apperrors.CodeWatchlistNameTaken,
			"you already have a watchlist with this name", map[string]string{"name": fork.Name})
	}
	if err != nil {
		return ForkResult{}, fmt.Errorf("create fork: %w", err)
	}
	copied, err := copyItems(ctx, store, created.ID, items, fork.CreatedAt)
	if err != nil {
		return ForkResult{}, err
	}
	if err := store.IncrementForkCount(ctx, source.ID); err != nil {
		return ForkResult{}, fmt.Errorf("increment fork count: %w", err)
	}
	source.ForkCount++

	return ForkResult{Watchlist: created, Source: source, Items: copied}, nil
}

func (m *Manager) forkRecord(callerID string, source domain.Watchlist, opts ForkOptions) (domain.Watchlist, error) {
	var (
		name string
		err  error
	)
	if opts.Name != nil {
		if name, _, err = domain.NormalizeName(*opts.Name); err != nil {
			return domain.Watchlist{}, err
		}
	} else {
		name = domain.ForkName(source.Name)
		if length := utf8.RuneCountInString(name); length > domain.MaxNameLength {
			return domain.Watchlist{}, apperrors.WithMetadata(apperrors.CodeForkNameTooLong,
				"forked name exceeds 100 characters; choose a custom name",
				map[string]string{"length": strconv.Itoa(length)})
		}
	}

	description := source.Description
	if opts.Description != nil {
		if description, err = domain.NormalizeDescription(*opts.Description); err != nil {
			return domain.Watchlist{}, err
		}
	}

	visibility := domain.VisibilityPrivate
	if opts.Visibility != nil {
		if !opts.Visibility.Valid() {
			return domain.Watchlist{}, apperrors.WithMetadata(apperrors.CodeWatchlistInvalidVisibility,
				"visibility must be one of private, public, shared",
				map[string]string{"visibility": string(*opts.Visibility)})
		}
		visibility = *opts.Visibility
	}

	// The root author survives every generation of forks.
	originalAuthor := source.OriginalAuthorID
	if originalAuthor == "" {
		originalAuthor = source.OwnerID
	}

	now := m.now().UTC()
	return domain.Watchlist{
		OwnerID:          callerID,
		Name:             name,
		Description:      description,
		Visibility:       visibility,
		IsDefault:        false,
		ForkedFromID:     source.ID,
		ForkedAt:         now,
		OriginalAuthorID: originalAuthor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Pull replaces the fork's items with its source's current items.
func (m *Manager) Pull(ctx context.Context, store Store, callerID string, forkID int64) (PullResult, error) {
	fork, err := loadWatchlist(ctx, store, forkID)
	if err != nil {
		return PullResult{}, err
	}
	if err := permission.RequireOwnership(ctx, store, callerID, fork); err != nil {
		return PullResult{}, err
	}
	if !fork.IsFork() {
		return PullResult{}, apperrors.WithMetadata(apperrors.CodePullNotForked,
			"watchlist is not a fork", idMetadata(forkID))
	}
	source, err := store.GetWatchlist(ctx, fork.ForkedFromID)
	if errors.Is(err, storage.ErrNotFound) {
		return PullResult{}, apperrors.WithMetadata(apperrors.CodePullSourceMissing,
			"source watchlist no longer exists", idMetadata(fork.ForkedFromID))
	}
	if err != nil {
		return PullResult{}, fmt.Errorf("get source watchlist: %w", err)
	}
	if !source.IsPublic() {
		return PullResult{}, apperrors.WithMetadata(apperrors.CodeForkSourcePrivate,
			"source watchlist is no longer public", idMetadata(source.ID))
	}

	items, err := store.ListItems(ctx, source.ID)
	if err != nil {
		return PullResult{}, fmt.Errorf("list source items: %w", err)
	}
	removed, err := store.DeleteItemsByWatchlist(ctx, fork.ID)
	if err != nil {
		return PullResult{}, fmt.Errorf("clear fork items: %w", err)
	}
	copied, err := copyItems(ctx, store, fork.ID, items, m.now().UTC())
	if err != nil {
		return PullResult{}, err
	}
	return PullResult{Watchlist: fork, Source: source, Items: copied, RemovedItems: removed}, nil
}

// ListForks returns the direct forks of a watchlist the caller can view,
// newest first. Visibility is applied by the store so pages stay full.
func (m *Manager) ListForks(ctx context.Context, store Store, callerID string, sourceID int64, limit, offset int) ([]domain.Watchlist, error) {
	source, err := loadWatchlist(ctx, store, sourceID)
	if err != nil {
		return nil, err
	}
	if err := permission.RequireView(ctx, store, callerID, source); err != nil {
		return nil, err
	}
	forks, err := store.ListForks(ctx, sourceID, callerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list forks: %w", err)
	}
	return forks, nil
}

// Lineage walks forked_from_id links from id back to its origin.
func (m *Manager) Lineage(ctx context.Context, store Store, callerID string, id int64) (Lineage, error) {
	target, err := loadWatchlist(ctx, store, id)
	if err != nil {
		return Lineage{}, err
	}
	if err := permission.RequireView(ctx, store, callerID, target); err != nil {
		return Lineage{}, err
	}

	// Collected newest first, reversed at the end.
	chain := []Ancestor{{Watchlist: target}}
	visited := map[int64]bool{target.ID: true}
	var missing int64
	for current := target; current.IsFork(); {
		parentID := current.ForkedFromID
		if visited[parentID] || len(chain) >= MaxDepth {
			return Lineage{}, apperrors.WithMetadata(apperrors.CodeLineageCycle,
				"watchlist lineage is corrupt", map[string]string{
					"watchlist_id": strconv.FormatInt(id, 10),
					"repeated_id":  strconv.FormatInt(parentID, 10),
				})
		}
		visited[parentID] = true

		parent, err := store.GetWatchlist(ctx, parentID)
		if errors.Is(err, storage.ErrNotFound) {
			missing = parentID
			break
		}
		if err != nil {
			return Lineage{}, fmt.Errorf("get ancestor watchlist: %w", err)
		}
		ancestor, err := ancestorFor(ctx, store, callerID, parent)
		if err != nil {
			return Lineage{}, err
		}
		chain = append(chain, ancestor)
		current = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return Lineage{Chain: chain, MissingAncestorID: missing}, nil
}

func ancestorFor(ctx context.Context, store Store, callerID string, w domain.Watchlist) (Ancestor, error) {
	visible, err := permission.CanView(ctx, store, callerID, w)
	if err != nil {
		return Ancestor{}, err
	}
	if visible {
		return Ancestor{Watchlist: w}, nil
	}
	return Ancestor{
		Watchlist: domain.Watchlist{
			ID:               w.ID,
			OwnerID:          w.OwnerID,
			Visibility:       w.Visibility,
			ForkedFromID:     w.ForkedFromID,
			ForkedAt:         w.ForkedAt,
			OriginalAuthorID: w.OriginalAuthorID,
		},
		Hidden: true,
	}, nil
}

func copyItems(ctx context.Context, store Store, watchlistID int64, items []domain.Item, now time.Time) ([]domain.Item, error) {
	if len(items) == 0 {
		return []domain.Item{}, nil
	}
	copies := make([]domain.Item, 0, len(items))
	for _, item := range items {
		copied := item.CopyTo(watchlistID)
		copied.CreatedAt = now
		copied.UpdatedAt = now
		copies = append(copies, copied)
	}
	created, err := store.CreateItems(ctx, watchlistID, copies)
	if err != nil {
		return nil, fmt.Errorf("copy items: %w", err)
	}
	return created, nil
}

func requirePublicSource(ctx context.Context, store Store, callerID string, source domain.Watchlist) error {
	if source.IsPublic() {
		return nil
	}
	if err := permission.RequireView(ctx, store, callerID, source); err != nil {
		return err
	}
	return apperrors.WithMetadata(apperrors.CodeForkSourcePrivate,
		"only public watchlists can be forked", idMetadata(source.ID))
}

func loadWatchlist(ctx context.Context, store Store, id int64) (domain.Watchlist, error) {
	w, err := store.GetWatchlist(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Watchlist{}, permission.NotFound(id)
	}
	if err != nil {
		return domain.Watchlist{}, fmt.Errorf("get watchlist: %w", err)
	}
	return w, nil
}

func idMetadata(id int64) map[string]string {
	return map[string]string{"watchlist_id": strconv.FormatInt(id, 10)}
}
