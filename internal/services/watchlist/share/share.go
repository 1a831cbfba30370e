// Package share manages per-user grants on watchlists.
package share

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

// Store is the subset of a transaction the share manager reads and writes.
type Store interface {
	GetWatchlist(ctx context.Context, id int64) (domain.Watchlist, error)
	storage.ShareStore
}

// Manager creates, updates and revokes shares. Only the watchlist owner may
// touch its shares.
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

// Share grants targetID access to the watchlist.
func (m *Manager) Share(ctx context.Context, store Store, callerID string, watchlistID int64, targetID string, canEdit bool) (domain.Share, error) {
	targetID, err := domain.NormalizeUserID(targetID)
	if err != nil {
		return domain.Share{}, err
	}
	if _, err := m.ownedWatchlist(ctx, store, callerID, watchlistID); err != nil {
		return domain.Share{}, err
	}
	if targetID == callerID {
		return domain.Share{}, apperrors.New(apperrors.CodeShareSelf, "cannot share a watchlist with its owner")
	}

	created, err := store.CreateShare(ctx, domain.Share{
		WatchlistID: watchlistID,
		UserID:      targetID,
		CanEdit:     canEdit,
		CreatedAt:   m.now().UTC(),
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return domain.Share{}, apperrors.WithMetadata(apperrors.CodeShareAlreadyExists,
			"watchlist is already shared with this user", shareMetadata(watchlistID, targetID))
	}
	if err != nil {
		return domain.Share{}, fmt.Errorf("create share: %w", err)
	}
	return created, nil
}

// UpdatePermission changes whether targetID may edit the watchlist.
func (m *Manager) UpdatePermission(ctx context.Context, store Store, callerID string, watchlistID int64, targetID string, canEdit bool) (domain.Share, error) {
	targetID, err := domain.NormalizeUserID(targetID)
	if err != nil {
		return domain.Share{}, err
	}
	if _, err := m.ownedWatchlist(ctx, store, callerID, watchlistID); err != nil {
		return domain.Share{}, err
	}
	updated, err := store.UpdateShare(ctx, watchlistID, targetID, canEdit)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Share{}, shareNotFound(watchlistID, targetID)
	}
	if err != nil {
		return domain.Share{}, fmt.Errorf("update share: %w", err)
	}
	return updated, nil
}

// Revoke removes targetID's grant. A missing grant is SHARE_NOT_FOUND.
func (m *Manager) Revoke(ctx context.Context, store Store, callerID string, watchlistID int64, targetID string) error {
	targetID, err := domain.NormalizeUserID(targetID)
	if err != nil {
		return err
	}
	if _, err := m.ownedWatchlist(ctx, store, callerID, watchlistID); err != nil {
		return err
	}
	err = store.DeleteShare(ctx, watchlistID, targetID)
	if errors.Is(err, storage.ErrNotFound) {
		return shareNotFound(watchlistID, targetID)
	}
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	return nil
}

// List returns every grant on the watchlist, oldest first.
func (m *Manager) List(ctx context.Context, store Store, callerID string, watchlistID int64) ([]domain.Share, error) {
	if _, err := m.ownedWatchlist(ctx, store, callerID, watchlistID); err != nil {
		return nil, err
	}
	shares, err := store.ListShares(ctx, watchlistID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return shares, nil
}

func (m *Manager) ownedWatchlist(ctx context.Context, store Store, callerID string, watchlistID int64) (domain.Watchlist, error) {
	w, err := store.GetWatchlist(ctx, watchlistID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Watchlist{}, permission.NotFound(watchlistID)
	}
	if err != nil {
		return domain.Watchlist{}, fmt.Errorf("get watchlist: %w", err)
	}
	if err := permission.RequireOwnership(ctx, store, callerID, w); err != nil {
		return domain.Watchlist{}, err
	}
	return w, nil
}

func shareNotFound(watchlistID int64, userID string) error {
	return apperrors.WithMetadata(apperrors.CodeShareNotFound, "share not found",
		shareMetadata(watchlistID, userID))
}

func shareMetadata(watchlistID int64, userID string) map[string]string {
	return map[string]string{
		"watchlist_id": strconv.FormatInt(watchlistID, 10),
		"user_id":      userID,
	}
}
