package service

import (
	"context"

	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/lineage"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage"
)

// Share grants targetID view access, or edit access when canEdit is set.
func (s *Service) Share(ctx context.Context, callerID string, watchlistID int64, targetID string, canEdit bool) (domain.Share, error) {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return domain.Share{}, err
	}
	var out domain.Share
	err = s.run(ctx, "share", callerID, watchlistID, func(ctx context.Context, tx storage.Tx) error {
		out, err = s.shares.Share(ctx, tx, callerID, watchlistID, targetID, canEdit)
		return err
	})
	return out, err
}

// UpdateShare changes an existing grant.
func (s *Service) UpdateShare(ctx context.Context, callerID string, watchlistID int64, targetID string, canEdit bool) (domain.Share, error) {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return domain.Share{}, err
	}
	var out domain.Share
	err = s.run(ctx, "update_share", callerID, watchlistID, func(ctx context.Context, tx storage.Tx) error {
		out, err = s.shares.UpdatePermission(ctx, tx, callerID, watchlistID, targetID, canEdit)
		return err
	})
	return out, err
}

// RevokeShare removes a grant.
func (s *Service) RevokeShare(ctx context.Context, callerID string, watchlistID int64, targetID string) error {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return err
	}
	return s.run(ctx, "revoke_share", callerID, watchlistID, func(ctx context.Context, tx storage.Tx) error {
		return s.shares.Revoke(ctx, tx, callerID, watchlistID, targetID)
	})
}

// ListShares lists the grants on a watchlist the caller owns.
func (s *Service) ListShares(ctx context.Context, callerID string, watchlistID int64) ([]domain.Share, error) {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return nil, err
	}
	var out []domain.Share
	err = s.run(ctx, "list_shares", callerID, watchlistID, func(ctx context.Context, tx storage.Tx) error {
		out, err = s.shares.List(ctx, tx, callerID, watchlistID)
		return err
	})
	return out, err
}

// Bookmark saves a public watchlist for the caller.
func (s *Service) Bookmark(ctx context.Context, callerID string, watchlistID int64) (domain.Bookmark, error) {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return domain.Bookmark{}, err
	}
	var out domain.Bookmark
	err = s.run(ctx, "bookmark", callerID, watchlistID, func(ctx context.Context, tx storage.Tx) error {
		out, err = s.bookmarks.Bookmark(ctx, tx, callerID, watchlistID)
		return err
	})
	return out, err
}

// Unbookmark removes the caller's bookmark.
func (s *Service) Unbookmark(ctx context.Context, callerID string, watchlistID int64) error {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return err
	}
	return s.run(ctx, "unbookmark", callerID, watchlistID, func(ctx context.Context, tx storage.Tx) error {
		return s.bookmarks.Unbookmark(ctx, tx, callerID, watchlistID)
	})
}

// ListBookmarks lists the caller's bookmarks, newest first.
func (s *Service) ListBookmarks(ctx context.Context, callerID string, page Page) ([]domain.BookmarkedWatchlist, error) {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return nil, err
	}
	page = page.normalize()
	var out []domain.BookmarkedWatchlist
	err = s.run(ctx, "list_bookmarks", callerID, 0, func(ctx context.Context, tx storage.Tx) error {
		out, err = s.bookmarks.List(ctx, tx, callerID, page.Limit, page.Offset)
		return err
	})
	return out, err
}

// Fork clones a public watchlist into the caller's account.
func (s *Service) Fork(ctx context.Context, callerID string, sourceID int64) (lineage.ForkResult, error) {
	return s.ForkCustom(ctx, callerID, sourceID, lineage.ForkOptions{})
}

// ForkCustom is Fork with overrides for the new watchlist.
func (s *Service) ForkCustom(ctx context.Context, callerID string, sourceID int64, opts lineage.ForkOptions) (lineage.ForkResult, error) {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return lineage.ForkResult{}, err
	}
	if opts.Visibility != nil {
		visibility, err := domain.ParseVisibility(string(*opts.Visibility))
		if err != nil {
			return lineage.ForkResult{}, err
		}
		opts.Visibility = &visibility
	}
	var out lineage.ForkResult
	err = s.run(ctx, "fork", callerID, sourceID, func(ctx context.Context, tx storage.Tx) error {
		out, err = s.lineage.ForkCustom(ctx, tx, callerID, sourceID, opts)
		return err
	})
	return out, err
}

// Pull replaces a fork's items with its source's current items.
func (s *Service) Pull(ctx context.Context, callerID string, forkID int64) (lineage.PullResult, error) {
	callerID, err := requireCaller(callerID)
	if err != nil {
		return lineage.PullResult{}, err
	}
	var out lineage.PullResult
	err = s.run(ctx, "pull", callerID, forkID, func(ctx context.Context, tx storage.Tx) error {
		out, err = s.lineage.Pull(ctx, tx, callerID, forkID)
		return err
	})
	return out, err
}

// ListForks lists direct forks of a watchlist, newest first.
func (s *Service) ListForks(ctx context.Context, callerID string, sourceID int64, page Page) ([]domain.Watchlist, error) {
	callerID, err := optionalCaller(callerID)
	if err != nil {
		return nil, err
	}
	page = page.normalize()
	var out []domain.Watchlist
	err = s.run(ctx, "list_forks", callerID, sourceID, func(ctx context.Context, tx storage.Tx) error {
		out, err = s.lineage.ListForks(ctx, tx, callerID, sourceID, page.Limit, page.Offset)
		return err
	})
	return out, err
}

// Lineage returns the ancestor chain of a watchlist, oldest first.
func (s *Service) Lineage(ctx context.Context, callerID string, id int64) (lineage.Lineage, error) {
	callerID, err := optionalCaller(callerID)
	if err != nil {
		return lineage.Lineage{}, err
	}
	var out lineage.Lineage
	err = s.run(ctx, "lineage", callerID, id, func(ctx context.Context, tx storage.Tx) error {
		out, err = s.lineage.Lineage(ctx, tx, callerID, id)
		return err
	})
	return out, err
}
