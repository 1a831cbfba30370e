// Package permission decides whether a caller may view or edit a watchlist.
//
// Every check reads the share table through the caller's transaction, so a
// grant changed by a concurrent request is seen on the next call. Nothing is
// cached between checks.
package permission

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	apperrors "github.com/equitalks/equitalks/internal/platform/errors"
	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage"
)

// ShareReader loads the grant a user holds on a watchlist.
type ShareReader interface {
	GetShare(ctx context.Context, watchlistID int64, userID string) (domain.Share, error)
}

// Access is the level a caller holds on one watchlist.
type Access int

const (
	AccessNone Access = iota
	AccessView
	AccessEdit
	AccessOwner
)

func (a Access) String() string {
	switch a {
	case AccessView:
		return "view"
	case AccessEdit:
		return "edit"
	case AccessOwner:
		return "owner"
	default:
		return "none"
	}
}

// Evaluate returns the access callerID holds on w.
func Evaluate(ctx context.Context, shares ShareReader, callerID string, w domain.Watchlist) (Access, error) {
	if callerID != "" && callerID == w.OwnerID {
		return AccessOwner, nil
	}
	access := AccessNone
	if w.IsPublic() {
		access = AccessView
	}
	if callerID == "" || shares == nil {
		return access, nil
	}
	share, err := shares.GetShare(ctx, w.ID, callerID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return access, nil
	case err != nil:
		return AccessNone, fmt.Errorf("load share: %w", err)
	}
	if share.CanEdit {
		return AccessEdit, nil
	}
	return AccessView, nil
}

// CanView reports whether callerID owns w, w is public, or callerID holds any
// share on w.
func CanView(ctx context.Context, shares ShareReader, callerID string, w domain.Watchlist) (bool, error) {
	access, err := Evaluate(ctx, shares, callerID, w)
	if err != nil {
		return false, err
	}
	return access >= AccessView, nil
}

// CanEdit reports whether callerID owns w or holds an editable share on it.
func CanEdit(ctx context.Context, shares ShareReader, callerID string, w domain.Watchlist) (bool, error) {
	access, err := Evaluate(ctx, shares, callerID, w)
	if err != nil {
		return false, err
	}
	return access >= AccessEdit, nil
}

// RequireView fails with WATCHLIST_NOT_FOUND when callerID cannot view w, so
// private watchlists are indistinguishable from missing ones.
func RequireView(ctx context.Context, shares ShareReader, callerID string, w domain.Watchlist) error {
	ok, err := CanView(ctx, shares, callerID, w)
	if err != nil {
		return err
	}
	if !ok {
		return NotFound(w.ID)
	}
	return nil
}

// RequireEdit fails with WATCHLIST_NOT_FOUND when callerID cannot see w and
// with WATCHLIST_NOT_EDITABLE when they can see but not edit it.
func RequireEdit(ctx context.Context, shares ShareReader, callerID string, w domain.Watchlist) error {
	access, err := Evaluate(ctx, shares, callerID, w)
	if err != nil {
		return err
	}
	switch {
	case access >= AccessEdit:
		return nil
	case access == AccessNone:
		return NotFound(w.ID)
	default:
		return apperrors.WithMetadata(apperrors.CodeWatchlistNotEditable,
			"you do not have permission to edit this watchlist",
			map[string]string{"watchlist_id": strconv.FormatInt(w.ID, 10)})
	}
}

// RequireOwner fails with WATCHLIST_NOT_OWNER unless callerID owns w.
func RequireOwner(callerID string, w domain.Watchlist) error {
	if callerID == "" || callerID != w.OwnerID {
		return apperrors.WithMetadata(apperrors.CodeWatchlistNotOwner,
			"only the owner can modify this watchlist",
			map[string]string{"watchlist_id": strconv.FormatInt(w.ID, 10)})
	}
	return nil
}

// RequireOwnership fails with WATCHLIST_NOT_FOUND when callerID cannot see w
// and with WATCHLIST_NOT_OWNER when they can see but do not own it.
func RequireOwnership(ctx context.Context, shares ShareReader, callerID string, w domain.Watchlist) error {
	access, err := Evaluate(ctx, shares, callerID, w)
	if err != nil {
		return err
	}
	switch access {
	case AccessOwner:
		return nil
	case AccessNone:
		return NotFound(w.ID)
	default:
		return RequireOwner(callerID, w)
	}
}

// NotFound is the error reported for a missing or hidden watchlist.
func NotFound(id int64) error {
	return apperrors.WithMetadata(apperrors.CodeWatchlistNotFound, "watchlist not found",
		map[string]string{"watchlist_id": strconv.FormatInt(id, 10)})
}
