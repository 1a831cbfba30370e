// Package domain defines watchlist entities and the normalization rules
// applied before they reach storage.
package domain

import (
	"strings"
	"time"

	apperrors "github.com/equitalks/equitalks/internal/platform/errors"
)

// Visibility controls who may view a watchlist.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
	VisibilityShared  Visibility = "shared"
)

// ParseVisibility accepts a visibility label in any case. Empty input yields
// private.
func ParseVisibility(value string) (Visibility, error) {
	switch Visibility(strings.ToLower(strings.TrimSpace(value))) {
	case "", VisibilityPrivate:
		return VisibilityPrivate, nil
	case VisibilityPublic:
		return VisibilityPublic, nil
	case VisibilityShared:
		return VisibilityShared, nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeWatchlistInvalidVisibility,
			"visibility must be one of private, public, shared",
			map[string]string{"visibility": value})
	}
}

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityPublic, VisibilityShared:
		return true
	}
	return false
}

// Watchlist is a named, owned collection of ticker items.
type Watchlist struct {
	ID          int64      `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Name        string     `json:"name"`
	NameKey     string     `json:"-"`
	Description string     `json:"description,omitempty"`
	Visibility  Visibility `json:"visibility"`
	IsDefault   bool       `json:"is_default"`

	// Lineage. ForkedFromID is zero for origins. OriginalAuthorID names the
	// owner of the root of the fork chain.
	ForkedFromID     int64     `json:"forked_from_id,omitempty"`
	ForkedAt         time.Time `json:"forked_at,omitzero"`
	OriginalAuthorID string    `json:"original_author_id,omitempty"`
	ForkCount        int64     `json:"fork_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFork reports whether the watchlist was created by forking another.
func (w Watchlist) IsFork() bool {
	return w.ForkedFromID != 0
}

// IsPublic reports whether the watchlist is visible to everyone.
func (w Watchlist) IsPublic() bool {
	return w.Visibility == VisibilityPublic
}

// WatchlistPatch lists the mutable watchlist fields. Nil fields are left
// unchanged.
type WatchlistPatch struct {
	Name        *string
	Description *string
	Visibility  *Visibility
	IsDefault   *bool
}

// Empty reports whether the patch changes nothing.
func (p WatchlistPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Visibility == nil && p.IsDefault == nil
}

// WatchlistWithItems pairs a watchlist with its ordered items.
type WatchlistWithItems struct {
	Watchlist Watchlist `json:"watchlist"`
	Items     []Item    `json:"items"`
}

// TrendingWatchlist is a public watchlist with its popularity score.
type TrendingWatchlist struct {
	Watchlist Watchlist `json:"watchlist"`
	VoteTotal int64     `json:"vote_total"`
	Score     int64     `json:"score"`
}
