package watchlist

import (
	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/lineage"
	"github.com/shopspring/decimal"
)

// Messages travel as JSON through the json codec. Field names are the wire
// contract.

type CreateWatchlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Visibility  string `json:"visibility,omitempty"`
	IsDefault   bool   `json:"is_default,omitempty"`
}

type UpdateWatchlistRequest struct {
	WatchlistID int64   `json:"watchlist_id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Visibility  *string `json:"visibility,omitempty"`
	IsDefault   *bool   `json:"is_default,omitempty"`
}

type WatchlistResponse struct {
	Watchlist domain.Watchlist `json:"watchlist"`
}

type WatchlistIDRequest struct {
	WatchlistID int64 `json:"watchlist_id"`
}

type Empty struct{}

type WatchlistWithItemsResponse struct {
	Watchlist domain.Watchlist `json:"watchlist"`
	Items     []domain.Item    `json:"items"`
}

type GetDefaultWatchlistRequest struct{}

type GetPublicWatchlistRequest struct {
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
}

type ListWatchlistsRequest struct {
	Name      string `json:"name,omitempty"`
	Filter    string `json:"filter,omitempty"`
	PageSize  int32  `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

type ListWatchlistsResponse struct {
	Watchlists    []domain.Watchlist `json:"watchlists"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

type SearchWatchlistsRequest struct {
	Query     string `json:"query"`
	PageSize  int32  `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

type SearchWatchlistsResponse struct {
	Results       []domain.WatchlistWithItems `json:"results"`
	NextPageToken string                      `json:"next_page_token,omitempty"`
}

type ListTrendingRequest struct {
	PageSize  int32  `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

type ListTrendingResponse struct {
	Watchlists    []domain.TrendingWatchlist `json:"watchlists"`
	NextPageToken string                     `json:"next_page_token,omitempty"`
}

// ItemInput is a ticker to add. Percentage and quantity accept JSON numbers
// or decimal strings.
type ItemInput struct {
	Symbol     string              `json:"symbol"`
	Exchange   string              `json:"exchange"`
	Note       string              `json:"note,omitempty"`
	Position   *int64              `json:"position,omitempty"`
	Percentage decimal.NullDecimal `json:"percentage"`
	Quantity   decimal.NullDecimal `json:"quantity"`
}

func (in ItemInput) item() domain.Item {
	return domain.Item{
		Symbol:     in.Symbol,
		Exchange:   in.Exchange,
		Note:       in.Note,
		Position:   in.Position,
		Percentage: in.Percentage,
		Quantity:   in.Quantity,
	}
}

type AddItemsRequest struct {
	WatchlistID int64       `json:"watchlist_id"`
	Items       []ItemInput `json:"items"`
}

type ItemsResponse struct {
	Items []domain.Item `json:"items"`
}

type UpdateItemRequest struct {
	WatchlistID     int64            `json:"watchlist_id"`
	ItemID          int64            `json:"item_id"`
	Symbol          *string          `json:"symbol,omitempty"`
	Exchange        *string          `json:"exchange,omitempty"`
	Note            *string          `json:"note,omitempty"`
	Position        *int64           `json:"position,omitempty"`
	ClearPosition   bool             `json:"clear_position,omitempty"`
	Percentage      *decimal.Decimal `json:"percentage,omitempty"`
	ClearPercentage bool             `json:"clear_percentage,omitempty"`
	Quantity        *decimal.Decimal `json:"quantity,omitempty"`
	ClearQuantity   bool             `json:"clear_quantity,omitempty"`
}

func (in *UpdateItemRequest) patch() domain.ItemPatch {
	return domain.ItemPatch{
		Symbol:          in.Symbol,
		Exchange:        in.Exchange,
		Note:            in.Note,
		Position:        in.Position,
		ClearPosition:   in.ClearPosition,
		Percentage:      in.Percentage,
		ClearPercentage: in.ClearPercentage,
		Quantity:        in.Quantity,
		ClearQuantity:   in.ClearQuantity,
	}
}

type ItemRequest struct {
	WatchlistID int64 `json:"watchlist_id"`
	ItemID      int64 `json:"item_id"`
}

type ItemResponse struct {
	Item domain.Item `json:"item"`
}

type ShareRequest struct {
	WatchlistID int64  `json:"watchlist_id"`
	UserID      string `json:"user_id"`
	CanEdit     bool   `json:"can_edit,omitempty"`
}

type ShareResponse struct {
	Share domain.Share `json:"share"`
}

type ListSharesResponse struct {
	Shares []domain.Share `json:"shares"`
}

type BookmarkResponse struct {
	Bookmark domain.Bookmark `json:"bookmark"`
}

type ListBookmarksRequest struct {
	PageSize  int32  `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

type ListBookmarksResponse struct {
	Bookmarks     []domain.BookmarkedWatchlist `json:"bookmarks"`
	NextPageToken string                       `json:"next_page_token,omitempty"`
}

// ForkWatchlistRequest forks SourceID. Any set override replaces the derived
// name, description or visibility.
type ForkWatchlistRequest struct {
	SourceID    int64   `json:"source_id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Visibility  *string `json:"visibility,omitempty"`
}

type ForkWatchlistResponse struct {
	Fork lineage.ForkResult `json:"fork"`
}

type PullWatchlistResponse struct {
	Pull lineage.PullResult `json:"pull"`
}

type ListForksRequest struct {
	WatchlistID int64  `json:"watchlist_id"`
	PageSize    int32  `json:"page_size,omitempty"`
	PageToken   string `json:"page_token,omitempty"`
}

type ListForksResponse struct {
	Forks         []domain.Watchlist `json:"forks"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

type LineageResponse struct {
	Lineage lineage.Lineage `json:"lineage"`
}
