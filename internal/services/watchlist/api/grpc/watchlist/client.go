package watchlist

import (
	"context"

	apperrors "github.com/equitalks/equitalks/internal/platform/errors"
	platformgrpc "github.com/equitalks/equitalks/internal/platform/grpc"
	"github.com/equitalks/equitalks/internal/platform/requestctx"
	"google.golang.org/grpc"
)

// Client calls the watchlist service as a fixed user. Errors come back as
// domain errors when the server attached one.
type Client struct {
	conn   grpc.ClientConnInterface
	userID string
}

// NewClient returns a client acting as userID. An empty userID calls
// anonymously.
func NewClient(conn grpc.ClientConnInterface, userID string) *Client {
	return &Client{conn: conn, userID: userID}
}

// As returns a copy of the client acting as userID.
func (c *Client) As(userID string) *Client {
	return &Client{conn: c.conn, userID: userID}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any) (*Resp, error) {
	out := new(Resp)
	ctx = requestctx.OutgoingUserID(ctx, c.userID)
	err := c.conn.Invoke(ctx, fullMethod(method), in, out, grpc.CallContentSubtype(platformgrpc.JSONCodecName))
	if err != nil {
		return nil, apperrors.FromGRPCStatus(err)
	}
	return out, nil
}

func (c *Client) CreateWatchlist(ctx context.Context, in *CreateWatchlistRequest) (*WatchlistResponse, error) {
	return invoke[WatchlistResponse](ctx, c, "CreateWatchlist", in)
}

func (c *Client) UpdateWatchlist(ctx context.Context, in *UpdateWatchlistRequest) (*WatchlistResponse, error) {
	return invoke[WatchlistResponse](ctx, c, "UpdateWatchlist", in)
}

func (c *Client) DeleteWatchlist(ctx context.Context, in *WatchlistIDRequest) (*Empty, error) {
	return invoke[Empty](ctx, c, "DeleteWatchlist", in)
}

func (c *Client) GetWatchlist(ctx context.Context, in *WatchlistIDRequest) (*WatchlistWithItemsResponse, error) {
	return invoke[WatchlistWithItemsResponse](ctx, c, "GetWatchlist", in)
}

func (c *Client) GetDefaultWatchlist(ctx context.Context, in *GetDefaultWatchlistRequest) (*WatchlistWithItemsResponse, error) {
	return invoke[WatchlistWithItemsResponse](ctx, c, "GetDefaultWatchlist", in)
}

func (c *Client) GetPublicWatchlist(ctx context.Context, in *GetPublicWatchlistRequest) (*WatchlistWithItemsResponse, error) {
	return invoke[WatchlistWithItemsResponse](ctx, c, "GetPublicWatchlist", in)
}

func (c *Client) ListWatchlists(ctx context.Context, in *ListWatchlistsRequest) (*ListWatchlistsResponse, error) {
	return invoke[ListWatchlistsResponse](ctx, c, "ListWatchlists", in)
}

func (c *Client) SearchWatchlists(ctx context.Context, in *SearchWatchlistsRequest) (*SearchWatchlistsResponse, error) {
	return invoke[SearchWatchlistsResponse](ctx, c, "SearchWatchlists", in)
}

func (c *Client) ListTrending(ctx context.Context, in *ListTrendingRequest) (*ListTrendingResponse, error) {
	return invoke[ListTrendingResponse](ctx, c, "ListTrending", in)
}

func (c *Client) AddItems(ctx context.Context, in *AddItemsRequest) (*ItemsResponse, error) {
	return invoke[ItemsResponse](ctx, c, "AddItems", in)
}

func (c *Client) UpdateItem(ctx context.Context, in *UpdateItemRequest) (*ItemResponse, error) {
	return invoke[ItemResponse](ctx, c, "UpdateItem", in)
}

func (c *Client) RemoveItem(ctx context.Context, in *ItemRequest) (*ItemResponse, error) {
	return invoke[ItemResponse](ctx, c, "RemoveItem", in)
}

func (c *Client) ListItems(ctx context.Context, in *WatchlistIDRequest) (*ItemsResponse, error) {
	return invoke[ItemsResponse](ctx, c, "ListItems", in)
}

func (c *Client) ShareWatchlist(ctx context.Context, in *ShareRequest) (*ShareResponse, error) {
	return invoke[ShareResponse](ctx, c, "ShareWatchlist", in)
}

func (c *Client) UpdateShare(ctx context.Context, in *ShareRequest) (*ShareResponse, error) {
	return invoke[ShareResponse](ctx, c, "UpdateShare", in)
}

func (c *Client) RevokeShare(ctx context.Context, in *ShareRequest) (*Empty, error) {
	return invoke[Empty](ctx, c, "RevokeShare", in)
}

func (c *Client) ListShares(ctx context.Context, in *WatchlistIDRequest) (*ListSharesResponse, error) {
	return invoke[ListSharesResponse](ctx, c, "ListShares", in)
}

func (c *Client) BookmarkWatchlist(ctx context.Context, in *WatchlistIDRequest) (*BookmarkResponse, error) {
	return invoke[BookmarkResponse](ctx, c, "BookmarkWatchlist", in)
}

func (c *Client) UnbookmarkWatchlist(ctx context.Context, in *WatchlistIDRequest) (*Empty, error) {
	return invoke[Empty](ctx, c, "UnbookmarkWatchlist", in)
}

func (c *Client) ListBookmarks(ctx context.Context, in *ListBookmarksRequest) (*ListBookmarksResponse, error) {
	return invoke[ListBookmarksResponse](ctx, c, "ListBookmarks", in)
}

func (c *Client) ForkWatchlist(ctx context.Context, in *ForkWatchlistRequest) (*ForkWatchlistResponse, error) {
	return invoke[ForkWatchlistResponse](ctx, c, "ForkWatchlist", in)
}

func (c *Client) PullWatchlist(ctx context.Context, in *WatchlistIDRequest) (*PullWatchlistResponse, error) {
	return invoke[PullWatchlistResponse](ctx, c, "PullWatchlist", in)
}

func (c *Client) ListForks(ctx context.Context, in *ListForksRequest) (*ListForksResponse, error) {
	return invoke[ListForksResponse](ctx, c, "ListForks", in)
}

func (c *Client) GetLineage(ctx context.Context, in *WatchlistIDRequest) (*LineageResponse, error) {
	return invoke[LineageResponse](ctx, c, "GetLineage", in)
}
