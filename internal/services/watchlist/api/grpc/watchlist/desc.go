package watchlist

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name, also used for health
// checks.
const ServiceName = "equitalks.watchlist.v1.WatchlistService"

// WatchlistServiceServer is the server side of the watchlist API.
type WatchlistServiceServer interface {
	CreateWatchlist(context.Context, *CreateWatchlistRequest) (*WatchlistResponse, error)
	UpdateWatchlist(context.Context, *UpdateWatchlistRequest) (*WatchlistResponse, error)
	DeleteWatchlist(context.Context, *WatchlistIDRequest) (*Empty, error)
	GetWatchlist(context.Context, *WatchlistIDRequest) (*WatchlistWithItemsResponse, error)
	GetDefaultWatchlist(context.Context, *GetDefaultWatchlistRequest) (*WatchlistWithItemsResponse, error)
	GetPublicWatchlist(context.Context, *GetPublicWatchlistRequest) (*WatchlistWithItemsResponse, error)
	ListWatchlists(context.Context, *ListWatchlistsRequest) (*ListWatchlistsResponse, error)
	SearchWatchlists(context.Context, *SearchWatchlistsRequest) (*SearchWatchlistsResponse, error)
	ListTrending(context.Context, *ListTrendingRequest) (*ListTrendingResponse, error)

	AddItems(context.Context, *AddItemsRequest) (*ItemsResponse, error)
	UpdateItem(context.Context, *UpdateItemRequest) (*ItemResponse, error)
	RemoveItem(context.Context, *ItemRequest) (*ItemResponse, error)
	ListItems(context.Context, *WatchlistIDRequest) (*ItemsResponse, error)

	ShareWatchlist(context.Context, *ShareRequest) (*ShareResponse, error)
	UpdateShare(context.Context, *ShareRequest) (*ShareResponse, error)
	RevokeShare(context.Context, *ShareRequest) (*Empty, error)
	ListShares(context.Context, *WatchlistIDRequest) (*ListSharesResponse, error)

	BookmarkWatchlist(context.Context, *WatchlistIDRequest) (*BookmarkResponse, error)
	UnbookmarkWatchlist(context.Context, *WatchlistIDRequest) (*Empty, error)
	ListBookmarks(context.Context, *ListBookmarksRequest) (*ListBookmarksResponse, error)

	ForkWatchlist(context.Context, *ForkWatchlistRequest) (*ForkWatchlistResponse, error)
	PullWatchlist(context.Context, *WatchlistIDRequest) (*PullWatchlistResponse, error)
	ListForks(context.Context, *ListForksRequest) (*ListForksResponse, error)
	GetLineage(context.Context, *WatchlistIDRequest) (*LineageResponse, error)
}

// RegisterWatchlistServiceServer registers srv on registrar.
func RegisterWatchlistServiceServer(registrar grpc.ServiceRegistrar, srv WatchlistServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the watchlist service. There is no generated proto
// stub; messages are plain structs carried by the json codec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WatchlistServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateWatchlist", WatchlistServiceServer.CreateWatchlist),
		unary("UpdateWatchlist", WatchlistServiceServer.UpdateWatchlist),
		unary("DeleteWatchlist", WatchlistServiceServer.DeleteWatchlist),
		unary("GetWatchlist", WatchlistServiceServer.GetWatchlist),
		unary("GetDefaultWatchlist", WatchlistServiceServer.GetDefaultWatchlist),
		unary("GetPublicWatchlist", WatchlistServiceServer.GetPublicWatchlist),
		unary("ListWatchlists", WatchlistServiceServer.ListWatchlists),
		unary("SearchWatchlists", WatchlistServiceServer.SearchWatchlists),
		unary("ListTrending", WatchlistServiceServer.ListTrending),
		unary("AddItems", WatchlistServiceServer.AddItems),
		unary("UpdateItem", WatchlistServiceServer.UpdateItem),
		unary("RemoveItem", WatchlistServiceServer.RemoveItem),
		unary("ListItems", WatchlistServiceServer.ListItems),
		unary("ShareWatchlist", WatchlistServiceServer.ShareWatchlist),
		unary("UpdateShare", WatchlistServiceServer.UpdateShare),
		unary("RevokeShare", WatchlistServiceServer.RevokeShare),
		unary("ListShares", WatchlistServiceServer.ListShares),
		unary("BookmarkWatchlist", WatchlistServiceServer.BookmarkWatchlist),
		unary("UnbookmarkWatchlist", WatchlistServiceServer.UnbookmarkWatchlist),
		unary("ListBookmarks", WatchlistServiceServer.ListBookmarks),
		unary("ForkWatchlist", WatchlistServiceServer.ForkWatchlist),
		unary("PullWatchlist", WatchlistServiceServer.PullWatchlist),
		unary("ListForks", WatchlistServiceServer.ListForks),
		unary("GetLineage", WatchlistServiceServer.GetLineage),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "equitalks/watchlist/v1/watchlist.json",
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary adapts a typed server method to a grpc.MethodDesc, running it through
// the server's interceptor chain.
func unary[Req, Resp any](name string, call func(WatchlistServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(WatchlistServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
