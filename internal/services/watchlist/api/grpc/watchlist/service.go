package watchlist

import (
	"context"
	"strconv"
	"strings"

	apperrors "github.com/equitalks/equitalks/internal/platform/errors"
	"github.com/equitalks/equitalks/internal/platform/grpc/pagination"
	"github.com/equitalks/equitalks/internal/platform/requestctx"
	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/lineage"
	"github.com/equitalks/equitalks/internal/services/watchlist/service"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var pageSizes = pagination.PageSizeConfig{
	Default: service.DefaultPageSize,
	Max:     service.MaxPageSize,
}

// Service exposes the watchlist operations over gRPC. The caller comes from
// the request context, populated by requestctx.UnaryServerInterceptor.
type Service struct {
	app *service.Service
}

// NewService wraps app for gRPC.
func NewService(app *service.Service) *Service {
	return &Service{app: app}
}

var _ WatchlistServiceServer = (*Service)(nil)

func (s *Service) ready() error {
	if s == nil || s.app == nil {
		return status.Error(codes.Internal, "watchlist service is not configured")
	}
	return nil
}

func caller(ctx context.Context) string {
	return requestctx.UserIDFromContext(ctx)
}

// page decodes a page token bound to binding.
func page(size int32, token, binding string) (service.Page, error) {
	limit := pagination.ClampPageSize(size, pageSizes)
	offset, err := pagination.DecodeOffsetToken(token, binding)
	if err != nil {
		return service.Page{}, apperrors.New(apperrors.CodeInvalidPageToken, err.Error())
	}
	return service.Page{Limit: limit, Offset: offset}, nil
}

func (s *Service) CreateWatchlist(ctx context.Context, in *CreateWatchlistRequest) (*WatchlistResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	w, err := s.app.Create(ctx, caller(ctx), service.CreateInput{
		Name:        in.Name,
		Description: in.Description,
		Visibility:  in.Visibility,
		IsDefault:   in.IsDefault,
	})
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &WatchlistResponse{Watchlist: w}, nil
}

func (s *Service) UpdateWatchlist(ctx context.Context, in *UpdateWatchlistRequest) (*WatchlistResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	w, err := s.app.Update(ctx, caller(ctx), in.WatchlistID, service.UpdateInput{
		Name:        in.Name,
		Description: in.Description,
		Visibility:  in.Visibility,
		IsDefault:   in.IsDefault,
	})
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &WatchlistResponse{Watchlist: w}, nil
}

func (s *Service) DeleteWatchlist(ctx context.Context, in *WatchlistIDRequest) (*Empty, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.app.Delete(ctx, caller(ctx), in.WatchlistID); err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &Empty{}, nil
}

func (s *Service) GetWatchlist(ctx context.Context, in *WatchlistIDRequest) (*WatchlistWithItemsResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	out, err := s.app.Get(ctx, caller(ctx), in.WatchlistID)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return withItemsResponse(out), nil
}

func (s *Service) GetDefaultWatchlist(ctx context.Context, _ *GetDefaultWatchlistRequest) (*WatchlistWithItemsResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	out, err := s.app.GetDefault(ctx, caller(ctx))
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return withItemsResponse(out), nil
}

func (s *Service) GetPublicWatchlist(ctx context.Context, in *GetPublicWatchlistRequest) (*WatchlistWithItemsResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	out, err := s.app.GetPublicByOwnerAndName(ctx, in.OwnerID, in.Name)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return withItemsResponse(out), nil
}

func (s *Service) ListWatchlists(ctx context.Context, in *ListWatchlistsRequest) (*ListWatchlistsResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	binding := domain.NameKey(in.Name) + "\x00" + strings.TrimSpace(in.Filter)
	p, err := page(in.PageSize, in.PageToken, binding)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	list, err := s.app.ListByOwner(ctx, caller(ctx), service.OwnerListQuery{
		Name:   in.Name,
		Filter: in.Filter,
		Page:   p,
	})
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &ListWatchlistsResponse{
		Watchlists:    nonNil(list),
		NextPageToken: pagination.NextOffsetToken(p.Offset, p.Limit, len(list), binding),
	}, nil
}

func (s *Service) SearchWatchlists(ctx context.Context, in *SearchWatchlistsRequest) (*SearchWatchlistsResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	binding := domain.NameKey(in.Query)
	p, err := page(in.PageSize, in.PageToken, binding)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	results, err := s.app.SearchPublicByName(ctx, in.Query, p)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &SearchWatchlistsResponse{
		Results:       nonNil(results),
		NextPageToken: pagination.NextOffsetToken(p.Offset, p.Limit, len(results), binding),
	}, nil
}

func (s *Service) ListTrending(ctx context.Context, in *ListTrendingRequest) (*ListTrendingResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	p, err := page(in.PageSize, in.PageToken, "")
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	list, err := s.app.Trending(ctx, p)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &ListTrendingResponse{
		Watchlists:    nonNil(list),
		NextPageToken: pagination.NextOffsetToken(p.Offset, p.Limit, len(list), ""),
	}, nil
}

func (s *Service) AddItems(ctx context.Context, in *AddItemsRequest) (*ItemsResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	items := make([]domain.Item, 0, len(in.Items))
	for _, input := range in.Items {
		items = append(items, input.item())
	}
	created, err := s.app.AddItems(ctx, caller(ctx), in.WatchlistID, items)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &ItemsResponse{Items: created}, nil
}

func (s *Service) UpdateItem(ctx context.Context, in *UpdateItemRequest) (*ItemResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	item, err := s.app.UpdateItem(ctx, caller(ctx), in.WatchlistID, in.ItemID, in.patch())
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &ItemResponse{Item: item}, nil
}

func (s *Service) RemoveItem(ctx context.Context, in *ItemRequest) (*ItemResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	item, err := s.app.RemoveItem(ctx, caller(ctx), in.WatchlistID, in.ItemID)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &ItemResponse{Item: item}, nil
}

func (s *Service) ListItems(ctx context.Context, in *WatchlistIDRequest) (*ItemsResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	items, err := s.app.ListItems(ctx, caller(ctx), in.WatchlistID)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &ItemsResponse{Items: nonNil(items)}, nil
}

func (s *Service) ShareWatchlist(ctx context.Context, in *ShareRequest) (*ShareResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	share, err := s.app.Share(ctx, caller(ctx), in.WatchlistID, in.UserID, in.CanEdit)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &ShareResponse{Share: share}, nil
}

func (s *Service) UpdateShare(ctx context.Context, in *ShareRequest) (*ShareResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	share, err := s.app.UpdateShare(ctx, caller(ctx), in.WatchlistID, in.UserID, in.CanEdit)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &ShareResponse{Share: share}, nil
}

func (s *Service) RevokeShare(ctx context.Context, in *ShareRequest) (*Empty, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.app.RevokeShare(ctx, caller(ctx), in.WatchlistID, in.UserID); err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &Empty{}, nil
}

func (s *Service) ListShares(ctx context.Context, in *WatchlistIDRequest) (*ListSharesResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	shares, err := s.app.ListShares(ctx, caller(ctx), in.WatchlistID)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &ListSharesResponse{Shares: nonNil(shares)}, nil
}

func (s *Service) BookmarkWatchlist(ctx context.Context, in *WatchlistIDRequest) (*BookmarkResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	bookmark, err := s.app.Bookmark(ctx, caller(ctx), in.WatchlistID)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &BookmarkResponse{Bookmark: bookmark}, nil
}

func (s *Service) UnbookmarkWatchlist(ctx context.Context, in *WatchlistIDRequest) (*Empty, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.app.Unbookmark(ctx, caller(ctx), in.WatchlistID); err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &Empty{}, nil
}

func (s *Service) ListBookmarks(ctx context.Context, in *ListBookmarksRequest) (*ListBookmarksResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	p, err := page(in.PageSize, in.PageToken, "")
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	list, err := s.app.ListBookmarks(ctx, caller(ctx), p)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &ListBookmarksResponse{
		Bookmarks:     nonNil(list),
		NextPageToken: pagination.NextOffsetToken(p.Offset, p.Limit, len(list), ""),
	}, nil
}

func (s *Service) ForkWatchlist(ctx context.Context, in *ForkWatchlistRequest) (*ForkWatchlistResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	opts := lineage.ForkOptions{Name: in.Name, Description: in.Description}
	if in.Visibility != nil {
		visibility := domain.Visibility(*in.Visibility)
		opts.Visibility = &visibility
	}
	result, err := s.app.ForkCustom(ctx, caller(ctx), in.SourceID, opts)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &ForkWatchlistResponse{Fork: result}, nil
}

func (s *Service) PullWatchlist(ctx context.Context, in *WatchlistIDRequest) (*PullWatchlistResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	result, err := s.app.Pull(ctx, caller(ctx), in.WatchlistID)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &PullWatchlistResponse{Pull: result}, nil
}

func (s *Service) ListForks(ctx context.Context, in *ListForksRequest) (*ListForksResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	binding := strconv.FormatInt(in.WatchlistID, 10)
	p, err := page(in.PageSize, in.PageToken, binding)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	forks, err := s.app.ListForks(ctx, caller(ctx), in.WatchlistID, p)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &ListForksResponse{
		Forks:         nonNil(forks),
		NextPageToken: pagination.NextOffsetToken(p.Offset, p.Limit, len(forks), binding),
	}, nil
}

func (s *Service) GetLineage(ctx context.Context, in *WatchlistIDRequest) (*LineageResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	result, err := s.app.Lineage(ctx, caller(ctx), in.WatchlistID)
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &LineageResponse{Lineage: result}, nil
}

func withItemsResponse(in domain.WatchlistWithItems) *WatchlistWithItemsResponse {
	return &WatchlistWithItemsResponse{Watchlist: in.Watchlist, Items: nonNil(in.Items)}
}

// nonNil keeps empty lists as [] on the wire.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
