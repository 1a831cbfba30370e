package watchlistmcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/equitalks/equitalks/internal/platform/timeouts"
	watchlistgrpc "github.com/equitalks/equitalks/internal/services/watchlist/api/grpc/watchlist"
	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/lineage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shopspring/decimal"
)

// callTimeout bounds one watchlist RPC made on behalf of a tool call.
const callTimeout = timeouts.GRPCRequest

// API is the part of the watchlist client the tools use.
type API interface {
	CreateWatchlist(context.Context, *watchlistgrpc.CreateWatchlistRequest) (*watchlistgrpc.WatchlistResponse, error)
	ListWatchlists(context.Context, *watchlistgrpc.ListWatchlistsRequest) (*watchlistgrpc.ListWatchlistsResponse, error)
	GetWatchlist(context.Context, *watchlistgrpc.WatchlistIDRequest) (*watchlistgrpc.WatchlistWithItemsResponse, error)
	AddItems(context.Context, *watchlistgrpc.AddItemsRequest) (*watchlistgrpc.ItemsResponse, error)
	SearchWatchlists(context.Context, *watchlistgrpc.SearchWatchlistsRequest) (*watchlistgrpc.SearchWatchlistsResponse, error)
	ListTrending(context.Context, *watchlistgrpc.ListTrendingRequest) (*watchlistgrpc.ListTrendingResponse, error)
	ForkWatchlist(context.Context, *watchlistgrpc.ForkWatchlistRequest) (*watchlistgrpc.ForkWatchlistResponse, error)
	PullWatchlist(context.Context, *watchlistgrpc.WatchlistIDRequest) (*watchlistgrpc.PullWatchlistResponse, error)
	GetLineage(context.Context, *watchlistgrpc.WatchlistIDRequest) (*watchlistgrpc.LineageResponse, error)
	ShareWatchlist(context.Context, *watchlistgrpc.ShareRequest) (*watchlistgrpc.ShareResponse, error)
	BookmarkWatchlist(context.Context, *watchlistgrpc.WatchlistIDRequest) (*watchlistgrpc.BookmarkResponse, error)
}

var _ API = (*watchlistgrpc.Client)(nil)

// WatchlistSummary is the tool view of a watchlist.
type WatchlistSummary struct {
	ID               int64  `json:"id" jsonschema:"watchlist identifier"`
	Name             string `json:"name" jsonschema:"display name"`
	Description      string `json:"description,omitempty" jsonschema:"free-form description"`
	OwnerID          string `json:"owner_id" jsonschema:"owning user"`
	Visibility       string `json:"visibility" jsonschema:"private, shared or public"`
	IsDefault        bool   `json:"is_default" jsonschema:"whether this is the owner's default watchlist"`
	ForkedFromID     int64  `json:"forked_from_id,omitempty" jsonschema:"source watchlist when this is a fork"`
	OriginalAuthorID string `json:"original_author_id,omitempty" jsonschema:"author of the root of the fork chain"`
	ForkCount        int64  `json:"fork_count" jsonschema:"number of direct forks"`
	CreatedAt        string `json:"created_at" jsonschema:"RFC3339 creation timestamp"`
}

// ItemSummary is the tool view of a watchlist item.
type ItemSummary struct {
	ID         int64  `json:"id" jsonschema:"item identifier"`
	Symbol     string `json:"symbol" jsonschema:"ticker symbol"`
	Exchange   string `json:"exchange" jsonschema:"exchange code"`
	Note       string `json:"note,omitempty" jsonschema:"free-form note"`
	Position   *int64 `json:"position,omitempty" jsonschema:"manual sort position"`
	Percentage string `json:"percentage,omitempty" jsonschema:"target allocation percentage"`
	Quantity   string `json:"quantity,omitempty" jsonschema:"held quantity"`
}

func watchlistSummary(w domain.Watchlist) WatchlistSummary {
	return WatchlistSummary{
		ID:               w.ID,
		Name:             w.Name,
		Description:      w.Description,
		OwnerID:          w.OwnerID,
		Visibility:       string(w.Visibility),
		IsDefault:        w.IsDefault,
		ForkedFromID:     w.ForkedFromID,
		OriginalAuthorID: w.OriginalAuthorID,
		ForkCount:        w.ForkCount,
		CreatedAt:        w.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func itemSummaries(items []domain.Item) []ItemSummary {
	out := make([]ItemSummary, 0, len(items))
	for _, item := range items {
		summary := ItemSummary{
			ID:       item.ID,
			Symbol:   item.Symbol,
			Exchange: item.Exchange,
			Note:     item.Note,
			Position: item.Position,
		}
		if item.Percentage.Valid {
			summary.Percentage = item.Percentage.Decimal.String()
		}
		if item.Quantity.Valid {
			summary.Quantity = item.Quantity.Decimal.String()
		}
		out = append(out, summary)
	}
	return out
}

// WatchlistCreateInput represents the MCP tool input for creating a watchlist.
type WatchlistCreateInput struct {
	Name        string `json:"name" jsonschema:"watchlist name, unique per owner ignoring case"`
	Description string `json:"description,omitempty" jsonschema:"optional description"`
	Visibility  string `json:"visibility,omitempty" jsonschema:"private (default), shared or public"`
	IsDefault   bool   `json:"is_default,omitempty" jsonschema:"make this the default watchlist"`
}

// WatchlistResult wraps one watchlist.
type WatchlistResult struct {
	Watchlist WatchlistSummary `json:"watchlist"`
}

func WatchlistCreateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "watchlist_create",
		Description: "Create a watchlist owned by the configured user",
	}
}

func WatchlistCreateHandler(api API) mcp.ToolHandlerFor[WatchlistCreateInput, WatchlistResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WatchlistCreateInput) (*mcp.CallToolResult, WatchlistResult, error) {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		response, err := api.CreateWatchlist(ctx, &watchlistgrpc.CreateWatchlistRequest{
			Name:        input.Name,
			Description: input.Description,
			Visibility:  input.Visibility,
			IsDefault:   input.IsDefault,
		})
		if err != nil {
			return nil, WatchlistResult{}, fmt.Errorf("create watchlist failed: %w", err)
		}
		return nil, WatchlistResult{Watchlist: watchlistSummary(response.Watchlist)}, nil
	}
}

// WatchlistListInput represents the MCP tool input for listing own watchlists.
type WatchlistListInput struct {
	Name      string `json:"name,omitempty" jsonschema:"optional name substring, ignoring case"`
	Filter    string `json:"filter,omitempty" jsonschema:"optional AIP-160 filter, e.g. visibility = \"public\""`
	PageSize  int32  `json:"page_size,omitempty" jsonschema:"maximum results (default 20, max 100)"`
	PageToken string `json:"page_token,omitempty" jsonschema:"token from a previous call"`
}

// WatchlistListResult lists watchlists with a continuation token.
type WatchlistListResult struct {
	Watchlists    []WatchlistSummary `json:"watchlists"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

func WatchlistListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "watchlist_list",
		Description: "List the configured user's watchlists, default first",
	}
}

func WatchlistListHandler(api API) mcp.ToolHandlerFor[WatchlistListInput, WatchlistListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WatchlistListInput) (*mcp.CallToolResult, WatchlistListResult, error) {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		response, err := api.ListWatchlists(ctx, &watchlistgrpc.ListWatchlistsRequest{
			Name:      input.Name,
			Filter:    input.Filter,
			PageSize:  input.PageSize,
			PageToken: input.PageToken,
		})
		if err != nil {
			return nil, WatchlistListResult{}, fmt.Errorf("list watchlists failed: %w", err)
		}
		result := WatchlistListResult{
			Watchlists:    make([]WatchlistSummary, 0, len(response.Watchlists)),
			NextPageToken: response.NextPageToken,
		}
		for _, w := range response.Watchlists {
			result.Watchlists = append(result.Watchlists, watchlistSummary(w))
		}
		return nil, result, nil
	}
}

// WatchlistIDInput addresses one watchlist.
type WatchlistIDInput struct {
	WatchlistID int64 `json:"watchlist_id" jsonschema:"watchlist identifier"`
}

// WatchlistDetailResult is a watchlist with its items.
type WatchlistDetailResult struct {
	Watchlist WatchlistSummary `json:"watchlist"`
	Items     []ItemSummary    `json:"items"`
}

func WatchlistGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "watchlist_get",
		Description: "Get a watchlist and its items",
	}
}

func WatchlistGetHandler(api API) mcp.ToolHandlerFor[WatchlistIDInput, WatchlistDetailResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WatchlistIDInput) (*mcp.CallToolResult, WatchlistDetailResult, error) {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		response, err := api.GetWatchlist(ctx, &watchlistgrpc.WatchlistIDRequest{WatchlistID: input.WatchlistID})
		if err != nil {
			return nil, WatchlistDetailResult{}, fmt.Errorf("get watchlist failed: %w", err)
		}
		return nil, WatchlistDetailResult{
			Watchlist: watchlistSummary(response.Watchlist),
			Items:     itemSummaries(response.Items),
		}, nil
	}
}

// ItemAddInput represents the MCP tool input for adding tickers.
type ItemAddInput struct {
	WatchlistID int64      `json:"watchlist_id" jsonschema:"watchlist identifier"`
	Items       []ItemArgs `json:"items" jsonschema:"tickers to add; a duplicate rejects the whole batch"`
}

// ItemArgs is one ticker to add.
type ItemArgs struct {
	Symbol     string `json:"symbol" jsonschema:"ticker symbol"`
	Exchange   string `json:"exchange" jsonschema:"exchange code"`
	Note       string `json:"note,omitempty" jsonschema:"optional note"`
	Position   *int64 `json:"position,omitempty" jsonschema:"optional sort position"`
	Percentage string `json:"percentage,omitempty" jsonschema:"optional allocation percentage between 0 and 100"`
	Quantity   string `json:"quantity,omitempty" jsonschema:"optional non-negative quantity"`
}

// ItemAddResult lists the created items.
type ItemAddResult struct {
	Items []ItemSummary `json:"items"`
}

func WatchlistItemAddTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "watchlist_item_add",
		Description: "Add one or more tickers to a watchlist the configured user can edit",
	}
}

func WatchlistItemAddHandler(api API) mcp.ToolHandlerFor[ItemAddInput, ItemAddResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ItemAddInput) (*mcp.CallToolResult, ItemAddResult, error) {
		items := make([]watchlistgrpc.ItemInput, 0, len(input.Items))
		for i, args := range input.Items {
			percentage, err := optionalDecimal(args.Percentage)
			if err != nil {
				return nil, ItemAddResult{}, fmt.Errorf("item %d percentage: %w", i, err)
			}
			quantity, err := optionalDecimal(args.Quantity)
			if err != nil {
				return nil, ItemAddResult{}, fmt.Errorf("item %d quantity: %w", i, err)
			}
			items = append(items, watchlistgrpc.ItemInput{
				Symbol:     args.Symbol,
				Exchange:   args.Exchange,
				Note:       args.Note,
				Position:   args.Position,
				Percentage: percentage,
				Quantity:   quantity,
			})
		}

		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		response, err := api.AddItems(ctx, &watchlistgrpc.AddItemsRequest{WatchlistID: input.WatchlistID, Items: items})
		if err != nil {
			return nil, ItemAddResult{}, fmt.Errorf("add items failed: %w", err)
		}
		return nil, ItemAddResult{Items: itemSummaries(response.Items)}, nil
	}
}

func optionalDecimal(value string) (decimal.NullDecimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.NullDecimal{}, nil
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(parsed), nil
}

// WatchlistSearchInput represents the MCP tool input for public search.
type WatchlistSearchInput struct {
	Query     string `json:"query" jsonschema:"substring of the watchlist name"`
	PageSize  int32  `json:"page_size,omitempty" jsonschema:"maximum results (default 20, max 100)"`
	PageToken string `json:"page_token,omitempty" jsonschema:"token from a previous call"`
}

// WatchlistSearchResult lists matching public watchlists with items.
type WatchlistSearchResult struct {
	Results       []WatchlistDetailResult `json:"results"`
	NextPageToken string                  `json:"next_page_token,omitempty"`
}

func WatchlistSearchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "watchlist_search",
		Description: "Search public watchlists by name",
	}
}

func WatchlistSearchHandler(api API) mcp.ToolHandlerFor[WatchlistSearchInput, WatchlistSearchResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WatchlistSearchInput) (*mcp.CallToolResult, WatchlistSearchResult, error) {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		response, err := api.SearchWatchlists(ctx, &watchlistgrpc.SearchWatchlistsRequest{
			Query:     input.Query,
			PageSize:  input.PageSize,
			PageToken: input.PageToken,
		})
		if err != nil {
			return nil, WatchlistSearchResult{}, fmt.Errorf("search watchlists failed: %w", err)
		}
		result := WatchlistSearchResult{
			Results:       make([]WatchlistDetailResult, 0, len(response.Results)),
			NextPageToken: response.NextPageToken,
		}
		for _, entry := range response.Results {
			result.Results = append(result.Results, WatchlistDetailResult{
				Watchlist: watchlistSummary(entry.Watchlist),
				Items:     itemSummaries(entry.Items),
			})
		}
		return nil, result, nil
	}
}

// WatchlistTrendingInput represents the MCP tool input for trending lists.
type WatchlistTrendingInput struct {
	PageSize  int32  `json:"page_size,omitempty" jsonschema:"maximum results (default 20, max 100)"`
	PageToken string `json:"page_token,omitempty" jsonschema:"token from a previous call"`
}

// TrendingEntry is one ranked public watchlist.
type TrendingEntry struct {
	Watchlist WatchlistSummary `json:"watchlist"`
	VoteTotal int64            `json:"vote_total" jsonschema:"sum of votes"`
	Score     int64            `json:"score" jsonschema:"fork count plus vote total"`
}

// WatchlistTrendingResult lists trending watchlists.
type WatchlistTrendingResult struct {
	Watchlists    []TrendingEntry `json:"watchlists"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

func WatchlistTrendingTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "watchlist_trending",
		Description: "List public watchlists ranked by forks plus votes",
	}
}

func WatchlistTrendingHandler(api API) mcp.ToolHandlerFor[WatchlistTrendingInput, WatchlistTrendingResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WatchlistTrendingInput) (*mcp.CallToolResult, WatchlistTrendingResult, error) {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		response, err := api.ListTrending(ctx, &watchlistgrpc.ListTrendingRequest{
			PageSize:  input.PageSize,
			PageToken: input.PageToken,
		})
		if err != nil {
			return nil, WatchlistTrendingResult{}, fmt.Errorf("list trending failed: %w", err)
		}
		result := WatchlistTrendingResult{
			Watchlists:    make([]TrendingEntry, 0, len(response.Watchlists)),
			NextPageToken: response.NextPageToken,
		}
		for _, entry := range response.Watchlists {
			result.Watchlists = append(result.Watchlists, TrendingEntry{
				Watchlist: watchlistSummary(entry.Watchlist),
				VoteTotal: entry.VoteTotal,
				Score:     entry.Score,
			})
		}
		return nil, result, nil
	}
}

// WatchlistForkInput represents the MCP tool input for forking a watchlist.
type WatchlistForkInput struct {
	SourceID    int64  `json:"source_id" jsonschema:"public watchlist to fork"`
	Name        string `json:"name,omitempty" jsonschema:"optional name; defaults to the source name with a fork suffix"`
	Description string `json:"description,omitempty" jsonschema:"optional description; defaults to the source description"`
	Visibility  string `json:"visibility,omitempty" jsonschema:"optional visibility; defaults to private"`
}

// WatchlistForkResult describes a new fork.
type WatchlistForkResult struct {
	Watchlist WatchlistSummary `json:"watchlist"`
	SourceID  int64            `json:"source_id" jsonschema:"forked watchlist"`
	Items     []ItemSummary    `json:"items"`
}

func WatchlistForkTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "watchlist_fork",
		Description: "Fork a public watchlist into the configured user's account, copying its items",
	}
}

func WatchlistForkHandler(api API) mcp.ToolHandlerFor[WatchlistForkInput, WatchlistForkResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WatchlistForkInput) (*mcp.CallToolResult, WatchlistForkResult, error) {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		response, err := api.ForkWatchlist(ctx, &watchlistgrpc.ForkWatchlistRequest{
			SourceID:    input.SourceID,
			Name:        optionalString(input.Name),
			Description: optionalString(input.Description),
			Visibility:  optionalString(input.Visibility),
		})
		if err != nil {
			return nil, WatchlistForkResult{}, fmt.Errorf("fork watchlist failed: %w", err)
		}
		return nil, WatchlistForkResult{
			Watchlist: watchlistSummary(response.Fork.Watchlist),
			SourceID:  response.Fork.Source.ID,
			Items:     itemSummaries(response.Fork.Items),
		}, nil
	}
}

func optionalString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

// WatchlistPullResult describes a pull from the fork source.
type WatchlistPullResult struct {
	Watchlist    WatchlistSummary `json:"watchlist"`
	SourceID     int64            `json:"source_id" jsonschema:"watchlist pulled from"`
	Items        []ItemSummary    `json:"items"`
	RemovedItems int              `json:"removed_items" jsonschema:"items replaced by the pull"`
}

func WatchlistPullTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "watchlist_pull",
		Description: "Replace a fork's items with the current items of its source",
	}
}

func WatchlistPullHandler(api API) mcp.ToolHandlerFor[WatchlistIDInput, WatchlistPullResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WatchlistIDInput) (*mcp.CallToolResult, WatchlistPullResult, error) {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		response, err := api.PullWatchlist(ctx, &watchlistgrpc.WatchlistIDRequest{WatchlistID: input.WatchlistID})
		if err != nil {
			return nil, WatchlistPullResult{}, fmt.Errorf("pull watchlist failed: %w", err)
		}
		return nil, WatchlistPullResult{
			Watchlist:    watchlistSummary(response.Pull.Watchlist),
			SourceID:     response.Pull.Source.ID,
			Items:        itemSummaries(response.Pull.Items),
			RemovedItems: response.Pull.RemovedItems,
		}, nil
	}
}

// LineageEntry is one step of a fork chain.
type LineageEntry struct {
	WatchlistID int64  `json:"watchlist_id"`
	Name        string `json:"name,omitempty" jsonschema:"empty when hidden"`
	OwnerID     string `json:"owner_id,omitempty" jsonschema:"empty when hidden"`
	Hidden      bool   `json:"hidden,omitempty" jsonschema:"the configured user cannot view this ancestor"`
}

// WatchlistLineageResult is the ancestor chain, origin first.
type WatchlistLineageResult struct {
	Chain             []LineageEntry `json:"chain"`
	Depth             int            `json:"depth" jsonschema:"number of fork steps (0 = original)"`
	MissingAncestorID int64          `json:"missing_ancestor_id,omitempty" jsonschema:"deleted ancestor that truncates the chain"`
}

func WatchlistLineageTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "watchlist_lineage",
		Description: "Get the fork ancestry of a watchlist, origin first",
	}
}

func WatchlistLineageHandler(api API) mcp.ToolHandlerFor[WatchlistIDInput, WatchlistLineageResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WatchlistIDInput) (*mcp.CallToolResult, WatchlistLineageResult, error) {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		response, err := api.GetLineage(ctx, &watchlistgrpc.WatchlistIDRequest{WatchlistID: input.WatchlistID})
		if err != nil {
			return nil, WatchlistLineageResult{}, fmt.Errorf("get lineage failed: %w", err)
		}
		return nil, lineageResult(response.Lineage), nil
	}
}

func lineageResult(in lineage.Lineage) WatchlistLineageResult {
	result := WatchlistLineageResult{
		Chain:             make([]LineageEntry, 0, len(in.Chain)),
		MissingAncestorID: in.MissingAncestorID,
	}
	for _, ancestor := range in.Chain {
		entry := LineageEntry{WatchlistID: ancestor.Watchlist.ID, Hidden: ancestor.Hidden}
		if !ancestor.Hidden {
			entry.Name = ancestor.Watchlist.Name
			entry.OwnerID = ancestor.Watchlist.OwnerID
		}
		result.Chain = append(result.Chain, entry)
	}
	if len(result.Chain) > 0 {
		result.Depth = len(result.Chain) - 1
	}
	return result
}

// WatchlistShareInput represents the MCP tool input for sharing.
type WatchlistShareInput struct {
	WatchlistID int64  `json:"watchlist_id" jsonschema:"watchlist owned by the configured user"`
	UserID      string `json:"user_id" jsonschema:"user to share with"`
	CanEdit     bool   `json:"can_edit,omitempty" jsonschema:"grant edit access instead of view"`
}

// WatchlistShareResult describes a new grant.
type WatchlistShareResult struct {
	WatchlistID int64  `json:"watchlist_id"`
	UserID      string `json:"user_id"`
	CanEdit     bool   `json:"can_edit"`
}

func WatchlistShareTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "watchlist_share",
		Description: "Share a watchlist with another user",
	}
}

func WatchlistShareHandler(api API) mcp.ToolHandlerFor[WatchlistShareInput, WatchlistShareResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WatchlistShareInput) (*mcp.CallToolResult, WatchlistShareResult, error) {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		response, err := api.ShareWatchlist(ctx, &watchlistgrpc.ShareRequest{
			WatchlistID: input.WatchlistID,
			UserID:      input.UserID,
			CanEdit:     input.CanEdit,
		})
		if err != nil {
			return nil, WatchlistShareResult{}, fmt.Errorf("share watchlist failed: %w", err)
		}
		return nil, WatchlistShareResult{
			WatchlistID: response.Share.WatchlistID,
			UserID:      response.Share.UserID,
			CanEdit:     response.Share.CanEdit,
		}, nil
	}
}

// WatchlistBookmarkResult describes a new bookmark.
type WatchlistBookmarkResult struct {
	BookmarkID  int64  `json:"bookmark_id"`
	WatchlistID int64  `json:"watchlist_id"`
	CreatedAt   string `json:"created_at" jsonschema:"RFC3339 timestamp"`
}

func WatchlistBookmarkTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "watchlist_bookmark",
		Description: "Bookmark a public watchlist",
	}
}

func WatchlistBookmarkHandler(api API) mcp.ToolHandlerFor[WatchlistIDInput, WatchlistBookmarkResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WatchlistIDInput) (*mcp.CallToolResult, WatchlistBookmarkResult, error) {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		response, err := api.BookmarkWatchlist(ctx, &watchlistgrpc.WatchlistIDRequest{WatchlistID: input.WatchlistID})
		if err != nil {
			return nil, WatchlistBookmarkResult{}, fmt.Errorf("bookmark watchlist failed: %w", err)
		}
		return nil, WatchlistBookmarkResult{
			BookmarkID:  response.Bookmark.ID,
			WatchlistID: response.Bookmark.WatchlistID,
			CreatedAt:   response.Bookmark.CreatedAt.UTC().Format(time.RFC3339),
		}, nil
	}
}
