package watchlistmcp

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/equitalks/equitalks/internal/platform/requestctx"
	watchlistgrpc "github.com/equitalks/equitalks/internal/services/watchlist/api/grpc/watchlist"
	"github.com/equitalks/equitalks/internal/services/watchlist/service"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage/sqlite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	mcpUser   = "0b9c2f4e-1f4c-4d0a-9a57-1d3e8f6a2c01"
	otherUser = "7f3d2a10-5b6e-4c8f-8e21-93a4b5c6d702"
)

// startWatchlistServer serves a sqlite-backed watchlist service with health
// checks on a loopback port.
func startWatchlistServer(t *testing.T) string {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "watchlist.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := grpc.NewServer(grpc.UnaryInterceptor(requestctx.UnaryServerInterceptor()))
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	watchlistgrpc.RegisterWatchlistServiceServer(server, watchlistgrpc.NewService(service.New(store)))
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)
	return listener.Addr().String()
}

func directClient(t *testing.T, addr, userID string) *watchlistgrpc.Client {
	t.Helper()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return watchlistgrpc.NewClient(conn, userID)
}

// connectMCP runs the MCP server against addr over in-memory transports and
// returns a connected client session.
func connectMCP(t *testing.T, addr string) *mcp.ClientSession {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- runWithTransport(ctx, Config{GRPCAddr: addr, UserID: mcpUser}, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer connectCancel()
	session, err := client.Connect(connectCtx, clientTransport, nil)
	if err != nil {
		cancel()
		t.Fatalf("connect client: %v", err)
	}
	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		select {
		case err := <-serveErr:
			if err != nil {
				t.Errorf("run returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("run did not stop after cancel")
		}
	})
	return session
}

func callTool[T any](t *testing.T, session *mcp.ClientSession, name string, args map[string]any) T {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if result == nil || result.IsError {
		t.Fatalf("%s failed: %+v", name, result)
	}
	return decodeStructuredContent[T](t, result.StructuredContent)
}

func decodeStructuredContent[T any](t *testing.T, content any) T {
	t.Helper()

	var out T
	data, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal structured content: %v", err)
	}
	return out
}

func toolError(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if result == nil || !result.IsError {
		t.Fatalf("%s succeeded, want tool error: %+v", name, result)
	}
	var text strings.Builder
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			text.WriteString(tc.Text)
		}
	}
	return text.String()
}

func TestToolsListsEveryWatchlistTool(t *testing.T) {
	session := connectMCP(t, startWatchlistServer(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	got := map[string]bool{}
	for _, tool := range tools.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{
		"watchlist_create", "watchlist_list", "watchlist_get", "watchlist_item_add",
		"watchlist_search", "watchlist_trending", "watchlist_fork", "watchlist_pull",
		"watchlist_lineage", "watchlist_share", "watchlist_bookmark",
	} {
		if !got[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestForkAndPullThroughTools(t *testing.T) {
	addr := startWatchlistServer(t)
	session := connectMCP(t, addr)
	other := directClient(t, addr, otherUser)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	created, err := other.CreateWatchlist(ctx, &watchlistgrpc.CreateWatchlistRequest{Name: "Dividend Kings", Visibility: "public"})
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	sourceID := created.Watchlist.ID
	if _, err := other.AddItems(ctx, &watchlistgrpc.AddItemsRequest{
		WatchlistID: sourceID,
		Items:       []watchlistgrpc.ItemInput{{Symbol: "KO", Exchange: "NYSE"}},
	}); err != nil {
		t.Fatalf("add source item: %v", err)
	}

	search := callTool[WatchlistSearchResult](t, session, "watchlist_search", map[string]any{"query": "dividend"})
	if len(search.Results) != 1 || search.Results[0].Watchlist.ID != sourceID {
		t.Fatalf("search = %+v", search)
	}

	fork := callTool[WatchlistForkResult](t, session, "watchlist_fork", map[string]any{"source_id": sourceID})
	if fork.Watchlist.Name != "Dividend Kings (forked)" || fork.Watchlist.OwnerID != mcpUser {
		t.Fatalf("fork = %+v", fork)
	}
	if fork.SourceID != sourceID || len(fork.Items) != 1 || fork.Items[0].Symbol != "KO" {
		t.Fatalf("fork = %+v", fork)
	}

	if _, err := other.AddItems(ctx, &watchlistgrpc.AddItemsRequest{
		WatchlistID: sourceID,
		Items:       []watchlistgrpc.ItemInput{{Symbol: "PEP", Exchange: "NASDAQ"}},
	}); err != nil {
		t.Fatalf("add second source item: %v", err)
	}
	pull := callTool[WatchlistPullResult](t, session, "watchlist_pull", map[string]any{"watchlist_id": fork.Watchlist.ID})
	if pull.RemovedItems != 1 || len(pull.Items) != 2 {
		t.Fatalf("pull = %+v", pull)
	}

	lineage := callTool[WatchlistLineageResult](t, session, "watchlist_lineage", map[string]any{"watchlist_id": fork.Watchlist.ID})
	if lineage.Depth != 1 || lineage.Chain[0].WatchlistID != sourceID || lineage.Chain[0].OwnerID != otherUser {
		t.Fatalf("lineage = %+v", lineage)
	}

	bookmark := callTool[WatchlistBookmarkResult](t, session, "watchlist_bookmark", map[string]any{"watchlist_id": sourceID})
	if bookmark.WatchlistID != sourceID || bookmark.CreatedAt == "" {
		t.Fatalf("bookmark = %+v", bookmark)
	}

	trending := callTool[WatchlistTrendingResult](t, session, "watchlist_trending", map[string]any{})
	if len(trending.Watchlists) != 1 || trending.Watchlists[0].Watchlist.ForkCount != 1 {
		t.Fatalf("trending = %+v", trending)
	}

	msg := toolError(t, session, "watchlist_fork", map[string]any{"source_id": sourceID})
	if !strings.Contains(msg, "fork watchlist failed") {
		t.Fatalf("second default-named fork error = %q", msg)
	}
}

func TestOwnWatchlistTools(t *testing.T) {
	addr := startWatchlistServer(t)
	session := connectMCP(t, addr)

	created := callTool[WatchlistResult](t, session, "watchlist_create", map[string]any{
		"name":       "Core",
		"is_default": true,
	})
	if !created.Watchlist.IsDefault || created.Watchlist.Visibility != "private" {
		t.Fatalf("created = %+v", created)
	}

	added := callTool[ItemAddResult](t, session, "watchlist_item_add", map[string]any{
		"watchlist_id": created.Watchlist.ID,
		"items": []map[string]any{
			{"symbol": "vti", "exchange": "nyse", "percentage": "60"},
			{"symbol": "bnd", "exchange": "nasdaq", "quantity": "12.5"},
		},
	})
	if len(added.Items) != 2 || added.Items[0].Symbol != "VTI" || added.Items[0].Percentage != "60" {
		t.Fatalf("added = %+v", added)
	}
	if added.Items[1].Quantity != "12.5" {
		t.Fatalf("quantity = %q", added.Items[1].Quantity)
	}

	msg := toolError(t, session, "watchlist_item_add", map[string]any{
		"watchlist_id": created.Watchlist.ID,
		"items":        []map[string]any{{"symbol": "VTI", "exchange": "NYSE"}},
	})
	if !strings.Contains(msg, "VTI") {
		t.Fatalf("duplicate error = %q", msg)
	}

	got := callTool[WatchlistDetailResult](t, session, "watchlist_get", map[string]any{"watchlist_id": created.Watchlist.ID})
	if len(got.Items) != 2 {
		t.Fatalf("get = %+v", got)
	}

	shared := callTool[WatchlistShareResult](t, session, "watchlist_share", map[string]any{
		"watchlist_id": created.Watchlist.ID,
		"user_id":      otherUser,
		"can_edit":     true,
	})
	if !shared.CanEdit || shared.UserID != otherUser {
		t.Fatalf("share = %+v", shared)
	}

	listed := callTool[WatchlistListResult](t, session, "watchlist_list", map[string]any{"filter": "is_default = true"})
	if len(listed.Watchlists) != 1 || listed.Watchlists[0].ID != created.Watchlist.ID {
		t.Fatalf("list = %+v", listed)
	}
}

func TestRunRejectsBadUser(t *testing.T) {
	err := runWithTransport(context.Background(), Config{GRPCAddr: "127.0.0.1:1", UserID: "nope"}, &mcp.StdioTransport{})
	if err == nil || !strings.Contains(err.Error(), "mcp user") {
		t.Fatalf("err = %v, want mcp user error", err)
	}
}
