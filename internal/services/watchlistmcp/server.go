// Package watchlistmcp exposes watchlist operations as MCP tools. Every tool
// call acts as one configured user against a watchlist gRPC server.
package watchlistmcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	platformgrpc "github.com/equitalks/equitalks/internal/platform/grpc"
	"github.com/equitalks/equitalks/internal/platform/timeouts"
	watchlistgrpc "github.com/equitalks/equitalks/internal/services/watchlist/api/grpc/watchlist"
	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/grpc"
)

const (
	serverName    = "equitalks-watchlist"
	serverVersion = "0.1.0"
)

// Config configures the MCP server.
type Config struct {
	GRPCAddr string
	UserID   string
}

// NewServer builds an MCP server with every watchlist tool bound to api.
func NewServer(api API) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(server, WatchlistCreateTool(), WatchlistCreateHandler(api))
	mcp.AddTool(server, WatchlistListTool(), WatchlistListHandler(api))
	mcp.AddTool(server, WatchlistGetTool(), WatchlistGetHandler(api))
	mcp.AddTool(server, WatchlistItemAddTool(), WatchlistItemAddHandler(api))
	mcp.AddTool(server, WatchlistSearchTool(), WatchlistSearchHandler(api))
	mcp.AddTool(server, WatchlistTrendingTool(), WatchlistTrendingHandler(api))
	mcp.AddTool(server, WatchlistForkTool(), WatchlistForkHandler(api))
	mcp.AddTool(server, WatchlistPullTool(), WatchlistPullHandler(api))
	mcp.AddTool(server, WatchlistLineageTool(), WatchlistLineageHandler(api))
	mcp.AddTool(server, WatchlistShareTool(), WatchlistShareHandler(api))
	mcp.AddTool(server, WatchlistBookmarkTool(), WatchlistBookmarkHandler(api))
	return server
}

// Run serves MCP over stdio until ctx is canceled.
func Run(ctx context.Context, cfg Config) error {
	return runWithTransport(ctx, cfg, &mcp.StdioTransport{})
}

func runWithTransport(ctx context.Context, cfg Config, transport mcp.Transport) error {
	if ctx == nil {
		ctx = context.Background()
	}
	userID, err := domain.NormalizeUserID(cfg.UserID)
	if err != nil {
		return fmt.Errorf("mcp user: %w", err)
	}
	conn, err := dialWatchlist(ctx, cfg.GRPCAddr)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			log.Printf("close watchlist connection: %v", closeErr)
		}
	}()

	server := NewServer(watchlistgrpc.NewClient(conn, userID))
	err = server.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

func dialWatchlist(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("watchlist gRPC address is required")
	}
	logf := func(format string, args ...any) {
		log.Printf("watchlist %s", fmt.Sprintf(format, args...))
	}
	conn, err := platformgrpc.DialWithHealth(ctx, addr, timeouts.GRPCDial, logf)
	if err != nil {
		return nil, fmt.Errorf("connect to watchlist server at %s: %w", addr, err)
	}
	return conn, nil
}
