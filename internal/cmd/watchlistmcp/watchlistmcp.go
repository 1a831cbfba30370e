// Package watchlistmcp parses MCP command flags and runs the stdio server.
package watchlistmcp

import (
	"context"
	"flag"

	entrypoint "github.com/equitalks/equitalks/internal/platform/cmd"
	"github.com/equitalks/equitalks/internal/services/watchlistmcp"
)

// Config holds MCP command configuration.
type Config struct {
	Addr   string `env:"EQUITALKS_WATCHLIST_ADDR" envDefault:"localhost:8095"`
	UserID string `env:"EQUITALKS_MCP_USER_ID"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "watchlist server address")
	fs.StringVar(&cfg.UserID, "user", cfg.UserID, "user id every tool call acts as")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP adapter over stdio.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWatchlistMCP, func(ctx context.Context) error {
		return watchlistmcp.Run(ctx, watchlistmcp.Config{GRPCAddr: cfg.Addr, UserID: cfg.UserID})
	})
}
