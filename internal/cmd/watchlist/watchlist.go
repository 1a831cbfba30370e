// Package watchlist parses watchlist service flags and launches the service.
package watchlist

import (
	"context"
	"flag"

	entrypoint "github.com/equitalks/equitalks/internal/platform/cmd"
	server "github.com/equitalks/equitalks/internal/services/watchlist/app"
)

// Config holds watchlist command configuration. Storage settings are read
// by the server from EQUITALKS_WATCHLIST_DB_* variables.
type Config struct {
	Port int `env:"EQUITALKS_WATCHLIST_PORT" envDefault:"8095"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The watchlist gRPC server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the watchlist gRPC API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWatchlist, func(ctx context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
