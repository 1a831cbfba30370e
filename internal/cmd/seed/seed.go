// Package seed parses seed command flags and replays watchlist fixtures.
package seed

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	entrypoint "github.com/equitalks/equitalks/internal/platform/cmd"
	platformgrpc "github.com/equitalks/equitalks/internal/platform/grpc"
	"github.com/equitalks/equitalks/internal/platform/timeouts"
	watchlistgrpc "github.com/equitalks/equitalks/internal/services/watchlist/api/grpc/watchlist"
	"github.com/equitalks/equitalks/internal/tools/watchlistseed"
)

const defaultAddr = "localhost:8095"

// Config holds seed command configuration.
type Config struct {
	Addr    string
	Fixture string
	File    string
	List    bool
	Verbose bool
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	cfg := Config{
		Addr:    envOrDefault(lookup, "EQUITALKS_WATCHLIST_ADDR", defaultAddr),
		Fixture: "demo",
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "watchlist server address")
	fs.StringVar(&cfg.Fixture, "fixture", cfg.Fixture, "built-in fixture to apply")
	fs.StringVar(&cfg.File, "file", "", "YAML fixture file to apply instead of a built-in fixture")
	fs.BoolVar(&cfg.List, "list", false, "list built-in fixtures")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	if cfg.List {
		names, err := watchlistseed.ListBuiltin()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Available fixtures:")
		for _, name := range names {
			fmt.Fprintf(out, "  %s\n", name)
		}
		return nil
	}

	fixture, err := loadFixture(cfg)
	if err != nil {
		return err
	}

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context) error {
		conn, err := platformgrpc.DialWithHealth(ctx, cfg.Addr, timeouts.GRPCDial, log.Printf)
		if err != nil {
			return fmt.Errorf("connect to watchlist server at %s: %w", cfg.Addr, err)
		}
		defer conn.Close()

		runner := watchlistseed.NewRunner(watchlistgrpc.NewClient(conn, ""), out, cfg.Verbose)
		summary, err := runner.Apply(ctx, fixture)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "seeded %s: %d watchlists, %d items, %d shares, %d forks, %d bookmarks\n",
			fixture.Name, summary.Watchlists, summary.Items, summary.Shares, summary.Forks, summary.Bookmarks)
		return nil
	})
}

func loadFixture(cfg Config) (watchlistseed.Fixture, error) {
	if path := strings.TrimSpace(cfg.File); path != "" {
		return watchlistseed.LoadFile(path)
	}
	name := strings.TrimSpace(cfg.Fixture)
	if name == "" {
		return watchlistseed.Fixture{}, errors.New("a fixture name or file is required")
	}
	return watchlistseed.LoadBuiltin(name)
}

func envOrDefault(lookup EnvLookup, key, fallback string) string {
	if lookup == nil {
		return fallback
	}
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}
