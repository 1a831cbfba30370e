// Package server wires the watchlist runtime and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/equitalks/equitalks/internal/platform/config"
	"github.com/equitalks/equitalks/internal/platform/requestctx"
	"github.com/equitalks/equitalks/internal/platform/timeouts"
	watchlistgrpc "github.com/equitalks/equitalks/internal/services/watchlist/api/grpc/watchlist"
	"github.com/equitalks/equitalks/internal/services/watchlist/service"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage/postgres"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type serverEnv struct {
	Backend     string `env:"EQUITALKS_WATCHLIST_DB_BACKEND" envDefault:"sqlite"`
	DBPath      string `env:"EQUITALKS_WATCHLIST_DB_PATH"`
	PostgresDSN string `env:"EQUITALKS_WATCHLIST_POSTGRES_DSN"`
}

func loadServerEnv() (serverEnv, error) {
	var cfg serverEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "watchlist.db")
	}
	return cfg, nil
}

// Server hosts the watchlist gRPC API and storage lifecycle.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      storage.Store
}

// New creates a configured watchlist server listening on the provided port.
func New(ctx context.Context, port int) (*Server, error) {
	return NewWithAddr(ctx, fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured watchlist server for the provided address.
func NewWithAddr(ctx context.Context, addr string) (*Server, error) {
	env, err := loadServerEnv()
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	store, err := OpenStore(ctx, env.Backend, env.DBPath, env.PostgresDSN)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(requestctx.UnaryServerInterceptor()),
	)
	healthServer := health.NewServer()
	watchlistgrpc.RegisterWatchlistServiceServer(grpcServer, watchlistgrpc.NewService(service.New(store)))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(watchlistgrpc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a watchlist server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(ctx, port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("watchlist server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		stopped := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(timeouts.Shutdown):
			log.Printf("graceful stop timed out after %v, forcing", timeouts.Shutdown)
			s.grpcServer.Stop()
		}
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Close releases watchlist server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close watchlist store: %v", err)
		}
		s.store = nil
	}
}

// OpenStore opens the configured storage backend. SQLite creates the parent
// directory of path when missing.
func OpenStore(ctx context.Context, backend, path, dsn string) (storage.Store, error) {
	switch backend {
	case "", BackendSQLite:
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open watchlist sqlite store: %w", err)
		}
		return store, nil
	case BackendPostgres:
		if strings.TrimSpace(dsn) == "" {
			return nil, errors.New("postgres backend requires EQUITALKS_WATCHLIST_POSTGRES_DSN")
		}
		store, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("open watchlist postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
