// Package service implements the watchlist operations exposed to transports.
//
// Every operation runs in one storage transaction: permission checks, business
// checks, writes and derived-state updates commit together or not at all.
package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/equitalks/equitalks/internal/platform/errors"
	"github.com/equitalks/equitalks/internal/services/watchlist/bookmark"
	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/lineage"
	"github.com/equitalks/equitalks/internal/services/watchlist/share"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName names the tracer used for service spans.
	TracerName = "equitalks/watchlist"

	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Service orchestrates the watchlist stores and managers.
type Service struct {
	store     storage.Store
	shares    *share.Manager
	bookmarks *bookmark.Manager
	lineage   *lineage.Manager
	now       func() time.Time
	tracer    trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for every timestamp the service writes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(s *Service) {
		if provider != nil {
			s.tracer = provider.Tracer(TracerName)
		}
	}
}

// New builds a service over store.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		tracer: otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	clock := func() time.Time { return s.now().UTC() }
	s.shares = share.NewManager(clock)
	s.bookmarks = bookmark.NewManager(clock)
	s.lineage = lineage.NewManager(clock)
	return s
}

// Page bounds a list operation. A zero Limit uses DefaultPageSize.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// run executes fn in one transaction inside a span named after op.
func (s *Service) run(ctx context.Context, op string, callerID string, watchlistID int64, fn func(ctx context.Context, tx storage.Tx) error) error {
	attrs := []attribute.KeyValue{attribute.String("watchlist.operation", op)}
	if callerID != "" {
		attrs = append(attrs, attribute.String("watchlist.caller_id", callerID))
	}
	if watchlistID != 0 {
		attrs = append(attrs, attribute.Int64("watchlist.id", watchlistID))
	}
	ctx, span := s.tracer.Start(ctx, "watchlist."+op, trace.WithAttributes(attrs...))
	defer span.End()

	err := translate(s.store.RunInTx(ctx, fn))
	if err != nil {
		span.RecordError(err)
		if apperrors.KindOf(err) == apperrors.KindInternal {
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("watchlist.error_code", string(apperrors.CodeOf(err))))
	}
	return err
}

// translate keeps domain errors and hides everything else behind INTERNAL.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Wrap(apperrors.CodeInternal, "watchlist storage failure", err)
}

// requireCaller canonicalizes an authenticated caller id.
func requireCaller(callerID string) (string, error) {
	return domain.NormalizeUserID(callerID)
}

// optionalCaller canonicalizes a caller id that may be anonymous.
func optionalCaller(callerID string) (string, error) {
	if strings.TrimSpace(callerID) == "" {
		return "", nil
	}
	return domain.NormalizeUserID(callerID)
}

func itemNotFound(itemID int64) error {
	return apperrors.WithMetadata(apperrors.CodeItemNotFound, "item not found",
		map[string]string{"item_id": strconv.FormatInt(itemID, 10)})
}

func nameTaken(name string) error {
	return apperrors.WithMetadata(apperrors.CodeWatchlistNameTaken,
		"you already have a watchlist with this name", map[string]string{"name": name})
}
