package watchlistseed

import (
	"context"
	"fmt"
	"io"
	"strings"

	watchlistgrpc "github.com/equitalks/equitalks/internal/services/watchlist/api/grpc/watchlist"
	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/shopspring/decimal"
)

// Summary counts what a fixture run created.
type Summary struct {
	Watchlists int
	Items      int
	Shares     int
	Forks      int
	Bookmarks  int
}

// Runner replays fixtures through a watchlist client.
type Runner struct {
	client  *watchlistgrpc.Client
	out     io.Writer
	verbose bool
}

// NewRunner returns a runner that acts as each fixture user in turn through
// client.
func NewRunner(client *watchlistgrpc.Client, out io.Writer, verbose bool) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{client: client, out: out, verbose: verbose}
}

func (r *Runner) logf(format string, args ...any) {
	if r.verbose {
		fmt.Fprintf(r.out, format+"\n", args...)
	}
}

// Apply creates everything in fixture, in section order. It stops at the
// first failure; rows created before it stay.
func (r *Runner) Apply(ctx context.Context, fixture Fixture) (Summary, error) {
	var summary Summary
	ids := map[string]int64{}
	key := func(owner, name string) string {
		return owner + "/" + domain.NameKey(name)
	}
	lookup := func(owner, name string) (int64, error) {
		id, ok := ids[key(owner, name)]
		if !ok {
			return 0, fmt.Errorf("watchlist %s/%q is not defined earlier in the fixture", owner, name)
		}
		return id, nil
	}

	for _, w := range fixture.Watchlists {
		client := r.client.As(fixture.Users[w.Owner])
		created, err := client.CreateWatchlist(ctx, &watchlistgrpc.CreateWatchlistRequest{
			Name:        w.Name,
			Description: w.Description,
			Visibility:  w.Visibility,
			IsDefault:   w.Default,
		})
		if err != nil {
			return summary, fmt.Errorf("create watchlist %s/%q: %w", w.Owner, w.Name, err)
		}
		ids[key(w.Owner, w.Name)] = created.Watchlist.ID
		summary.Watchlists++
		r.logf("created watchlist %d %s/%s", created.Watchlist.ID, w.Owner, created.Watchlist.Name)

		if len(w.Items) == 0 {
			continue
		}
		items, err := itemInputs(w.Items)
		if err != nil {
			return summary, fmt.Errorf("watchlist %s/%q: %w", w.Owner, w.Name, err)
		}
		added, err := client.AddItems(ctx, &watchlistgrpc.AddItemsRequest{WatchlistID: created.Watchlist.ID, Items: items})
		if err != nil {
			return summary, fmt.Errorf("add items to %s/%q: %w", w.Owner, w.Name, err)
		}
		summary.Items += len(added.Items)
	}

	for _, s := range fixture.Shares {
		id, err := lookup(s.Owner, s.Watchlist)
		if err != nil {
			return summary, err
		}
		if _, err := r.client.As(fixture.Users[s.Owner]).ShareWatchlist(ctx, &watchlistgrpc.ShareRequest{
			WatchlistID: id,
			UserID:      fixture.Users[s.User],
			CanEdit:     s.CanEdit,
		}); err != nil {
			return summary, fmt.Errorf("share %s/%q with %s: %w", s.Owner, s.Watchlist, s.User, err)
		}
		summary.Shares++
		r.logf("shared %s/%s with %s (edit=%t)", s.Owner, s.Watchlist, s.User, s.CanEdit)
	}

	for _, f := range fixture.Forks {
		sourceID, err := lookup(f.Owner, f.Source)
		if err != nil {
			return summary, err
		}
		client := r.client.As(fixture.Users[f.User])
		request := &watchlistgrpc.ForkWatchlistRequest{SourceID: sourceID}
		if name := strings.TrimSpace(f.Name); name != "" {
			request.Name = &name
		}
		if visibility := strings.TrimSpace(f.Visibility); visibility != "" {
			request.Visibility = &visibility
		}
		forked, err := client.ForkWatchlist(ctx, request)
		if err != nil {
			return summary, fmt.Errorf("fork %s/%q for %s: %w", f.Owner, f.Source, f.User, err)
		}
		fork := forked.Fork.Watchlist
		ids[key(f.User, fork.Name)] = fork.ID
		summary.Forks++
		r.logf("forked %s/%s into %d %s/%s", f.Owner, f.Source, fork.ID, f.User, fork.Name)

		if f.Pull {
			if _, err := client.PullWatchlist(ctx, &watchlistgrpc.WatchlistIDRequest{WatchlistID: fork.ID}); err != nil {
				return summary, fmt.Errorf("pull %s/%q: %w", f.User, fork.Name, err)
			}
		}
	}

	for _, b := range fixture.Bookmarks {
		id, err := lookup(b.Owner, b.Watchlist)
		if err != nil {
			return summary, err
		}
		if _, err := r.client.As(fixture.Users[b.User]).BookmarkWatchlist(ctx, &watchlistgrpc.WatchlistIDRequest{WatchlistID: id}); err != nil {
			return summary, fmt.Errorf("bookmark %s/%q for %s: %w", b.Owner, b.Watchlist, b.User, err)
		}
		summary.Bookmarks++
	}
	return summary, nil
}

func itemInputs(items []ItemFixture) ([]watchlistgrpc.ItemInput, error) {
	out := make([]watchlistgrpc.ItemInput, 0, len(items))
	for _, item := range items {
		percentage, err := nullDecimal(item.Percentage)
		if err != nil {
			return nil, fmt.Errorf("item %s percentage: %w", item.Symbol, err)
		}
		quantity, err := nullDecimal(item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("item %s quantity: %w", item.Symbol, err)
		}
		out = append(out, watchlistgrpc.ItemInput{
			Symbol:     item.Symbol,
			Exchange:   item.Exchange,
			Note:       item.Note,
			Position:   item.Position,
			Percentage: percentage,
			Quantity:   quantity,
		})
	}
	return out, nil
}

func nullDecimal(value string) (decimal.NullDecimal, error) {
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
