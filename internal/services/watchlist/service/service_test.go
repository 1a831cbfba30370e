package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/equitalks/equitalks/internal/platform/errors"
	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/lineage"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage/sqlite"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	userA = "0b9c2f4e-1f4c-4d0a-9a57-1d3e8f6a2c01"
	userB = "7f3d2a10-5b6e-4c8f-8e21-93a4b5c6d702"
	userC = "c2a4e6f8-0a1b-4c3d-8e5f-6a7b8c9d0e03"
)

// testClock ticks one second per reading so ordering by time is stable.
type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Second)
	return c.current
}

func newService(t *testing.T) (*Service, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "watchlist.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	clock := &testClock{current: time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)}
	return New(store, WithClock(clock.now)), store
}

func mustCreate(t *testing.T, svc *Service, caller string, input CreateInput) domain.Watchlist {
	t.Helper()

	w, err := svc.Create(context.Background(), caller, input)
	if err != nil {
		t.Fatalf("create %q: %v", input.Name, err)
	}
	return w
}

func item(symbol, exchange string) domain.Item {
	return domain.Item{Symbol: symbol, Exchange: exchange}
}

func symbols(items []domain.Item) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, it.Symbol+":"+it.Exchange)
	}
	return strings.Join(parts, ",")
}

func assertCode(t *testing.T, err error, want apperrors.Code) {
	t.Helper()

	if got := apperrors.CodeOf(err); got != want {
		t.Fatalf("error code = %q, want %q (err %v)", got, want, err)
	}
}

func TestForkPullScenario(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()

	src := mustCreate(t, svc, userA, CreateInput{Name: "Tech Picks", Visibility: "public"})
	if _, err := svc.AddItems(ctx, userA, src.ID, []domain.Item{item("aapl", "nasdaq"), item("MSFT", "NASDAQ")}); err != nil {
		t.Fatalf("add items: %v", err)
	}

	fork, err := svc.Fork(ctx, userB, src.ID)
	if err != nil {
		t.Fatalf("fork: %v", err)
	}
	if fork.Watchlist.Name != "Tech Picks (forked)" || fork.Watchlist.Visibility != domain.VisibilityPrivate {
		t.Fatalf("fork = %+v", fork.Watchlist)
	}
	if got := symbols(fork.Items); got != "AAPL:NASDAQ,MSFT:NASDAQ" {
		t.Fatalf("fork items = %s", got)
	}
	source, err := svc.Get(ctx, userB, src.ID)
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if source.Watchlist.ForkCount != 1 {
		t.Fatalf("fork count = %d, want 1", source.Watchlist.ForkCount)
	}

	if _, err := svc.AddItem(ctx, userA, src.ID, item("GOOG", "NASDAQ")); err != nil {
		t.Fatalf("add GOOG: %v", err)
	}
	pulled, err := svc.Pull(ctx, userB, fork.Watchlist.ID)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if got := symbols(pulled.Items); got != "AAPL:NASDAQ,MSFT:NASDAQ,GOOG:NASDAQ" {
		t.Fatalf("pulled items = %s", got)
	}
	items, err := svc.ListItems(ctx, userB, fork.Watchlist.ID)
	if err != nil {
		t.Fatalf("list fork items: %v", err)
	}
	if symbols(items) != symbols(pulled.Items) {
		t.Fatalf("fork items = %s", symbols(items))
	}

	_, err = svc.Fork(ctx, userA, src.ID)
	assertCode(t, err, apperrors.CodeForkOwnWatchlist)
	if apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Fatalf("kind = %s, want forbidden", apperrors.KindOf(err))
	}

	chain, err := svc.Lineage(ctx, userB, fork.Watchlist.ID)
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if len(chain.Chain) != 2 || chain.Chain[0].Watchlist.ID != src.ID {
		t.Fatalf("lineage = %+v", chain)
	}
	forks, err := svc.ListForks(ctx, userB, src.ID, Page{})
	if err != nil {
		t.Fatalf("list forks: %v", err)
	}
	if len(forks) != 1 || forks[0].ID != fork.Watchlist.ID {
		t.Fatalf("forks = %+v", forks)
	}
}

func TestForkCustomVisibilityLabel(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	src := mustCreate(t, svc, userA, CreateInput{Name: "Growth", Visibility: "public"})

	label := domain.Visibility("PUBLIC")
	out, err := svc.ForkCustom(context.Background(), userB, src.ID, lineage.ForkOptions{Visibility: &label})
	if err != nil {
		t.Fatalf("fork custom: %v", err)
	}
	if !out.Watchlist.IsPublic() {
		t.Fatalf("visibility = %s", out.Watchlist.Visibility)
	}
	bad := domain.Visibility("friends")
	_, err = svc.ForkCustom(context.Background(), userB, src.ID, lineage.ForkOptions{Visibility: &bad})
	assertCode(t, err, apperrors.CodeWatchlistInvalidVisibility)
}

func TestShareEditScenario(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()
	w := mustCreate(t, svc, userA, CreateInput{Name: "Team", Visibility: "shared"})

	if _, err := svc.Share(ctx, userA, w.ID, userC, false); err != nil {
		t.Fatalf("share: %v", err)
	}
	_, err := svc.AddItem(ctx, userC, w.ID, item("NVDA", "NASDAQ"))
	assertCode(t, err, apperrors.CodeWatchlistNotEditable)
	if apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Fatalf("kind = %s", apperrors.KindOf(err))
	}

	if _, err := svc.UpdateShare(ctx, userA, w.ID, userC, true); err != nil {
		t.Fatalf("update share: %v", err)
	}
	if _, err := svc.AddItem(ctx, userC, w.ID, item("NVDA", "NASDAQ")); err != nil {
		t.Fatalf("add as editor: %v", err)
	}

	// Editors still cannot manage the watchlist itself.
	name := "Renamed"
	_, err = svc.Update(ctx, userC, w.ID, UpdateInput{Name: &name})
	assertCode(t, err, apperrors.CodeWatchlistNotOwner)
	assertCode(t, svc.Delete(ctx, userC, w.ID), apperrors.CodeWatchlistNotOwner)
	_, err = svc.Share(ctx, userC, w.ID, userB, false)
	assertCode(t, err, apperrors.CodeWatchlistNotOwner)

	// Strangers see nothing.
	_, err = svc.Get(ctx, userB, w.ID)
	assertCode(t, err, apperrors.CodeWatchlistNotFound)
	_, err = svc.AddItem(ctx, userB, w.ID, item("AMD", "NASDAQ"))
	assertCode(t, err, apperrors.CodeWatchlistNotFound)

	shares, err := svc.ListShares(ctx, userA, w.ID)
	if err != nil || len(shares) != 1 || !shares[0].CanEdit {
		t.Fatalf("shares = %+v, err %v", shares, err)
	}
	if err := svc.RevokeShare(ctx, userA, w.ID, userC); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	_, err = svc.ListItems(ctx, userC, w.ID)
	assertCode(t, err, apperrors.CodeWatchlistNotFound)
	assertCode(t, svc.RevokeShare(ctx, userA, w.ID, userC), apperrors.CodeShareNotFound)
}

func TestNameUniqueness(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()
	mustCreate(t, svc, userA, CreateInput{Name: "Tech Picks"})

	_, err := svc.Create(ctx, userA, CreateInput{Name: "  tech PICKS "})
	assertCode(t, err, apperrors.CodeWatchlistNameTaken)
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Fatalf("kind = %s", apperrors.KindOf(err))
	}

	other := mustCreate(t, svc, userA, CreateInput{Name: "Other"})
	name := "TECH picks"
	_, err = svc.Update(ctx, userA, other.ID, UpdateInput{Name: &name})
	assertCode(t, err, apperrors.CodeWatchlistNameTaken)

	mustCreate(t, svc, userB, CreateInput{Name: "Tech Picks"})
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()
	tests := []struct {
		name   string
		caller string
		input  CreateInput
		want   apperrors.Code
	}{
		{"missing caller", "", CreateInput{Name: "x"}, apperrors.CodeCallerMissing},
		{"malformed caller", "abc", CreateInput{Name: "x"}, apperrors.CodeInvalidUserID},
		{"blank name", userA, CreateInput{Name: "   "}, apperrors.CodeWatchlistInvalidName},
		{"long name", userA, CreateInput{Name: strings.Repeat("n", 101)}, apperrors.CodeWatchlistInvalidName},
		{"long description", userA, CreateInput{Name: "ok", Description: strings.Repeat("d", 501)}, apperrors.CodeWatchlistInvalidDescription},
		{"bad visibility", userA, CreateInput{Name: "ok", Visibility: "friends"}, apperrors.CodeWatchlistInvalidVisibility},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.caller, tt.input)
			assertCode(t, err, tt.want)
		})
	}

	w := mustCreate(t, svc, userA, CreateInput{Name: strings.Repeat("é", 100)})
	if w.Visibility != domain.VisibilityPrivate || w.OriginalAuthorID != userA {
		t.Fatalf("created = %+v", w)
	}
}

func TestDefaultMovesBetweenWatchlists(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	ctx := context.Background()
	first := mustCreate(t, svc, userA, CreateInput{Name: "First", IsDefault: true})
	second := mustCreate(t, svc, userA, CreateInput{Name: "Second", IsDefault: true})

	def, err := svc.GetDefault(ctx, userA)
	if err != nil || def.Watchlist.ID != second.ID {
		t.Fatalf("default = %+v, err %v", def.Watchlist, err)
	}

	yes := true
	if _, err := svc.Update(ctx, userA, first.ID, UpdateInput{IsDefault: &yes}); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, err := svc.ListByOwner(ctx, userA, OwnerListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || !list[0].IsDefault || list[1].IsDefault {
		t.Fatalf("list = %+v", list)
	}

	_, err = svc.GetDefault(ctx, userB)
	assertCode(t, err, apperrors.CodeWatchlistNotFound)

	var ids []int64
	for i := range 5 {
		ids = append(ids, mustCreate(t, svc, userC, CreateInput{Name: fmt.Sprintf("List %d", i)}).ID)
	}
	var group errgroup.Group
	for _, id := range ids {
		group.Go(func() error {
			_, err := svc.Update(ctx, userC, id, UpdateInput{IsDefault: &yes})
			return err
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("concurrent defaults: %v", err)
	}
	err = store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		owned, err := tx.ListWatchlistsByOwner(ctx, userC, storage.OwnerQuery{Limit: 10})
		if err != nil {
			return err
		}
		defaults := 0
		for _, w := range owned {
			if w.IsDefault {
				defaults++
			}
		}
		if defaults != 1 {
			t.Fatalf("defaults = %d, want 1", defaults)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("count defaults: %v", err)
	}
}

func TestBulkAddIsAllOrNothing(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()
	w := mustCreate(t, svc, userA, CreateInput{Name: "Bulk"})
	if _, err := svc.AddItem(ctx, userA, w.ID, item("AAPL", "NASDAQ")); err != nil {
		t.Fatalf("seed item: %v", err)
	}

	_, err := svc.AddItem(ctx, userA, w.ID, item(" aapl ", "Nasdaq"))
	assertCode(t, err, apperrors.CodeItemDuplicate)

	_, err = svc.AddItems(ctx, userA, w.ID, []domain.Item{item("MSFT", "NASDAQ"), item("AAPL", "NASDAQ")})
	assertCode(t, err, apperrors.CodeItemDuplicate)
	_, err = svc.AddItems(ctx, userA, w.ID, []domain.Item{item("TSLA", "NASDAQ"), item("tsla", "NASDAQ")})
	assertCode(t, err, apperrors.CodeItemDuplicate)
	domainErr, _ := apperrors.As(err)
	if domainErr.Metadata["duplicates"] != "TSLA:NASDAQ" {
		t.Fatalf("metadata = %v", domainErr.Metadata)
	}
	_, err = svc.AddItems(ctx, userA, w.ID, nil)
	assertCode(t, err, apperrors.CodeItemBatchEmpty)
	_, err = svc.AddItems(ctx, userA, w.ID, []domain.Item{item("OK", "NYSE"), item("", "NYSE")})
	assertCode(t, err, apperrors.CodeItemInvalidSymbol)

	items, err := svc.ListItems(ctx, userA, w.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if got := symbols(items); got != "AAPL:NASDAQ" {
		t.Fatalf("items after rejected batches = %s", got)
	}

	// Same symbol on another exchange is a distinct item.
	if _, err := svc.AddItem(ctx, userA, w.ID, item("AAPL", "LSE")); err != nil {
		t.Fatalf("add other exchange: %v", err)
	}
}

func TestItemUpdateAndRemove(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()
	w := mustCreate(t, svc, userA, CreateInput{Name: "Edits"})
	other := mustCreate(t, svc, userA, CreateInput{Name: "Elsewhere"})
	created, err := svc.AddItems(ctx, userA, w.ID, []domain.Item{item("AAPL", "NASDAQ"), item("MSFT", "NASDAQ")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	position := int64(0)
	pct := decimal.RequireFromString("42.5")
	updated, err := svc.UpdateItem(ctx, userA, w.ID, created[1].ID, domain.ItemPatch{Position: &position, Percentage: &pct})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.Position == nil || *updated.Position != 0 || !updated.Percentage.Decimal.Equal(pct) {
		t.Fatalf("updated = %+v", updated)
	}
	items, _ := svc.ListItems(ctx, userA, w.ID)
	if got := symbols(items); got != "MSFT:NASDAQ,AAPL:NASDAQ" {
		t.Fatalf("order after position = %s", got)
	}

	symbol := "msft"
	_, err = svc.UpdateItem(ctx, userA, w.ID, created[0].ID, domain.ItemPatch{Symbol: &symbol})
	assertCode(t, err, apperrors.CodeItemDuplicate)

	tooMuch := decimal.NewFromInt(101)
	_, err = svc.UpdateItem(ctx, userA, w.ID, created[0].ID, domain.ItemPatch{Percentage: &tooMuch})
	assertCode(t, err, apperrors.CodeItemInvalidPercentage)

	_, err = svc.RemoveItem(ctx, userA, other.ID, created[0].ID)
	assertCode(t, err, apperrors.CodeItemNotFound)

	removed, err := svc.RemoveItem(ctx, userA, w.ID, created[0].ID)
	if err != nil || removed.Symbol != "AAPL" {
		t.Fatalf("removed = %+v, err %v", removed, err)
	}
	_, err = svc.RemoveItem(ctx, userA, w.ID, created[0].ID)
	assertCode(t, err, apperrors.CodeItemNotFound)
}

func TestVisibilityAndSearch(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()
	public := mustCreate(t, svc, userA, CreateInput{Name: "Semis 100%", Visibility: "public"})
	mustCreate(t, svc, userA, CreateInput{Name: "Semis secret"})
	newer := mustCreate(t, svc, userB, CreateInput{Name: "More SEMIS", Visibility: "public"})
	if _, err := svc.AddItem(ctx, userA, public.ID, item("TSM", "NYSE")); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := svc.Get(ctx, "", public.ID)
	if err != nil || got.Watchlist.ID != public.ID || len(got.Items) != 1 {
		t.Fatalf("anonymous get = %+v, err %v", got, err)
	}

	results, err := svc.SearchPublicByName(ctx, "semis", Page{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 || results[0].Watchlist.ID != newer.ID || results[1].Watchlist.ID != public.ID {
		t.Fatalf("search = %+v", results)
	}
	if len(results[0].Items) != 0 || symbols(results[1].Items) != "TSM:NYSE" {
		t.Fatalf("search items = %+v", results)
	}

	literal, err := svc.SearchPublicByName(ctx, "100%", Page{})
	if err != nil || len(literal) != 1 {
		t.Fatalf("wildcard search = %+v, err %v", literal, err)
	}

	_, err = svc.SearchPublicByName(ctx, "  ", Page{})
	assertCode(t, err, apperrors.CodeSearchQueryEmpty)

	byName, err := svc.GetPublicByOwnerAndName(ctx, userA, "  SEMIS 100% ")
	if err != nil || byName.Watchlist.ID != public.ID {
		t.Fatalf("by name = %+v, err %v", byName, err)
	}
	_, err = svc.GetPublicByOwnerAndName(ctx, userA, "semis secret")
	assertCode(t, err, apperrors.CodeWatchlistNotFound)
}

func TestListByOwnerFilter(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()
	mustCreate(t, svc, userA, CreateInput{Name: "Alpha", Visibility: "public"})
	mustCreate(t, svc, userA, CreateInput{Name: "Beta"})
	mustCreate(t, svc, userA, CreateInput{Name: "Alphabet", Visibility: "shared"})

	list, err := svc.ListByOwner(ctx, userA, OwnerListQuery{Filter: `visibility = "public"`})
	if err != nil || len(list) != 1 || list[0].Name != "Alpha" {
		t.Fatalf("filtered = %+v, err %v", list, err)
	}
	list, err = svc.ListByOwner(ctx, userA, OwnerListQuery{Name: "ALPHA"})
	if err != nil || len(list) != 2 {
		t.Fatalf("by name = %+v, err %v", list, err)
	}
	list, err = svc.ListByOwner(ctx, userA, OwnerListQuery{Page: Page{Limit: 1, Offset: 1}})
	if err != nil || len(list) != 1 || list[0].Name != "Beta" {
		t.Fatalf("paged = %+v, err %v", list, err)
	}

	_, err = svc.ListByOwner(ctx, userA, OwnerListQuery{Filter: `nonsense >`})
	assertCode(t, err, apperrors.CodeWatchlistInvalidFilter)
}

func TestTrendingAndBookmarks(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()
	quiet := mustCreate(t, svc, userA, CreateInput{Name: "Quiet", Visibility: "public"})
	popular := mustCreate(t, svc, userA, CreateInput{Name: "Popular", Visibility: "public"})
	mustCreate(t, svc, userA, CreateInput{Name: "Hidden"})

	if _, err := svc.Fork(ctx, userB, popular.ID); err != nil {
		t.Fatalf("fork: %v", err)
	}
	trending, err := svc.Trending(ctx, Page{})
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	if len(trending) != 2 || trending[0].Watchlist.ID != popular.ID || trending[0].Score != 1 || trending[1].Watchlist.ID != quiet.ID {
		t.Fatalf("trending = %+v", trending)
	}

	if _, err := svc.Bookmark(ctx, userC, quiet.ID); err != nil {
		t.Fatalf("bookmark: %v", err)
	}
	_, err = svc.Bookmark(ctx, userC, quiet.ID)
	assertCode(t, err, apperrors.CodeBookmarkAlreadyExists)
	bookmarks, err := svc.ListBookmarks(ctx, userC, Page{})
	if err != nil || len(bookmarks) != 1 || bookmarks[0].Watchlist == nil {
		t.Fatalf("bookmarks = %+v, err %v", bookmarks, err)
	}
	if err := svc.Unbookmark(ctx, userC, quiet.ID); err != nil {
		t.Fatalf("unbookmark: %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()
	w := mustCreate(t, svc, userA, CreateInput{Name: "Doomed", Visibility: "public"})
	if _, err := svc.AddItem(ctx, userA, w.ID, item("X", "Y")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Share(ctx, userA, w.ID, userB, true); err != nil {
		t.Fatalf("share: %v", err)
	}
	assertCode(t, svc.Delete(ctx, userB, w.ID), apperrors.CodeWatchlistNotOwner)
	if err := svc.Delete(ctx, userA, w.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err := svc.Get(ctx, userA, w.ID)
	assertCode(t, err, apperrors.CodeWatchlistNotFound)
	assertCode(t, svc.Delete(ctx, userA, w.ID), apperrors.CodeWatchlistNotFound)
}

// failingStore fails every transaction with a raw storage error.
type failingStore struct{}

func (failingStore) RunInTx(context.Context, func(ctx context.Context, tx storage.Tx) error) error {
	return errors.New("disk on fire")
}

func (failingStore) Close() error { return nil }

func TestStorageFailuresAreInternal(t *testing.T) {
	t.Parallel()

	svc := New(failingStore{})
	_, err := svc.Create(context.Background(), userA, CreateInput{Name: "x"})
	assertCode(t, err, apperrors.CodeInternal)
	if apperrors.KindOf(err) != apperrors.KindInternal {
		t.Fatalf("kind = %s", apperrors.KindOf(err))
	}
	if !strings.Contains(errors.Unwrap(err).Error(), "disk on fire") {
		t.Fatalf("cause lost: %v", err)
	}
}

// faultyStore runs transactions on a real store but fails the named write.
type faultyStore struct {
	*sqlite.Store
	failOn string
}

func (s *faultyStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.Store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return fn(ctx, faultyTx{Tx: tx, failOn: s.failOn})
	})
}

type faultyTx struct {
	storage.Tx
	failOn string
}

func (t faultyTx) CreateItems(ctx context.Context, watchlistID int64, items []domain.Item) ([]domain.Item, error) {
	if t.failOn == "CreateItems" {
		return nil, errors.New("write failed")
	}
	return t.Tx.CreateItems(ctx, watchlistID, items)
}

func (t faultyTx) IncrementForkCount(ctx context.Context, id int64) error {
	if t.failOn == "IncrementForkCount" {
		return errors.New("write failed")
	}
	return t.Tx.IncrementForkCount(ctx, id)
}

func TestFailedForkLeavesNoPartialFork(t *testing.T) {
	t.Parallel()

	for _, failOn := range []string{"CreateItems", "IncrementForkCount"} {
		t.Run(failOn, func(t *testing.T) {
			t.Parallel()

			svc, store := newService(t)
			ctx := context.Background()
			src := mustCreate(t, svc, userA, CreateInput{Name: "Tech Picks", Visibility: "public"})
			if _, err := svc.AddItems(ctx, userA, src.ID, []domain.Item{item("AAPL", "NASDAQ"), item("MSFT", "NASDAQ")}); err != nil {
				t.Fatalf("add items: %v", err)
			}

			faulty := New(&faultyStore{Store: store, failOn: failOn})
			_, err := faulty.Fork(ctx, userB, src.ID)
			assertCode(t, err, apperrors.CodeInternal)

			owned, err := svc.ListByOwner(ctx, userB, OwnerListQuery{})
			if err != nil {
				t.Fatalf("list userB: %v", err)
			}
			if len(owned) != 0 {
				t.Fatalf("partial fork left behind: %+v", owned)
			}
			source, err := svc.Get(ctx, userA, src.ID)
			if err != nil {
				t.Fatalf("get source: %v", err)
			}
			if source.Watchlist.ForkCount != 0 {
				t.Fatalf("fork count = %d, want 0", source.Watchlist.ForkCount)
			}

			// The default name is still free and the retry copies every item once.
			fork, err := svc.Fork(ctx, userB, src.ID)
			if err != nil {
				t.Fatalf("retry fork: %v", err)
			}
			items, err := svc.ListItems(ctx, userB, fork.Watchlist.ID)
			if err != nil {
				t.Fatalf("list fork items: %v", err)
			}
			if got := symbols(items); got != "AAPL:NASDAQ,MSFT:NASDAQ" {
				t.Fatalf("fork items = %s", got)
			}
		})
	}
}

func TestFailedPullKeepsForkItems(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	ctx := context.Background()
	src := mustCreate(t, svc, userA, CreateInput{Name: "Tech Picks", Visibility: "public"})
	if _, err := svc.AddItems(ctx, userA, src.ID, []domain.Item{item("AAPL", "NASDAQ")}); err != nil {
		t.Fatalf("add items: %v", err)
	}
	fork, err := svc.Fork(ctx, userB, src.ID)
	if err != nil {
		t.Fatalf("fork: %v", err)
	}
	if _, err := svc.AddItem(ctx, userB, fork.Watchlist.ID, item("TSLA", "NASDAQ")); err != nil {
		t.Fatalf("add local item: %v", err)
	}
	if _, err := svc.AddItem(ctx, userA, src.ID, item("GOOG", "NASDAQ")); err != nil {
		t.Fatalf("add source item: %v", err)
	}

	faulty := New(&faultyStore{Store: store, failOn: "CreateItems"})
	_, err = faulty.Pull(ctx, userB, fork.Watchlist.ID)
	assertCode(t, err, apperrors.CodeInternal)

	items, err := svc.ListItems(ctx, userB, fork.Watchlist.ID)
	if err != nil {
		t.Fatalf("list fork items: %v", err)
	}
	if got := symbols(items); got != "AAPL:NASDAQ,TSLA:NASDAQ" {
		t.Fatalf("fork items after failed pull = %s, want the original items", got)
	}
}
