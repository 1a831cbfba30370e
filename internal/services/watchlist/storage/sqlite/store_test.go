package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage/filter"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	ownerA = "0b9c2f4e-1f4c-4d0a-9a57-1d3e8f6a2c01"
	ownerB = "7f3d2a10-5b6e-4c8f-8e21-93a4b5c6d702"
	userC  = "c2a4e6f8-0a1b-4c3d-8e5f-6a7b8c9d0e03"
)

var baseTime = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

func openTempStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "watchlist.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

// inTx runs fn in a committed transaction and fails the test on error.
func inTx(t *testing.T, store *Store, fn func(ctx context.Context, tx storage.Tx) error) {
	t.Helper()

	if err := store.RunInTx(context.Background(), fn); err != nil {
		t.Fatalf("run in tx: %v", err)
	}
}

func createWatchlist(t *testing.T, store *Store, w domain.Watchlist) domain.Watchlist {
	t.Helper()

	if w.Visibility == "" {
		w.Visibility = domain.VisibilityPrivate
	}
	var created domain.Watchlist
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		var err error
		created, err = tx.CreateWatchlist(ctx, w)
		return err
	})
	return created
}

func countDefaults(t *testing.T, store *Store, ownerID string) int {
	t.Helper()

	var count int
	if err := store.sqlDB.QueryRow(
		`SELECT COUNT(*) FROM watchlists WHERE owner_id = ? AND is_default = 1`, ownerID,
	).Scan(&count); err != nil {
		t.Fatalf("count defaults: %v", err)
	}
	return count
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(" "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestNilStoreIsNotConfigured(t *testing.T) {
	t.Parallel()

	var store *Store
	if err := store.RunInTx(context.Background(), func(context.Context, storage.Tx) error { return nil }); err == nil {
		t.Fatal("expected error from nil store")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
}

func TestCreateGetWatchlistRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	created := createWatchlist(t, store, domain.Watchlist{
		OwnerID:     ownerA,
		Name:        "  Tech Picks ",
		Description: "Large caps",
		Visibility:  domain.VisibilityPublic,
		CreatedAt:   baseTime,
	})
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.GetWatchlist(ctx, created.ID)
		if err != nil {
			return err
		}
		if got.Name != "Tech Picks" {
			t.Fatalf("name = %q, want %q", got.Name, "Tech Picks")
		}
		if got.NameKey != "tech picks" {
			t.Fatalf("name key = %q, want %q", got.NameKey, "tech picks")
		}
		if got.Visibility != domain.VisibilityPublic {
			t.Fatalf("visibility = %q, want %q", got.Visibility, domain.VisibilityPublic)
		}
		if !got.CreatedAt.Equal(baseTime) || !got.UpdatedAt.Equal(baseTime) {
			t.Fatalf("timestamps = %v/%v, want %v", got.CreatedAt, got.UpdatedAt, baseTime)
		}
		if got.IsFork() || !got.ForkedAt.IsZero() {
			t.Fatalf("expected origin watchlist, got %+v", got)
		}
		return nil
	})

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.GetWatchlist(ctx, created.ID+100); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("get missing = %v, want %v", err, storage.ErrNotFound)
		}
		return nil
	})
}

func TestCreateWatchlistNameIsCaseInsensitivelyUnique(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Tech Picks"})

	err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.CreateWatchlist(ctx, domain.Watchlist{OwnerID: ownerA, Name: "TECH picks", Visibility: domain.VisibilityPrivate})
		return err
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate create = %v, want %v", err, storage.ErrAlreadyExists)
	}

	// Another owner may reuse the name.
	createWatchlist(t, store, domain.Watchlist{OwnerID: ownerB, Name: "tech picks"})
}

func TestDefaultFlagMovesBetweenWatchlists(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	first := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "First", IsDefault: true})
	second := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Second", IsDefault: true})
	createWatchlist(t, store, domain.Watchlist{OwnerID: ownerB, Name: "Other", IsDefault: true})

	if got := countDefaults(t, store, ownerA); got != 1 {
		t.Fatalf("defaults after create = %d, want 1", got)
	}
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.GetDefaultWatchlist(ctx, ownerA)
		if err != nil {
			return err
		}
		if got.ID != second.ID {
			t.Fatalf("default id = %d, want %d", got.ID, second.ID)
		}
		return nil
	})

	isDefault := true
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.UpdateWatchlist(ctx, first.ID, domain.WatchlistPatch{IsDefault: &isDefault}, baseTime)
		return err
	})
	if got := countDefaults(t, store, ownerA); got != 1 {
		t.Fatalf("defaults after update = %d, want 1", got)
	}
	if got := countDefaults(t, store, ownerB); got != 1 {
		t.Fatalf("other owner defaults = %d, want 1", got)
	}
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.GetDefaultWatchlist(ctx, ownerA)
		if err != nil {
			return err
		}
		if got.ID != first.ID {
			t.Fatalf("default id = %d, want %d", got.ID, first.ID)
		}
		return nil
	})
}

func TestDefaultUniqueIndexRejectsSecondDefault(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "First", IsDefault: true})

	_, err := store.sqlDB.Exec(
		`INSERT INTO watchlists (owner_id, name, name_key, visibility, is_default, created_at, updated_at)
		 VALUES (?, 'Raw', 'raw', 'private', 1, 0, 0)`,
		ownerA,
	)
	if !isUniqueViolation(err) {
		t.Fatalf("raw second default = %v, want unique violation", err)
	}
}

func TestConcurrentDefaultTogglesKeepOneDefault(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ids := make([]int64, 6)
	for i := range ids {
		ids[i] = createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: fmt.Sprintf("List %d", i)}).ID
	}

	var group errgroup.Group
	isDefault := true
	for round := 0; round < 3; round++ {
		for _, id := range ids {
			group.Go(func() error {
				return store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
					_, err := tx.UpdateWatchlist(ctx, id, domain.WatchlistPatch{IsDefault: &isDefault}, time.Now())
					return err
				})
			})
		}
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("concurrent toggles: %v", err)
	}
	if got := countDefaults(t, store, ownerA); got != 1 {
		t.Fatalf("defaults after concurrent toggles = %d, want 1", got)
	}
}

func TestUpdateWatchlistPartialFields(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	created := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Growth", Description: "keep"})
	createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Value"})

	name := "Growth 2026"
	visibility := domain.VisibilityShared
	later := baseTime.Add(time.Hour)
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.UpdateWatchlist(ctx, created.ID, domain.WatchlistPatch{Name: &name, Visibility: &visibility}, later)
		if err != nil {
			return err
		}
		if got.Name != name || got.NameKey != "growth 2026" {
			t.Fatalf("name = %q/%q", got.Name, got.NameKey)
		}
		if got.Description != "keep" {
			t.Fatalf("description = %q, want %q", got.Description, "keep")
		}
		if got.Visibility != visibility {
			t.Fatalf("visibility = %q, want %q", got.Visibility, visibility)
		}
		if !got.UpdatedAt.Equal(later) {
			t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, later)
		}
		return nil
	})

	conflict := "VALUE"
	err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.UpdateWatchlist(ctx, created.ID, domain.WatchlistPatch{Name: &conflict}, later)
		return err
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("rename conflict = %v, want %v", err, storage.ErrAlreadyExists)
	}

	err = store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.UpdateWatchlist(ctx, 9999, domain.WatchlistPatch{Name: &name}, later)
		return err
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update missing = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	boom := errors.New("boom")
	err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.CreateWatchlist(ctx, domain.Watchlist{OwnerID: ownerA, Name: "Ghost", Visibility: domain.VisibilityPrivate}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("run in tx = %v, want %v", err, boom)
	}
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		list, err := tx.ListWatchlistsByOwner(ctx, ownerA, storage.OwnerQuery{Limit: 10})
		if err != nil {
			return err
		}
		if len(list) != 0 {
			t.Fatalf("watchlists after rollback = %d, want 0", len(list))
		}
		return nil
	})
}

func TestListWatchlistsByOwner(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	older := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Alpha Tech", Visibility: domain.VisibilityPublic, CreatedAt: baseTime})
	def := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Main", IsDefault: true, CreatedAt: baseTime.Add(time.Minute)})
	newer := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Beta tech_50%", CreatedAt: baseTime.Add(2 * time.Minute)})
	createWatchlist(t, store, domain.Watchlist{OwnerID: ownerB, Name: "Elsewhere"})

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		list, err := tx.ListWatchlistsByOwner(ctx, ownerA, storage.OwnerQuery{Limit: 10})
		if err != nil {
			return err
		}
		want := []int64{def.ID, older.ID, newer.ID}
		if len(list) != len(want) {
			t.Fatalf("list length = %d, want %d", len(list), len(want))
		}
		for i, id := range want {
			if list[i].ID != id {
				t.Fatalf("list[%d] = %d, want %d", i, list[i].ID, id)
			}
		}

		named, err := tx.ListWatchlistsByOwner(ctx, ownerA, storage.OwnerQuery{NameKey: "tech", Limit: 10})
		if err != nil {
			return err
		}
		if len(named) != 2 {
			t.Fatalf("name filtered length = %d, want 2", len(named))
		}

		escaped, err := tx.ListWatchlistsByOwner(ctx, ownerA, storage.OwnerQuery{NameKey: "_50%", Limit: 10})
		if err != nil {
			return err
		}
		if len(escaped) != 1 || escaped[0].ID != newer.ID {
			t.Fatalf("escaped filter = %+v, want only %d", escaped, newer.ID)
		}

		cond, err := filter.Parse(`visibility = "public"`)
		if err != nil {
			return err
		}
		public, err := tx.ListWatchlistsByOwner(ctx, ownerA, storage.OwnerQuery{Condition: cond, Limit: 10})
		if err != nil {
			return err
		}
		if len(public) != 1 || public[0].ID != older.ID {
			t.Fatalf("public filter = %+v, want only %d", public, older.ID)
		}

		defaults, err := tx.ListWatchlistsByOwner(ctx, ownerA, storage.OwnerQuery{
			Condition: filter.Condition{Clause: "is_default = ?", Params: []any{true}},
			Limit:     10,
		})
		if err != nil {
			return err
		}
		if len(defaults) != 1 || defaults[0].ID != def.ID {
			t.Fatalf("default filter = %+v, want only %d", defaults, def.ID)
		}

		paged, err := tx.ListWatchlistsByOwner(ctx, ownerA, storage.OwnerQuery{Limit: 1, Offset: 1})
		if err != nil {
			return err
		}
		if len(paged) != 1 || paged[0].ID != older.ID {
			t.Fatalf("second page = %+v, want %d", paged, older.ID)
		}

		if _, err := tx.ListWatchlistsByOwner(ctx, ownerA, storage.OwnerQuery{}); err == nil {
			t.Fatal("expected zero limit error")
		}
		return nil
	})
}

func TestPublicLookupsExcludePrivate(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	old := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Energy Picks", Visibility: domain.VisibilityPublic, CreatedAt: baseTime})
	createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Secret Picks", Visibility: domain.VisibilityPrivate, CreatedAt: baseTime.Add(time.Minute)})
	recent := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerB, Name: "PICKS of the week", Visibility: domain.VisibilityPublic, CreatedAt: baseTime.Add(2 * time.Minute)})

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		found, err := tx.ListPublicWatchlistsByName(ctx, domain.NameKey("picks"), 10, 0)
		if err != nil {
			return err
		}
		if len(found) != 2 || found[0].ID != recent.ID || found[1].ID != old.ID {
			t.Fatalf("search = %+v, want [%d %d]", found, recent.ID, old.ID)
		}

		got, err := tx.GetPublicWatchlistByOwnerAndName(ctx, ownerA, domain.NameKey(" ENERGY picks "))
		if err != nil {
			return err
		}
		if got.ID != old.ID {
			t.Fatalf("public by name = %d, want %d", got.ID, old.ID)
		}
		if _, err := tx.GetPublicWatchlistByOwnerAndName(ctx, ownerA, domain.NameKey("Secret Picks")); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("private by name = %v, want %v", err, storage.ErrNotFound)
		}
		return nil
	})
}

func TestForksAndForkCount(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	source := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Source", Visibility: domain.VisibilityPublic})
	forkedAt := baseTime.Add(time.Hour)
	first := createWatchlist(t, store, domain.Watchlist{
		OwnerID: ownerB, Name: "Source (forked)", ForkedFromID: source.ID, ForkedAt: forkedAt,
		OriginalAuthorID: ownerA, CreatedAt: forkedAt,
	})
	second := createWatchlist(t, store, domain.Watchlist{
		OwnerID: userC, Name: "Source (forked)", Visibility: domain.VisibilityPublic, ForkedFromID: source.ID, ForkedAt: forkedAt,
		OriginalAuthorID: ownerA, CreatedAt: forkedAt.Add(time.Minute),
	})

	var group errgroup.Group
	for i := 0; i < 5; i++ {
		group.Go(func() error {
			return store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
				return tx.IncrementForkCount(ctx, source.ID)
			})
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("increment fork count: %v", err)
	}

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		forks, err := tx.ListForks(ctx, source.ID, ownerB, 10, 0)
		if err != nil {
			return err
		}
		if len(forks) != 2 || forks[0].ID != second.ID || forks[1].ID != first.ID {
			t.Fatalf("forks = %+v, want [%d %d]", forks, second.ID, first.ID)
		}
		if forks[1].ForkedFromID != source.ID || !forks[1].ForkedAt.Equal(forkedAt) || forks[1].OriginalAuthorID != ownerA {
			t.Fatalf("lineage fields = %+v", forks[1])
		}

		got, err := tx.GetWatchlist(ctx, source.ID)
		if err != nil {
			return err
		}
		if got.ForkCount != 5 {
			t.Fatalf("fork count = %d, want 5", got.ForkCount)
		}
		if err := tx.IncrementForkCount(ctx, 4242); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("increment missing = %v, want %v", err, storage.ErrNotFound)
		}
		return nil
	})

	// The private fork is visible only to its owner and to users it is shared with.
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		for viewer, want := range map[string]int{"": 1, ownerA: 1, userC: 1} {
			forks, err := tx.ListForks(ctx, source.ID, viewer, 10, 0)
			if err != nil {
				return err
			}
			if len(forks) != want || forks[0].ID != second.ID {
				t.Fatalf("viewer %q forks = %+v, want only %d", viewer, forks, second.ID)
			}
		}
		if _, err := tx.CreateShare(ctx, domain.Share{WatchlistID: first.ID, UserID: userC, CreatedAt: baseTime}); err != nil {
			return err
		}
		forks, err := tx.ListForks(ctx, source.ID, userC, 1, 1)
		if err != nil {
			return err
		}
		if len(forks) != 1 || forks[0].ID != first.ID {
			t.Fatalf("shared fork page = %+v, want %d", forks, first.ID)
		}
		return nil
	})
}

func TestListTrendingCombinesForksAndVotes(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	a := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "A", Visibility: domain.VisibilityPublic, ForkCount: 3})
	b := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "B", Visibility: domain.VisibilityPublic, ForkCount: 1})
	c := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerB, Name: "C", Visibility: domain.VisibilityPublic})
	hidden := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerB, Name: "Hidden", Visibility: domain.VisibilityPrivate, ForkCount: 50})

	votes := []struct {
		watchlistID int64
		userID      string
		vote        int
	}{
		{b.ID, ownerB, 1},
		{b.ID, userC, 1},
		{a.ID, ownerB, -1},
		{c.ID, ownerA, 1},
		{c.ID, userC, 1},
		{hidden.ID, ownerA, 1},
	}
	for _, v := range votes {
		if _, err := store.sqlDB.Exec(
			`INSERT INTO watchlist_votes (watchlist_id, user_id, vote, created_at) VALUES (?, ?, ?, 0)`,
			v.watchlistID, v.userID, v.vote,
		); err != nil {
			t.Fatalf("insert vote: %v", err)
		}
	}

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		trending, err := tx.ListTrending(ctx, 10, 0)
		if err != nil {
			return err
		}
		// a: 3-1=2, b: 1+2=3, c: 0+2=2. Ties by id.
		want := []struct {
			id    int64
			score int64
		}{{b.ID, 3}, {a.ID, 2}, {c.ID, 2}}
		if len(trending) != len(want) {
			t.Fatalf("trending length = %d, want %d", len(trending), len(want))
		}
		for i, w := range want {
			if trending[i].Watchlist.ID != w.id || trending[i].Score != w.score {
				t.Fatalf("trending[%d] = id %d score %d, want id %d score %d",
					i, trending[i].Watchlist.ID, trending[i].Score, w.id, w.score)
			}
		}
		if trending[1].VoteTotal != -1 {
			t.Fatalf("vote total = %d, want -1", trending[1].VoteTotal)
		}
		return nil
	})
}

func TestItemsOrderAndUniqueness(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	w := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Items"})
	pos := func(v int64) *int64 { return &v }

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		created, err := tx.CreateItems(ctx, w.ID, []domain.Item{
			{Symbol: "NOPOS", Exchange: "NYSE", CreatedAt: baseTime},
			{Symbol: "SECOND", Exchange: "NYSE", Position: pos(2), CreatedAt: baseTime},
			{Symbol: "FIRST", Exchange: "NYSE", Position: pos(0), CreatedAt: baseTime.Add(time.Second)},
			{Symbol: "LATE", Exchange: "NYSE", CreatedAt: baseTime.Add(time.Minute),
				Percentage: decimal.NewNullDecimal(decimal.RequireFromString("12.50")),
				Quantity:   decimal.NewNullDecimal(decimal.RequireFromString("3.25"))},
		})
		if err != nil {
			return err
		}
		if len(created) != 4 || created[0].ID == 0 {
			t.Fatalf("created = %+v", created)
		}
		return nil
	})

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		items, err := tx.ListItems(ctx, w.ID)
		if err != nil {
			return err
		}
		want := []string{"FIRST", "SECOND", "NOPOS", "LATE"}
		for i, symbol := range want {
			if items[i].Symbol != symbol {
				t.Fatalf("items[%d] = %q, want %q", i, items[i].Symbol, symbol)
			}
		}
		late := items[3]
		if !late.Percentage.Valid || !late.Percentage.Decimal.Equal(decimal.RequireFromString("12.5")) {
			t.Fatalf("percentage = %v, want 12.5", late.Percentage)
		}
		if !late.Quantity.Valid || !late.Quantity.Decimal.Equal(decimal.RequireFromString("3.25")) {
			t.Fatalf("quantity = %v, want 3.25", late.Quantity)
		}
		if items[2].Percentage.Valid || items[2].Position != nil {
			t.Fatalf("expected null percentage and position, got %+v", items[2])
		}
		return nil
	})

	err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.CreateItem(ctx, domain.Item{WatchlistID: w.ID, Symbol: "FIRST", Exchange: "NYSE"})
		return err
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate item = %v, want %v", err, storage.ErrAlreadyExists)
	}

	err = store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.CreateItem(ctx, domain.Item{WatchlistID: w.ID + 50, Symbol: "ORPHAN", Exchange: "NYSE"})
		return err
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("item for missing watchlist = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestItemCheckConstraints(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	w := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Checks"})
	tests := map[string]domain.Item{
		"percentage": {Symbol: "P", Exchange: "X", Percentage: decimal.NewNullDecimal(decimal.NewFromInt(150))},
		"quantity":   {Symbol: "Q", Exchange: "X", Quantity: decimal.NewNullDecimal(decimal.NewFromInt(-1))},
	}
	for name, item := range tests {
		item.WatchlistID = w.ID
		err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
			_, err := tx.CreateItem(ctx, item)
			return err
		})
		if err == nil {
			t.Fatalf("%s: expected check constraint failure", name)
		}
	}
}

func TestUpdateAndDeleteItems(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	w := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Edit"})
	var aapl, msft domain.Item
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		created, err := tx.CreateItems(ctx, w.ID, []domain.Item{
			{Symbol: "AAPL", Exchange: "NASDAQ"},
			{Symbol: "MSFT", Exchange: "NASDAQ", Note: "cloud"},
		})
		if err != nil {
			return err
		}
		aapl, msft = created[0], created[1]
		return nil
	})

	note := "services"
	position := int64(3)
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.UpdateItem(ctx, aapl.ID, domain.ItemPatch{Note: &note, Position: &position}, baseTime)
		if err != nil {
			return err
		}
		if got.Note != "services" || got.Position == nil || *got.Position != 3 {
			t.Fatalf("updated item = %+v", got)
		}
		if got.Symbol != "AAPL" {
			t.Fatalf("symbol = %q, want unchanged", got.Symbol)
		}
		return nil
	})

	symbol := "AAPL"
	err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.UpdateItem(ctx, msft.ID, domain.ItemPatch{Symbol: &symbol}, baseTime)
		return err
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("update into duplicate = %v, want %v", err, storage.ErrAlreadyExists)
	}

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		removed, err := tx.DeleteItem(ctx, msft.ID)
		if err != nil {
			return err
		}
		if removed.Symbol != "MSFT" {
			t.Fatalf("removed = %q, want MSFT", removed.Symbol)
		}
		if _, err := tx.DeleteItem(ctx, msft.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("delete twice = %v, want %v", err, storage.ErrNotFound)
		}
		n, err := tx.DeleteItemsByWatchlist(ctx, w.ID)
		if err != nil {
			return err
		}
		if n != 1 {
			t.Fatalf("deleted = %d, want 1", n)
		}
		return nil
	})
}

func TestListItemsForWatchlistsBatches(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	first := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "One"})
	second := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Two"})
	empty := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Three"})

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.CreateItems(ctx, first.ID, []domain.Item{{Symbol: "A", Exchange: "X"}, {Symbol: "B", Exchange: "X"}}); err != nil {
			return err
		}
		if _, err := tx.CreateItems(ctx, second.ID, []domain.Item{{Symbol: "C", Exchange: "X"}}); err != nil {
			return err
		}
		got, err := tx.ListItemsForWatchlists(ctx, []int64{first.ID, second.ID, empty.ID})
		if err != nil {
			return err
		}
		if len(got[first.ID]) != 2 || len(got[second.ID]) != 1 {
			t.Fatalf("batch = %+v", got)
		}
		if items, ok := got[empty.ID]; !ok || len(items) != 0 {
			t.Fatalf("empty watchlist entry = %v, %v", items, ok)
		}
		none, err := tx.ListItemsForWatchlists(ctx, nil)
		if err != nil {
			return err
		}
		if len(none) != 0 {
			t.Fatalf("nil ids = %+v, want empty", none)
		}
		return nil
	})
}

func TestSharesLifecycle(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	w := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Shared"})

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.CreateShare(ctx, domain.Share{WatchlistID: w.ID, UserID: userC, CreatedAt: baseTime}); err != nil {
			return err
		}
		if _, err := tx.CreateShare(ctx, domain.Share{WatchlistID: w.ID, UserID: ownerB, CanEdit: true, CreatedAt: baseTime.Add(time.Second)}); err != nil {
			return err
		}
		return nil
	})

	err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.CreateShare(ctx, domain.Share{WatchlistID: w.ID, UserID: userC})
		return err
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate share = %v, want %v", err, storage.ErrAlreadyExists)
	}

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		updated, err := tx.UpdateShare(ctx, w.ID, userC, true)
		if err != nil {
			return err
		}
		if !updated.CanEdit {
			t.Fatal("expected can_edit after update")
		}
		shares, err := tx.ListShares(ctx, w.ID)
		if err != nil {
			return err
		}
		if len(shares) != 2 || shares[0].UserID != userC {
			t.Fatalf("shares = %+v", shares)
		}
		if err := tx.DeleteShare(ctx, w.ID, userC); err != nil {
			return err
		}
		if _, err := tx.GetShare(ctx, w.ID, userC); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("get deleted share = %v, want %v", err, storage.ErrNotFound)
		}
		if _, err := tx.UpdateShare(ctx, w.ID, userC, false); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("update missing share = %v, want %v", err, storage.ErrNotFound)
		}
		if err := tx.DeleteShare(ctx, w.ID, userC); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("delete missing share = %v, want %v", err, storage.ErrNotFound)
		}
		return nil
	})
}

func TestBookmarksLifecycle(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	first := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "First", Visibility: domain.VisibilityPublic})
	second := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Second", Visibility: domain.VisibilityPublic})

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.CreateBookmark(ctx, domain.Bookmark{WatchlistID: first.ID, UserID: userC, CreatedAt: baseTime}); err != nil {
			return err
		}
		if _, err := tx.CreateBookmark(ctx, domain.Bookmark{WatchlistID: second.ID, UserID: userC, CreatedAt: baseTime.Add(time.Minute)}); err != nil {
			return err
		}
		return nil
	})

	err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.CreateBookmark(ctx, domain.Bookmark{WatchlistID: first.ID, UserID: userC})
		return err
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate bookmark = %v, want %v", err, storage.ErrAlreadyExists)
	}

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		list, err := tx.ListBookmarks(ctx, userC, 10, 0)
		if err != nil {
			return err
		}
		if len(list) != 2 || list[0].WatchlistID != second.ID || list[1].WatchlistID != first.ID {
			t.Fatalf("bookmarks = %+v", list)
		}
		if err := tx.DeleteBookmark(ctx, first.ID, userC); err != nil {
			return err
		}
		if _, err := tx.GetBookmark(ctx, first.ID, userC); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("get deleted bookmark = %v, want %v", err, storage.ErrNotFound)
		}
		if err := tx.DeleteBookmark(ctx, first.ID, userC); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("delete missing bookmark = %v, want %v", err, storage.ErrNotFound)
		}
		return nil
	})
}

func TestDeleteWatchlistCascades(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	w := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerA, Name: "Doomed", Visibility: domain.VisibilityPublic})
	fork := createWatchlist(t, store, domain.Watchlist{OwnerID: ownerB, Name: "Doomed (forked)", ForkedFromID: w.ID})

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.CreateItem(ctx, domain.Item{WatchlistID: w.ID, Symbol: "X", Exchange: "Y"}); err != nil {
			return err
		}
		if _, err := tx.CreateShare(ctx, domain.Share{WatchlistID: w.ID, UserID: userC}); err != nil {
			return err
		}
		if _, err := tx.CreateBookmark(ctx, domain.Bookmark{WatchlistID: w.ID, UserID: userC}); err != nil {
			return err
		}
		return tx.DeleteWatchlist(ctx, w.ID)
	})

	for _, table := range []string{"watchlist_items", "watchlist_shares", "watchlist_bookmarks"} {
		var count int
		if err := store.sqlDB.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE watchlist_id = ?", w.ID).Scan(&count); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Fatalf("%s rows after delete = %d, want 0", table, count)
		}
	}

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.GetWatchlist(ctx, fork.ID)
		if err != nil {
			return err
		}
		if got.ForkedFromID != w.ID {
			t.Fatalf("fork lineage = %d, want dangling %d", got.ForkedFromID, w.ID)
		}
		if err := tx.DeleteWatchlist(ctx, w.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("delete twice = %v, want %v", err, storage.ErrNotFound)
		}
		return nil
	})
}
