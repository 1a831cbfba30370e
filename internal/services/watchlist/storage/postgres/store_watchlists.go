package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage"
	"github.com/jackc/pgx/v5"
)

const watchlistColumns = `id, owner_id, name, name_key, description, visibility, is_default,
	forked_from_id, forked_at, original_author_id, fork_count, created_at, updated_at`

const prefixedWatchlistColumns = `w.id, w.owner_id, w.name, w.name_key, w.description, w.visibility, w.is_default,
	w.forked_from_id, w.forked_at, w.original_author_id, w.fork_count, w.created_at, w.updated_at`

func scanWatchlist(row rowScanner, extra ...any) (domain.Watchlist, error) {
	var (
		w                domain.Watchlist
		visibility       string
		forkedFromID     *int64
		forkedAt         *int64
		originalAuthorID *string
		createdAt        int64
		updatedAt        int64
	)
	dest := []any{
		&w.ID,
		&w.OwnerID,
		&w.Name,
		&w.NameKey,
		&w.Description,
		&visibility,
		&w.IsDefault,
		&forkedFromID,
		&forkedAt,
		&originalAuthorID,
		&w.ForkCount,
		&createdAt,
		&updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Watchlist{}, err
	}
	w.Visibility = domain.Visibility(visibility)
	if forkedFromID != nil {
		w.ForkedFromID = *forkedFromID
	}
	if forkedAt != nil {
		w.ForkedAt = fromMillis(*forkedAt)
	}
	if originalAuthorID != nil {
		w.OriginalAuthorID = *originalAuthorID
	}
	w.CreatedAt = fromMillis(createdAt)
	w.UpdatedAt = fromMillis(updatedAt)
	return w, nil
}

func collectWatchlists(rows pgx.Rows, op string) ([]domain.Watchlist, error) {
	defer rows.Close()

	var out []domain.Watchlist
	for rows.Next() {
		w, err := scanWatchlist(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// clearDefaults un-defaults the owner's watchlists other than keepID. The
// owner-scoped advisory lock queues concurrent default writers.
func (t *txStore) clearDefaults(ctx context.Context, ownerID string, keepID int64, updatedAt time.Time) error {
	if _, err := t.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('watchlist_default:' || $1))`, ownerID); err != nil {
		return fmt.Errorf("lock owner defaults: %w", err)
	}
	if _, err := t.q.Exec(
		ctx,
		`UPDATE watchlists SET is_default = FALSE, updated_at = $1
		  WHERE owner_id = $2 AND is_default AND id != $3`,
		toMillis(updatedAt),
		ownerID,
		keepID,
	); err != nil {
		return fmt.Errorf("clear default watchlists: %w", err)
	}
	return nil
}

// CreateWatchlist inserts a watchlist, clearing the owner's other defaults
// first when the new record is default.
func (t *txStore) CreateWatchlist(ctx context.Context, w domain.Watchlist) (domain.Watchlist, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Watchlist{}, err
	}
	w.OwnerID = strings.TrimSpace(w.OwnerID)
	w.Name = strings.TrimSpace(w.Name)
	if w.OwnerID == "" {
		return domain.Watchlist{}, fmt.Errorf("owner id is required")
	}
	if w.Name == "" {
		return domain.Watchlist{}, fmt.Errorf("name is required")
	}
	if !w.Visibility.Valid() {
		return domain.Watchlist{}, fmt.Errorf("visibility %q is invalid", w.Visibility)
	}
	w.NameKey = domain.NameKey(w.Name)
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	if w.UpdatedAt.IsZero() {
		w.UpdatedAt = w.CreatedAt
	}

	if w.IsDefault {
		if err := t.clearDefaults(ctx, w.OwnerID, 0, w.UpdatedAt); err != nil {
			return domain.Watchlist{}, err
		}
	}

	var forkedFrom *int64
	if w.ForkedFromID != 0 {
		forkedFrom = &w.ForkedFromID
	}
	var originalAuthor *string
	if w.OriginalAuthorID != "" {
		originalAuthor = &w.OriginalAuthorID
	}

	row := t.q.QueryRow(
		ctx,
		`INSERT INTO watchlists (
		   owner_id, name, name_key, description, visibility, is_default,
		   forked_from_id, forked_at, original_author_id, fork_count,
		   created_at, updated_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+watchlistColumns,
		w.OwnerID,
		w.Name,
		w.NameKey,
		w.Description,
		string(w.Visibility),
		w.IsDefault,
		forkedFrom,
		nullMillis(w.ForkedAt),
		originalAuthor,
		w.ForkCount,
		toMillis(w.CreatedAt),
		toMillis(w.UpdatedAt),
	)
	created, err := scanWatchlist(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Watchlist{}, storage.ErrAlreadyExists
		}
		return domain.Watchlist{}, fmt.Errorf("create watchlist: %w", err)
	}
	return created, nil
}

// UpdateWatchlist applies the non-nil patch fields.
func (t *txStore) UpdateWatchlist(ctx context.Context, id int64, patch domain.WatchlistPatch, updatedAt time.Time) (domain.Watchlist, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Watchlist{}, err
	}
	current, err := t.GetWatchlist(ctx, id)
	if err != nil {
		return domain.Watchlist{}, err
	}
	if patch.Empty() {
		return current, nil
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	if patch.IsDefault != nil && *patch.IsDefault {
		if err := t.clearDefaults(ctx, current.OwnerID, id, updatedAt); err != nil {
			return domain.Watchlist{}, err
		}
	}

	args := []any{toMillis(updatedAt)}
	sets := []string{"updated_at = $1"}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.Watchlist{}, fmt.Errorf("name is required")
		}
		set("name", name)
		set("name_key", domain.NameKey(name))
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Visibility != nil {
		if !patch.Visibility.Valid() {
			return domain.Watchlist{}, fmt.Errorf("visibility %q is invalid", *patch.Visibility)
		}
		set("visibility", string(*patch.Visibility))
	}
	if patch.IsDefault != nil {
		set("is_default", *patch.IsDefault)
	}
	args = append(args, id)

	row := t.q.QueryRow(
		ctx,
		"UPDATE watchlists SET "+strings.Join(sets, ", ")+
			" WHERE id = $"+strconv.Itoa(len(args))+" RETURNING "+watchlistColumns,
		args...,
	)
	updated, err := scanWatchlist(row)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.Watchlist{}, storage.ErrNotFound
		case isUniqueViolation(err):
			return domain.Watchlist{}, storage.ErrAlreadyExists
		}
		return domain.Watchlist{}, fmt.Errorf("update watchlist: %w", err)
	}
	return updated, nil
}

// DeleteWatchlist removes a watchlist; items, shares and bookmarks cascade.
func (t *txStore) DeleteWatchlist(ctx context.Context, id int64) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx, `DELETE FROM watchlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete watchlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *txStore) getOne(ctx context.Context, op string, where string, args ...any) (domain.Watchlist, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Watchlist{}, err
	}
	row := t.q.QueryRow(ctx, "SELECT "+watchlistColumns+" FROM watchlists WHERE "+where+" LIMIT 1", args...)
	w, err := scanWatchlist(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Watchlist{}, storage.ErrNotFound
		}
		return domain.Watchlist{}, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}

// GetWatchlist returns a watchlist by id.
func (t *txStore) GetWatchlist(ctx context.Context, id int64) (domain.Watchlist, error) {
	return t.getOne(ctx, "get watchlist", "id = $1", id)
}

// GetDefaultWatchlist returns the owner's default watchlist.
func (t *txStore) GetDefaultWatchlist(ctx context.Context, ownerID string) (domain.Watchlist, error) {
	return t.getOne(ctx, "get default watchlist", "owner_id = $1 AND is_default", strings.TrimSpace(ownerID))
}

// GetPublicWatchlistByOwnerAndName matches nameKey exactly against the
// owner's public watchlists.
func (t *txStore) GetPublicWatchlistByOwnerAndName(ctx context.Context, ownerID, nameKey string) (domain.Watchlist, error) {
	return t.getOne(ctx, "get public watchlist by name",
		"owner_id = $1 AND name_key = $2 AND visibility = 'public'",
		strings.TrimSpace(ownerID), nameKey)
}

// ListWatchlistsByOwner lists the owner's watchlists, default first and then
// oldest first.
func (t *txStore) ListWatchlistsByOwner(ctx context.Context, ownerID string, query storage.OwnerQuery) ([]domain.Watchlist, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	if err := checkLimit(query.Limit, query.Offset); err != nil {
		return nil, err
	}

	where := []string{"owner_id = $1"}
	args := []any{strings.TrimSpace(ownerID)}
	if query.NameKey != "" {
		args = append(args, "%"+escapeLike(query.NameKey)+"%")
		where = append(where, `name_key LIKE $`+strconv.Itoa(len(args))+` ESCAPE '\'`)
	}
	if !query.Condition.Empty() {
		where = append(where, "("+rebind(query.Condition.Clause, len(args))+")")
		args = append(args, query.Condition.Params...)
	}
	args = append(args, query.Limit, query.Offset)

	rows, err := t.q.Query(
		ctx,
		"SELECT "+watchlistColumns+" FROM watchlists WHERE "+strings.Join(where, " AND ")+
			" ORDER BY is_default DESC, created_at ASC, id ASC"+
			" LIMIT $"+strconv.Itoa(len(args)-1)+" OFFSET $"+strconv.Itoa(len(args)),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list owner watchlists: %w", err)
	}
	return collectWatchlists(rows, "list owner watchlists")
}

// ListPublicWatchlistsByName lists public watchlists whose name key contains
// nameKey, newest first.
func (t *txStore) ListPublicWatchlistsByName(ctx context.Context, nameKey string, limit, offset int) ([]domain.Watchlist, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	if err := checkLimit(limit, offset); err != nil {
		return nil, err
	}
	rows, err := t.q.Query(
		ctx,
		"SELECT "+watchlistColumns+` FROM watchlists
		  WHERE visibility = 'public' AND name_key LIKE $1 ESCAPE '\'
		  ORDER BY created_at DESC, id DESC
		  LIMIT $2 OFFSET $3`,
		"%"+escapeLike(nameKey)+"%",
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("search public watchlists: %w", err)
	}
	return collectWatchlists(rows, "search public watchlists")
}

// ListForks lists direct forks of sourceID visible to viewerID, newest first.
func (t *txStore) ListForks(ctx context.Context, sourceID int64, viewerID string, limit, offset int) ([]domain.Watchlist, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	if err := checkLimit(limit, offset); err != nil {
		return nil, err
	}
	rows, err := t.q.Query(
		ctx,
		"SELECT "+watchlistColumns+` FROM watchlists
		  WHERE forked_from_id = $1
		    AND (visibility = 'public'
		      OR ($2 <> '' AND (owner_id = $2
		        OR EXISTS (SELECT 1 FROM watchlist_shares s
		                    WHERE s.watchlist_id = watchlists.id AND s.user_id = $2))))
		  ORDER BY created_at DESC, id DESC
		  LIMIT $3 OFFSET $4`,
		sourceID,
		viewerID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list forks: %w", err)
	}
	return collectWatchlists(rows, "list forks")
}

// ListTrending ranks public watchlists by fork_count plus their vote total.
func (t *txStore) ListTrending(ctx context.Context, limit, offset int) ([]domain.TrendingWatchlist, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	if err := checkLimit(limit, offset); err != nil {
		return nil, err
	}
	rows, err := t.q.Query(
		ctx,
		"SELECT "+prefixedWatchlistColumns+`, COALESCE(SUM(v.vote), 0)::BIGINT AS vote_total
		   FROM watchlists w
		   LEFT JOIN watchlist_votes v ON v.watchlist_id = w.id
		  WHERE w.visibility = 'public'
		  GROUP BY w.id
		  ORDER BY w.fork_count + COALESCE(SUM(v.vote), 0) DESC, w.id ASC
		  LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list trending watchlists: %w", err)
	}
	defer rows.Close()

	var out []domain.TrendingWatchlist
	for rows.Next() {
		var votes int64
		w, err := scanWatchlist(rows, &votes)
		if err != nil {
			return nil, fmt.Errorf("list trending watchlists: %w", err)
		}
		out = append(out, domain.TrendingWatchlist{
			Watchlist: w,
			VoteTotal: votes,
			Score:     w.ForkCount + votes,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trending watchlists: %w", err)
	}
	return out, nil
}

// IncrementForkCount bumps fork_count in a single statement.
func (t *txStore) IncrementForkCount(ctx context.Context, id int64) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx, `UPDATE watchlists SET fork_count = fork_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment fork count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
