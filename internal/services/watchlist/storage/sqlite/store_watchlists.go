package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/equitalks/equitalks/internal/services/watchlist/domain"
	"github.com/equitalks/equitalks/internal/services/watchlist/storage"
)

const watchlistColumns = `id, owner_id, name, name_key, description, visibility, is_default,
	forked_from_id, forked_at, original_author_id, fork_count, created_at, updated_at`

const prefixedWatchlistColumns = `w.id, w.owner_id, w.name, w.name_key, w.description, w.visibility, w.is_default,
	w.forked_from_id, w.forked_at, w.original_author_id, w.fork_count, w.created_at, w.updated_at`

func scanWatchlist(row rowScanner, extra ...any) (domain.Watchlist, error) {
	var (
		w                domain.Watchlist
		visibility       string
		isDefault        int64
		forkedFromID     sql.NullInt64
		forkedAt         sql.NullInt64
		originalAuthorID sql.NullString
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
		&isDefault,
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
	w.IsDefault = isDefault != 0
	w.ForkedFromID = forkedFromID.Int64
	if forkedAt.Valid {
		w.ForkedAt = fromMillis(forkedAt.Int64)
	}
	w.OriginalAuthorID = originalAuthorID.String
	w.CreatedAt = fromMillis(createdAt)
	w.UpdatedAt = fromMillis(updatedAt)
	return w, nil
}

func collectWatchlists(rows *sql.Rows, op string) ([]domain.Watchlist, error) {
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

// clearDefaults un-defaults the owner's watchlists other than keepID.
func (t *txStore) clearDefaults(ctx context.Context, ownerID string, keepID int64, updatedAt time.Time) error {
	if _, err := t.q.ExecContext(
		ctx,
		`UPDATE watchlists SET is_default = 0, updated_at = ?
		  WHERE owner_id = ? AND is_default = 1 AND id != ?`,
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

	var forkedFrom sql.NullInt64
	if w.ForkedFromID != 0 {
		forkedFrom = sql.NullInt64{Int64: w.ForkedFromID, Valid: true}
	}
	var originalAuthor sql.NullString
	if w.OriginalAuthorID != "" {
		originalAuthor = sql.NullString{String: w.OriginalAuthorID, Valid: true}
	}

	res, err := t.q.ExecContext(
		ctx,
		`INSERT INTO watchlists (
		   owner_id, name, name_key, description, visibility, is_default,
		   forked_from_id, forked_at, original_author_id, fork_count,
		   created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.OwnerID,
		w.Name,
		w.NameKey,
		w.Description,
		string(w.Visibility),
		boolInt(w.IsDefault),
		forkedFrom,
		nullMillis(w.ForkedAt),
		originalAuthor,
		w.ForkCount,
		toMillis(w.CreatedAt),
		toMillis(w.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Watchlist{}, storage.ErrAlreadyExists
		}
		return domain.Watchlist{}, fmt.Errorf("create watchlist: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Watchlist{}, fmt.Errorf("create watchlist id: %w", err)
	}
	return t.GetWatchlist(ctx, id)
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

	sets := []string{"updated_at = ?"}
	args := []any{toMillis(updatedAt)}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.Watchlist{}, fmt.Errorf("name is required")
		}
		sets = append(sets, "name = ?", "name_key = ?")
		args = append(args, name, domain.NameKey(name))
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Visibility != nil {
		if !patch.Visibility.Valid() {
			return domain.Watchlist{}, fmt.Errorf("visibility %q is invalid", *patch.Visibility)
		}
		sets = append(sets, "visibility = ?")
		args = append(args, string(*patch.Visibility))
	}
	if patch.IsDefault != nil {
		sets = append(sets, "is_default = ?")
		args = append(args, boolInt(*patch.IsDefault))
	}
	args = append(args, id)

	if _, err := t.q.ExecContext(
		ctx,
		"UPDATE watchlists SET "+strings.Join(sets, ", ")+" WHERE id = ?",
		args...,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.Watchlist{}, storage.ErrAlreadyExists
		}
		return domain.Watchlist{}, fmt.Errorf("update watchlist: %w", err)
	}
	return t.GetWatchlist(ctx, id)
}

// DeleteWatchlist removes a watchlist; items, shares and bookmarks cascade.
func (t *txStore) DeleteWatchlist(ctx context.Context, id int64) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	res, err := t.q.ExecContext(ctx, `DELETE FROM watchlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete watchlist: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete watchlist rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *txStore) getOne(ctx context.Context, op string, where string, args ...any) (domain.Watchlist, error) {
	if err := t.ready(ctx); err != nil {
		return domain.Watchlist{}, err
	}
	row := t.q.QueryRowContext(ctx, "SELECT "+watchlistColumns+" FROM watchlists WHERE "+where+" LIMIT 1", args...)
	w, err := scanWatchlist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Watchlist{}, storage.ErrNotFound
		}
		return domain.Watchlist{}, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}

// GetWatchlist returns a watchlist by id.
func (t *txStore) GetWatchlist(ctx context.Context, id int64) (domain.Watchlist, error) {
	return t.getOne(ctx, "get watchlist", "id = ?", id)
}

// GetDefaultWatchlist returns the owner's default watchlist.
func (t *txStore) GetDefaultWatchlist(ctx context.Context, ownerID string) (domain.Watchlist, error) {
	return t.getOne(ctx, "get default watchlist", "owner_id = ? AND is_default = 1", strings.TrimSpace(ownerID))
}

// GetPublicWatchlistByOwnerAndName matches nameKey exactly against the
// owner's public watchlists.
func (t *txStore) GetPublicWatchlistByOwnerAndName(ctx context.Context, ownerID, nameKey string) (domain.Watchlist, error) {
	return t.getOne(ctx, "get public watchlist by name",
		"owner_id = ? AND name_key = ? AND visibility = 'public'",
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

	where := []string{"owner_id = ?"}
	args := []any{strings.TrimSpace(ownerID)}
	if query.NameKey != "" {
		where = append(where, `name_key LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(query.NameKey)+"%")
	}
	if !query.Condition.Empty() {
		where = append(where, "("+query.Condition.Clause+")")
		args = append(args, bindParams(query.Condition.Params)...)
	}
	args = append(args, query.Limit, query.Offset)

	rows, err := t.q.QueryContext(
		ctx,
		"SELECT "+watchlistColumns+" FROM watchlists WHERE "+strings.Join(where, " AND ")+
			" ORDER BY is_default DESC, created_at ASC, id ASC LIMIT ? OFFSET ?",
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
	rows, err := t.q.QueryContext(
		ctx,
		"SELECT "+watchlistColumns+` FROM watchlists
		  WHERE visibility = 'public' AND name_key LIKE ? ESCAPE '\'
		  ORDER BY created_at DESC, id DESC
		  LIMIT ? OFFSET ?`,
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
	rows, err := t.q.QueryContext(
		ctx,
		"SELECT "+watchlistColumns+` FROM watchlists
		  WHERE forked_from_id = ?
		    AND (visibility = 'public'
		      OR (? <> '' AND (owner_id = ?
		        OR EXISTS (SELECT 1 FROM watchlist_shares s
		                    WHERE s.watchlist_id = watchlists.id AND s.user_id = ?))))
		  ORDER BY created_at DESC, id DESC
		  LIMIT ? OFFSET ?`,
		sourceID,
		viewerID,
		viewerID,
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
	rows, err := t.q.QueryContext(
		ctx,
		"SELECT "+prefixedWatchlistColumns+`, COALESCE(SUM(v.vote), 0) AS vote_total
		   FROM watchlists w
		   LEFT JOIN watchlist_votes v ON v.watchlist_id = w.id
		  WHERE w.visibility = 'public'
		  GROUP BY w.id
		  ORDER BY w.fork_count + COALESCE(SUM(v.vote), 0) DESC, w.id ASC
		  LIMIT ? OFFSET ?`,
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
	res, err := t.q.ExecContext(ctx, `UPDATE watchlists SET fork_count = fork_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment fork count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment fork count rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
