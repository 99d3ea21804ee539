package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/platformnet/bounty-ledger/internal/model"
)

// ItemRepo persists the event ledger.  Uniqueness key is
// (scope_owner, scope_name, item_id), which is what serializes
// concurrent writes to the same item: the upsert runs in a short
// transaction holding the row lock, so two syncs of the same scope can
// never produce interleaved partial rows even if the single-flight
// lease were somehow bypassed.
type ItemRepo struct{ DB *sql.DB }

func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{DB: db} }

const itemColumns = "id,scope_owner,scope_name,item_id,author,lifecycle,classification,labels,created_at,updated_at,closed_at,tombstoned_at"

// Upsert inserts a new tracked item or refreshes an existing one from
// the latest feed observation.  Classification is written as computed
// by the caller on every sync, not only on creation.  An item the feed
// reports again after being tombstoned comes back to life: its
// tombstone is cleared.  Returns whether the row was created and
// whether its classification changed.
func (r *ItemRepo) Upsert(ctx context.Context, item model.TrackedItem) (bool, bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, false, err
	}
	defer tx.Rollback()

	var (
		id       uint64
		oldClass model.Classification
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id,classification FROM tracked_items WHERE scope_owner=? AND scope_name=? AND item_id=? FOR UPDATE",
		item.Scope.Owner, item.Scope.Name, item.ItemID).Scan(&id, &oldClass)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tracked_items
			   (scope_owner, scope_name, item_id, author, lifecycle, classification, labels, created_at, updated_at, closed_at)
			 VALUES (?,?,?,?,?,?,?,?,?,?)`,
			item.Scope.Owner, item.Scope.Name, item.ItemID, item.Author, item.Lifecycle,
			item.Classification, joinLabels(item.Labels), item.CreatedAt, item.UpdatedAt, item.ClosedAt)
		if err != nil {
			return false, false, err
		}
		return true, false, tx.Commit()
	case err != nil:
		return false, false, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tracked_items
		    SET author=?, lifecycle=?, classification=?, labels=?, updated_at=?, closed_at=?, tombstoned_at=NULL
		  WHERE id=?`,
		item.Author, item.Lifecycle, item.Classification, joinLabels(item.Labels),
		item.UpdatedAt, item.ClosedAt, id)
	if err != nil {
		return false, false, err
	}
	return false, oldClass != item.Classification, tx.Commit()
}

// ActiveItemIDs lists item ids for a scope that are not tombstoned.
// The syncer diffs this set against the feed to decide what to
// tombstone.
func (r *ItemRepo) ActiveItemIDs(ctx context.Context, scope model.Scope) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT item_id FROM tracked_items WHERE scope_owner=? AND scope_name=? AND tombstoned_at IS NULL",
		scope.Owner, scope.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Tombstone soft-deletes the given items.  Already-tombstoned rows keep
// their original timestamp.  Returns how many rows were newly marked.
func (r *ItemRepo) Tombstone(ctx context.Context, scope model.Scope, itemIDs []int64, at time.Time) (int, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	query := "UPDATE tracked_items SET tombstoned_at=? WHERE scope_owner=? AND scope_name=? AND tombstoned_at IS NULL AND item_id IN ("
	args := []interface{}{at, scope.Owner, scope.Name}
	for i, id := range itemIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += ")"
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Get fetches one tracked item.  sql.ErrNoRows means the ledger has
// never seen it.
func (r *ItemRepo) Get(ctx context.Context, scope model.Scope, itemID int64) (model.TrackedItem, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM tracked_items WHERE scope_owner=? AND scope_name=? AND item_id=? LIMIT 1",
		scope.Owner, scope.Name, itemID)
	return scanItem(row)
}

// SetClassification records an operator override.  The business rules
// (closed, still unclassified, author match) live in the syncer; this
// is just the write.
func (r *ItemRepo) SetClassification(ctx context.Context, scope model.Scope, itemID int64, class model.Classification, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE tracked_items SET classification=?, updated_at=? WHERE scope_owner=? AND scope_name=? AND item_id=?",
		class, at, scope.Owner, scope.Name, itemID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByScope returns all items for a scope, tombstoned included, for
// the admin audit view.
func (r *ItemRepo) ListByScope(ctx context.Context, scope model.Scope) ([]model.TrackedItem, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM tracked_items WHERE scope_owner=? AND scope_name=? ORDER BY item_id",
		scope.Owner, scope.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.TrackedItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (model.TrackedItem, error) {
	var (
		item   model.TrackedItem
		labels string
	)
	err := row.Scan(&item.ID, &item.Scope.Owner, &item.Scope.Name, &item.ItemID,
		&item.Author, &item.Lifecycle, &item.Classification, &labels,
		&item.CreatedAt, &item.UpdatedAt, &item.ClosedAt, &item.TombstonedAt)
	if err != nil {
		return model.TrackedItem{}, err
	}
	item.Labels = splitLabels(labels)
	return item, nil
}

// Labels are stored comma-joined.  Labels never contain commas on the
// upstream tracker, so the encoding round-trips.
func joinLabels(labels []string) string { return strings.Join(labels, ",") }

func splitLabels(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
