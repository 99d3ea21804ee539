package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/platformnet/bounty-ledger/internal/model"
)

// StarRepo persists star signals.  One row per (account, scope); the
// unique key makes Record naturally idempotent under concurrency.
type StarRepo struct{ DB *sql.DB }

func NewStarRepo(db *sql.DB) *StarRepo { return &StarRepo{DB: db} }

// Record inserts a star if absent and reports whether it was newly
// recorded.  A duplicate is success-with-false, not an error.
func (r *StarRepo) Record(ctx context.Context, account string, scope model.Scope, observedAt time.Time) (bool, error) {
	account = strings.ToLower(strings.TrimSpace(account))
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO stars (account, scope_owner, scope_name, observed_at) VALUES (?,?,?,?)",
		account, scope.Owner, scope.Name, observedAt)
	if err != nil {
		if isDuplicateErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CountByAccount returns the lifetime star count for an account.  Stars
// are deliberately not window-limited.
func (r *StarRepo) CountByAccount(ctx context.Context, account string) (int, error) {
	account = strings.ToLower(strings.TrimSpace(account))
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM stars WHERE account=?", account).Scan(&n)
	return n, err
}

// ListByAccount returns an account's stars for the status endpoint.
func (r *StarRepo) ListByAccount(ctx context.Context, account string) ([]model.StarRecord, error) {
	account = strings.ToLower(strings.TrimSpace(account))
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,account,scope_owner,scope_name,observed_at FROM stars WHERE account=? ORDER BY observed_at",
		account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stars []model.StarRecord
	for rows.Next() {
		var s model.StarRecord
		if err := rows.Scan(&s.ID, &s.Account, &s.Scope.Owner, &s.Scope.Name, &s.ObservedAt); err != nil {
			return nil, err
		}
		stars = append(stars, s)
	}
	return stars, rows.Err()
}
