package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/platformnet/bounty-ledger/internal/model"
)

// ScopeRepo persists the set of scopes the scheduler polls plus
// per-scope sync bookkeeping.
type ScopeRepo struct{ DB *sql.DB }

func NewScopeRepo(db *sql.DB) *ScopeRepo { return &ScopeRepo{DB: db} }

// Register adds a scope to the tracked set, reactivating it if it was
// previously deactivated.  Idempotent.
func (r *ScopeRepo) Register(ctx context.Context, scope model.Scope) error {
	scope.Owner = strings.ToLower(strings.TrimSpace(scope.Owner))
	scope.Name = strings.ToLower(strings.TrimSpace(scope.Name))
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO tracked_scopes (scope_owner, scope_name, active) VALUES (?,?,1)
		 ON DUPLICATE KEY UPDATE active=1`,
		scope.Owner, scope.Name)
	return err
}

// Deactivate stops the scheduler from polling a scope.  Historical
// items for the scope stay in the ledger untouched.
func (r *ScopeRepo) Deactivate(ctx context.Context, scope model.Scope) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE tracked_scopes SET active=0 WHERE scope_owner=? AND scope_name=?",
		scope.Owner, scope.Name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActive returns the scopes the scheduler should poll.
func (r *ScopeRepo) ListActive(ctx context.Context) ([]model.TrackedScope, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, scope_owner, scope_name, active FROM tracked_scopes WHERE active=1 ORDER BY scope_owner, scope_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scopes []model.TrackedScope
	for rows.Next() {
		var s model.TrackedScope
		if err := rows.Scan(&s.ID, &s.Scope.Owner, &s.Scope.Name, &s.Active); err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, rows.Err()
}

// UpdateSyncState records a finished sync attempt.  items_synced
// accumulates across runs.
func (r *ScopeRepo) UpdateSyncState(ctx context.Context, scope model.Scope, itemsSynced int, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO sync_state (scope_owner, scope_name, last_sync_at, items_synced) VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE last_sync_at=VALUES(last_sync_at), items_synced=items_synced+VALUES(items_synced)`,
		scope.Owner, scope.Name, at, itemsSynced)
	return err
}

// GetSyncState reads one scope's bookkeeping.  A scope that has never
// synced reads as a zero state, not an error.
func (r *ScopeRepo) GetSyncState(ctx context.Context, scope model.Scope) (model.SyncState, error) {
	state := model.SyncState{Scope: scope}
	err := r.DB.QueryRowContext(ctx,
		"SELECT last_sync_at, items_synced FROM sync_state WHERE scope_owner=? AND scope_name=? LIMIT 1",
		scope.Owner, scope.Name).Scan(&state.LastSyncAt, &state.ItemsSynced)
	if err == sql.ErrNoRows {
		return state, nil
	}
	return state, err
}

// ListSyncStates returns bookkeeping for every tracked scope, active or
// not, for the admin status endpoint.
func (r *ScopeRepo) ListSyncStates(ctx context.Context) ([]model.SyncState, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT ts.scope_owner, ts.scope_name, ss.last_sync_at, COALESCE(ss.items_synced, 0)
		   FROM tracked_scopes ts
		   LEFT JOIN sync_state ss ON ss.scope_owner = ts.scope_owner AND ss.scope_name = ts.scope_name
		  ORDER BY ts.scope_owner, ts.scope_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []model.SyncState
	for rows.Next() {
		var s model.SyncState
		if err := rows.Scan(&s.Scope.Owner, &s.Scope.Name, &s.LastSyncAt, &s.ItemsSynced); err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, rows.Err()
}
