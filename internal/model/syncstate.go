package model

import "time"

// TrackedScope is one scope the syncer polls.  Inactive scopes keep
// their historical items but are skipped by the scheduler.
type TrackedScope struct {
	ID     uint64 // tracked_scopes.id
	Scope  Scope  // tracked_scopes.scope_owner / scope_name
	Active bool   // tracked_scopes.active
}

// SyncState is per-scope sync bookkeeping surfaced on the admin status
// endpoint: when the last attempt finished and how many items it has
// ingested cumulatively.
type SyncState struct {
	Scope       Scope      // sync_state.scope_owner / scope_name
	LastSyncAt  *time.Time // sync_state.last_sync_at (nullable before first run)
	ItemsSynced int        // sync_state.items_synced
}
