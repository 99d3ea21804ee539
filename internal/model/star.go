package model

import "time"

// StarRecord notes that an external account starred a tracked scope.
// One row per (account, scope); re-observing the same star is a no-op.
// Stars are append-only and are not limited to the scoring window.
type StarRecord struct {
	ID         uint64    // stars.id
	Account    string    // stars.account (lowercase)
	Scope      Scope     // stars.scope_owner / scope_name
	ObservedAt time.Time // stars.observed_at
}
