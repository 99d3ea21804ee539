// Package repository implements the persisted ledgers on MySQL.  Each
// repository owns one table and the uniqueness key that table enforces.
// Sentinel values defined here allow higher layers such as handlers to
// distinguish between different failure scenarios. For example,
// ErrNotFound should translate into an HTTP 404 response, while
// ErrDuplicateKey usually means a concurrent writer got there first
// and the operation is an idempotent no-op.
package repository

import (
	"database/sql"
	"errors"
	"strings"
)

// ErrNotFound is returned when a lookup matches no row. Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned when an insert hits a uniqueness key.
// Callers decide whether that is a conflict or an idempotent no-op.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrGrantNotFound is returned when a revoke targets a grant id that
// does not exist or was already revoked.
var ErrGrantNotFound = errors.New("grant not found")

// ErrInvalidBonusAmount rejects grant amounts outside (0, 1.0].
var ErrInvalidBonusAmount = errors.New("bonus amount must be in (0, 1.0]")

// isDuplicateErr detects MySQL error 1062 (duplicate entry) without
// importing driver internals.
func isDuplicateErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// mapNoRows converts the driver's sentinel into the package's.
func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
