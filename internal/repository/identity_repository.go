package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/platformnet/bounty-ledger/internal/model"
)

// IdentityRepo persists the identity registry.  Rows are immutable
// after creation; the table carries unique keys on both identity_key
// and account, so the bijection is enforced twice: once in the registry
// service and once here at insert time for concurrent registrations.
type IdentityRepo struct{ DB *sql.DB }

func NewIdentityRepo(db *sql.DB) *IdentityRepo { return &IdentityRepo{DB: db} }

// GetByKey fetches a binding by identity key.  sql.ErrNoRows means the
// key is unbound.
func (r *IdentityRepo) GetByKey(ctx context.Context, identityKey string) (model.Identity, error) {
	var id model.Identity
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,identity_key,account,bound_at FROM identities WHERE identity_key=? LIMIT 1",
		identityKey).Scan(&id.ID, &id.IdentityKey, &id.Account, &id.BoundAt)
	return id, err
}

// GetByAccount fetches a binding by normalized account.
func (r *IdentityRepo) GetByAccount(ctx context.Context, account string) (model.Identity, error) {
	account = strings.ToLower(strings.TrimSpace(account))
	var id model.Identity
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,identity_key,account,bound_at FROM identities WHERE account=? LIMIT 1",
		account).Scan(&id.ID, &id.IdentityKey, &id.Account, &id.BoundAt)
	return id, err
}

// Create inserts one binding.  A 1062 here means a concurrent
// registration won the race on one of the unique keys; the caller
// re-reads to find out which pair actually landed.
func (r *IdentityRepo) Create(ctx context.Context, identityKey, account string, boundAt time.Time) (model.Identity, error) {
	account = strings.ToLower(strings.TrimSpace(account))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO identities (identity_key, account, bound_at) VALUES (?,?,?)",
		identityKey, account, boundAt)
	if err != nil {
		if isDuplicateErr(err) {
			return model.Identity{}, ErrDuplicateKey
		}
		return model.Identity{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Identity{}, err
	}
	return model.Identity{ID: uint64(id), IdentityKey: identityKey, Account: account, BoundAt: boundAt}, nil
}
