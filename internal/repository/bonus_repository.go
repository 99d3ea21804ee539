package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/platformnet/bounty-ledger/internal/model"
)

// DefaultGrantTTL applies when a grant is issued without an explicit
// lifetime.
const DefaultGrantTTL = 24 * time.Hour

// BonusRepo persists administrator bonus grants.  The table is
// append-only except for the soft-revoke flag; expiry is evaluated in
// the WHERE clause of every read, never by mutating rows, so a cleanup
// sweep can never race a scoring read.
type BonusRepo struct{ DB *sql.DB }

func NewBonusRepo(db *sql.DB) *BonusRepo { return &BonusRepo{DB: db} }

// Grant issues a bonus for an identity.  Amount must be in (0, 1.0].
// A zero ttl falls back to DefaultGrantTTL.
func (r *BonusRepo) Grant(ctx context.Context, identityKey string, amount float64, reason, grantedBy string, ttl time.Duration) (model.BonusGrant, error) {
	if amount <= 0 || amount > 1.0 {
		return model.BonusGrant{}, ErrInvalidBonusAmount
	}
	if ttl <= 0 {
		ttl = DefaultGrantTTL
	}
	now := time.Now().UTC()
	g := model.BonusGrant{
		ID:          uuid.NewString(),
		IdentityKey: identityKey,
		Amount:      amount,
		Reason:      reason,
		GrantedBy:   grantedBy,
		GrantedAt:   now,
		ExpiresAt:   now.Add(ttl),
		Active:      true,
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO bonus_grants (id, identity_key, amount, reason, granted_by, granted_at, expires_at, active)
		 VALUES (?,?,?,?,?,?,?,1)`,
		g.ID, g.IdentityKey, g.Amount, g.Reason, g.GrantedBy, g.GrantedAt, g.ExpiresAt)
	if err != nil {
		return model.BonusGrant{}, err
	}
	return g, nil
}

// Revoke flips a grant's active flag.  Single-row atomic update;
// revoking an already-revoked or unknown grant returns ErrGrantNotFound.
func (r *BonusRepo) Revoke(ctx context.Context, grantID string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE bonus_grants SET active=0 WHERE id=? AND active=1", grantID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrGrantNotFound
	}
	return nil
}

// Get fetches one grant by id.
func (r *BonusRepo) Get(ctx context.Context, grantID string) (model.BonusGrant, error) {
	var g model.BonusGrant
	err := r.DB.QueryRowContext(ctx,
		`SELECT id,identity_key,amount,reason,granted_by,granted_at,expires_at,active
		   FROM bonus_grants WHERE id=? LIMIT 1`, grantID).
		Scan(&g.ID, &g.IdentityKey, &g.Amount, &g.Reason, &g.GrantedBy, &g.GrantedAt, &g.ExpiresAt, &g.Active)
	return g, mapNoRows(err)
}

// ActiveSum returns the summed amount of active, unexpired grants for
// one identity as of now.
func (r *BonusRepo) ActiveSum(ctx context.Context, identityKey string, now time.Time) (float64, error) {
	var sum float64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount),0) FROM bonus_grants WHERE identity_key=? AND active=1 AND expires_at > ?",
		identityKey, now).Scan(&sum)
	return sum, err
}

// ListByIdentity returns all grants for an identity, revoked and
// expired included, newest first.  The status endpoint shows the full
// history.
func (r *BonusRepo) ListByIdentity(ctx context.Context, identityKey string) ([]model.BonusGrant, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,identity_key,amount,reason,granted_by,granted_at,expires_at,active
		   FROM bonus_grants WHERE identity_key=? ORDER BY granted_at DESC`, identityKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []model.BonusGrant
	for rows.Next() {
		var g model.BonusGrant
		if err := rows.Scan(&g.ID, &g.IdentityKey, &g.Amount, &g.Reason, &g.GrantedBy, &g.GrantedAt, &g.ExpiresAt, &g.Active); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
