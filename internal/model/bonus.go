package model

import "time"

// BonusGrant is an administrator-issued bonus for one identity.  Grants
// are append-only: revocation flips Active to false and expiry is
// evaluated when the grant is read, never by a background sweep, so a
// cleanup pass can never race a concurrent scoring read.
//
// Fields:
//  ID          – uuid primary key.
//  IdentityKey – identity the bonus applies to.
//  Amount      – weight contribution in (0, 1.0].
//  Reason      – free-form operator note.
//  GrantedBy   – operator that issued the grant.
//  GrantedAt   – issue timestamp.
//  ExpiresAt   – hard expiry; the grant contributes only while now < ExpiresAt.
//  Active      – soft-revoke flag.
type BonusGrant struct {
	ID          string    // bonus_grants.id (uuid)
	IdentityKey string    // bonus_grants.identity_key
	Amount      float64   // bonus_grants.amount
	Reason      string    // bonus_grants.reason
	GrantedBy   string    // bonus_grants.granted_by
	GrantedAt   time.Time // bonus_grants.granted_at
	ExpiresAt   time.Time // bonus_grants.expires_at
	Active      bool      // bonus_grants.active
}

// Contributes reports whether the grant counts toward scoring at the
// given instant.
func (g BonusGrant) Contributes(now time.Time) bool {
	return g.Active && now.Before(g.ExpiresAt)
}
