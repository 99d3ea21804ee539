package model

import "time"

// Identity binds one external tracker account to one network identity
// key.  The mapping is a bijection: an identity key is bound to exactly
// one account and vice versa, and a binding is never changed once
// created.  Re-submitting an identical pair is a no-op at the service
// layer, so a row in this table is immutable for its whole lifetime.
//
// Fields:
//  ID          – primary key identifier.
//  IdentityKey – network-native public address (canonical hex encoding).
//  Account     – external account name, stored lowercase.
//  BoundAt     – when the signed registration claim was accepted.
type Identity struct {
	ID          uint64    // identities.id
	IdentityKey string    // identities.identity_key (unique)
	Account     string    // identities.account (unique, lowercase)
	BoundAt     time.Time // identities.bound_at
}
