// Package registry binds external accounts to network identity keys.
// Bindings are a bijection and immutable: once a pair exists it can
// never be re-pointed, only re-submitted as a no-op.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platformnet/bounty-ledger/internal/auth"
	"github.com/platformnet/bounty-ledger/internal/model"
	"github.com/platformnet/bounty-ledger/internal/repository"
)

// ErrMappingConflict means the identity key or the account is already
// bound to a different counterpart.  The existing binding is untouched.
var ErrMappingConflict = errors.New("mapping conflict")

// IdentityStore is the slice of the identity ledger the registry needs.
// repository.IdentityRepo satisfies it.
type IdentityStore interface {
	GetByKey(ctx context.Context, identityKey string) (model.Identity, error)
	GetByAccount(ctx context.Context, account string) (model.Identity, error)
	Create(ctx context.Context, identityKey, account string, boundAt time.Time) (model.Identity, error)
}

// Service validates and persists registration claims.
type Service struct {
	store IdentityStore
	now   func() time.Time
}

// NewService wires a registry service.  The clock is injectable for
// replay-window tests.
func NewService(store IdentityStore) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock overrides the service clock.  Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register processes one signed registration claim.
//
// The account is lowercased before the signed message is reconstructed,
// so clients may sign either case as long as they sign the lowercase
// form.  Rejections are terminal and specific: auth.ErrReplayExpired,
// auth.ErrSignatureInvalid, or ErrMappingConflict.  Re-submitting an
// exact existing pair succeeds without inserting a row.
func (s *Service) Register(ctx context.Context, identityKey, account, signatureHex string, claimedAt int64) (model.Identity, error) {
	identityKey = strings.TrimSpace(identityKey)
	account = strings.ToLower(strings.TrimSpace(account))

	now := s.now()
	if err := auth.CheckClaimedAt(claimedAt, now); err != nil {
		return model.Identity{}, err
	}
	msg := auth.RegisterMessage(account, claimedAt)
	if err := auth.Verify(identityKey, msg, signatureHex); err != nil {
		return model.Identity{}, err
	}

	// Bijection check on both sides of the mapping before insert.  The
	// unique keys on the table back this up against concurrent claims.
	if existing, err := s.store.GetByKey(ctx, identityKey); err == nil {
		if existing.Account == account {
			return existing, nil // idempotent no-op
		}
		return model.Identity{}, ErrMappingConflict
	} else if !errors.Is(err, sql.ErrNoRows) {
		return model.Identity{}, fmt.Errorf("registry: lookup by key: %w", err)
	}
	if _, err := s.store.GetByAccount(ctx, account); err == nil {
		return model.Identity{}, ErrMappingConflict
	} else if !errors.Is(err, sql.ErrNoRows) {
		return model.Identity{}, fmt.Errorf("registry: lookup by account: %w", err)
	}

	id, err := s.store.Create(ctx, identityKey, account, now.UTC())
	if errors.Is(err, repository.ErrDuplicateKey) {
		// A concurrent claim won the race between the pre-checks and
		// the insert.  Re-read to learn which binding landed: the
		// identical pair is still an idempotent success, anything else
		// is the usual terminal conflict.
		if existing, lookupErr := s.store.GetByKey(ctx, identityKey); lookupErr == nil && existing.Account == account {
			return existing, nil
		}
		return model.Identity{}, ErrMappingConflict
	}
	if err != nil {
		return model.Identity{}, fmt.Errorf("registry: create binding: %w", err)
	}
	return id, nil
}
