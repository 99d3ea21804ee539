package registry

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformnet/bounty-ledger/internal/auth"
	"github.com/platformnet/bounty-ledger/internal/model"
	"github.com/platformnet/bounty-ledger/internal/repository"
)

type memStore struct {
	byKey     map[string]model.Identity
	byAccount map[string]model.Identity
	creates   int
}

func newMemStore() *memStore {
	return &memStore{byKey: map[string]model.Identity{}, byAccount: map[string]model.Identity{}}
}

func (m *memStore) GetByKey(_ context.Context, key string) (model.Identity, error) {
	if id, ok := m.byKey[key]; ok {
		return id, nil
	}
	return model.Identity{}, sql.ErrNoRows
}

func (m *memStore) GetByAccount(_ context.Context, account string) (model.Identity, error) {
	if id, ok := m.byAccount[account]; ok {
		return id, nil
	}
	return model.Identity{}, sql.ErrNoRows
}

func (m *memStore) Create(_ context.Context, key, account string, boundAt time.Time) (model.Identity, error) {
	m.creates++
	id := model.Identity{ID: uint64(m.creates), IdentityKey: key, Account: account, BoundAt: boundAt}
	m.byKey[key] = id
	m.byAccount[account] = id
	return id, nil
}

func signedClaim(t *testing.T, account string, claimedAt int64) (key, sig string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	msg := auth.RegisterMessage(account, claimedAt)
	return auth.EncodeIdentityKey(pub), hex.EncodeToString(ed25519.Sign(priv, []byte(msg)))
}

func fixedClock(ts int64) func() time.Time {
	return func() time.Time { return time.Unix(ts, 0).UTC() }
}

func TestRegisterCreatesBinding(t *testing.T) {
	store := newMemStore()
	claimedAt := int64(1705590000)
	key, sig := signedClaim(t, "alice", claimedAt)
	svc := NewService(store).WithClock(fixedClock(claimedAt + 10))

	id, err := svc.Register(context.Background(), key, "Alice", sig, claimedAt)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Account)
	assert.Equal(t, key, id.IdentityKey)
	assert.Equal(t, 1, store.creates)
}

func TestRegisterIdempotentForSamePair(t *testing.T) {
	store := newMemStore()
	claimedAt := int64(1705590000)
	key, sig := signedClaim(t, "alice", claimedAt)
	svc := NewService(store).WithClock(fixedClock(claimedAt + 10))

	first, err := svc.Register(context.Background(), key, "alice", sig, claimedAt)
	require.NoError(t, err)
	second, err := svc.Register(context.Background(), key, "alice", sig, claimedAt)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.creates, "re-registering the same pair must not insert a row")
}

func TestRegisterConflictOnReboundKey(t *testing.T) {
	store := newMemStore()
	claimedAt := int64(1705590000)
	key, sig := signedClaim(t, "alice", claimedAt)
	svc := NewService(store).WithClock(fixedClock(claimedAt + 10))

	_, err := svc.Register(context.Background(), key, "alice", sig, claimedAt)
	require.NoError(t, err)

	// Same key, different account: rejected, original binding unchanged.
	_, err = svc.Register(context.Background(), key, "mallory", sig, claimedAt)
	assert.ErrorIs(t, err, ErrMappingConflict)
	kept, err := store.GetByKey(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "alice", kept.Account)
}

func TestRegisterConflictOnReboundAccount(t *testing.T) {
	store := newMemStore()
	claimedAt := int64(1705590000)
	key1, sig1 := signedClaim(t, "alice", claimedAt)
	svc := NewService(store).WithClock(fixedClock(claimedAt + 10))

	_, err := svc.Register(context.Background(), key1, "alice", sig1, claimedAt)
	require.NoError(t, err)

	key2, sig2 := signedClaim(t, "alice", claimedAt)
	_, err = svc.Register(context.Background(), key2, "alice", sig2, claimedAt)
	assert.ErrorIs(t, err, ErrMappingConflict)
}

// racingStore simulates a concurrent registration winning the unique
// key race: Create lands the competitor's binding and fails with the
// duplicate sentinel the MySQL repository would surface.
type racingStore struct {
	*memStore
	winner model.Identity
}

func (r *racingStore) Create(_ context.Context, _, _ string, _ time.Time) (model.Identity, error) {
	r.byKey[r.winner.IdentityKey] = r.winner
	r.byAccount[r.winner.Account] = r.winner
	return model.Identity{}, repository.ErrDuplicateKey
}

func TestRegisterRaceSamePairIsIdempotent(t *testing.T) {
	claimedAt := int64(1705590000)
	key, sig := signedClaim(t, "alice", claimedAt)
	store := &racingStore{
		memStore: newMemStore(),
		winner:   model.Identity{ID: 7, IdentityKey: key, Account: "alice"},
	}
	svc := NewService(store).WithClock(fixedClock(claimedAt + 10))

	id, err := svc.Register(context.Background(), key, "alice", sig, claimedAt)
	require.NoError(t, err)
	assert.Equal(t, store.winner, id)
}

func TestRegisterRaceOtherAccountIsConflict(t *testing.T) {
	claimedAt := int64(1705590000)
	key, sig := signedClaim(t, "alice", claimedAt)
	store := &racingStore{
		memStore: newMemStore(),
		winner:   model.Identity{ID: 7, IdentityKey: key, Account: "bob"},
	}
	svc := NewService(store).WithClock(fixedClock(claimedAt + 10))

	_, err := svc.Register(context.Background(), key, "alice", sig, claimedAt)
	assert.ErrorIs(t, err, ErrMappingConflict)
}

func TestRegisterRaceOtherKeyIsConflict(t *testing.T) {
	claimedAt := int64(1705590000)
	key, sig := signedClaim(t, "alice", claimedAt)
	store := &racingStore{
		memStore: newMemStore(),
		winner:   model.Identity{ID: 7, IdentityKey: "someoneelse", Account: "alice"},
	}
	svc := NewService(store).WithClock(fixedClock(claimedAt + 10))

	_, err := svc.Register(context.Background(), key, "alice", sig, claimedAt)
	assert.ErrorIs(t, err, ErrMappingConflict)
}

func TestRegisterRejectsExpiredClaim(t *testing.T) {
	store := newMemStore()
	claimedAt := int64(1705590000)
	key, sig := signedClaim(t, "alice", claimedAt)

	svc := NewService(store).WithClock(fixedClock(claimedAt + 301))
	_, err := svc.Register(context.Background(), key, "alice", sig, claimedAt)
	assert.ErrorIs(t, err, auth.ErrReplayExpired)

	svc = NewService(store).WithClock(fixedClock(claimedAt - 5))
	_, err = svc.Register(context.Background(), key, "alice", sig, claimedAt)
	assert.ErrorIs(t, err, auth.ErrReplayExpired)
	assert.Zero(t, store.creates)
}

func TestRegisterRejectsBadSignature(t *testing.T) {
	store := newMemStore()
	claimedAt := int64(1705590000)
	key, _ := signedClaim(t, "alice", claimedAt)
	_, foreignSig := signedClaim(t, "alice", claimedAt)

	svc := NewService(store).WithClock(fixedClock(claimedAt + 10))
	_, err := svc.Register(context.Background(), key, "alice", foreignSig, claimedAt)
	assert.ErrorIs(t, err, auth.ErrSignatureInvalid)
	assert.Zero(t, store.creates)
}
