package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeyPair(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return EncodeIdentityKey(pub), priv
}

func TestVerifyRoundTrip(t *testing.T) {
	key, priv := newKeyPair(t)
	msg := RegisterMessage("alice", 1705590000)
	sig := hex.EncodeToString(ed25519.Sign(priv, []byte(msg)))

	assert.NoError(t, Verify(key, msg, sig))
	assert.NoError(t, Verify(key, msg, "0x"+sig))
	assert.ErrorIs(t, Verify(key, msg+"x", sig), ErrSignatureInvalid)
	assert.ErrorIs(t, Verify(key, msg, sig[:64]), ErrSignatureInvalid)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	key, _ := newKeyPair(t)
	_, otherPriv := newKeyPair(t)
	msg := RegisterMessage("alice", 1705590000)
	sig := hex.EncodeToString(ed25519.Sign(otherPriv, []byte(msg)))
	assert.ErrorIs(t, Verify(key, msg, sig), ErrSignatureInvalid)
}

func TestVerifyRejectsMalformedKey(t *testing.T) {
	assert.ErrorIs(t, Verify("not-hex", "m", "00"), ErrSignatureInvalid)
	assert.ErrorIs(t, Verify("deadbeef", "m", "00"), ErrSignatureInvalid) // wrong length
}

func TestRegisterMessageFormat(t *testing.T) {
	assert.Equal(t, "register:alice:1705590000", RegisterMessage("alice", 1705590000))
}

func TestCheckClaimedAtWindow(t *testing.T) {
	claimed := int64(1705590000)

	// 290s later: inside the 5-minute window.
	assert.NoError(t, CheckClaimedAt(claimed, time.Unix(1705590290, 0)))
	// 301s later: just past the window.
	assert.ErrorIs(t, CheckClaimedAt(claimed, time.Unix(1705590301, 0)), ErrReplayExpired)
	// Exactly at the boundary counts as expired.
	assert.ErrorIs(t, CheckClaimedAt(claimed, time.Unix(1705590300, 0)), ErrReplayExpired)
	// Future timestamps are never accepted.
	assert.ErrorIs(t, CheckClaimedAt(claimed, time.Unix(1705589999, 0)), ErrReplayExpired)
	// Same-second claims are fine.
	assert.NoError(t, CheckClaimedAt(claimed, time.Unix(claimed, 0)))
}
