// Package auth implements the cryptographic side of identity binding:
// verifying signed registration claims against network-native identity
// keys, and issuing operator tokens for the admin surface.
package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ReplayWindow is how far in the past a claimed_at timestamp may lie.
// Future timestamps are rejected outright; the window only tolerates
// clock skew, not replay.
const ReplayWindow = 5 * time.Minute

var (
	// ErrReplayExpired means claimed_at is in the future or older than
	// the replay window relative to server time.
	ErrReplayExpired = errors.New("replay expired")
	// ErrSignatureInvalid means the signature does not verify against
	// the identity key, or either is malformed.
	ErrSignatureInvalid = errors.New("signature invalid")
)

// DecodeIdentityKey parses the canonical address encoding (hex, with or
// without 0x prefix) into an ed25519 public key.
func DecodeIdentityKey(identityKey string) (ed25519.PublicKey, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(identityKey), "0x")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode identity key: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("identity key is %d bytes, expected %d", len(b), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(b), nil
}

// EncodeIdentityKey renders a public key in the canonical address
// encoding used everywhere in storage and over the API.
func EncodeIdentityKey(pub ed25519.PublicKey) string {
	return hex.EncodeToString(pub)
}

// RegisterMessage reconstructs the exact message a client must sign for
// a registration claim.  The account must already be lowercased; the
// registry canonicalizes before calling this.
func RegisterMessage(account string, claimedAt int64) string {
	return fmt.Sprintf("register:%s:%d", account, claimedAt)
}

// Verify checks a signature (hex, with or without 0x prefix) over
// message against the identity key.  It returns ErrSignatureInvalid for
// any malformed input rather than distinguishing decode failures, so
// callers can't be probed for key format details.
func Verify(identityKey, message, signatureHex string) error {
	pub, err := DecodeIdentityKey(identityKey)
	if err != nil {
		return ErrSignatureInvalid
	}
	raw := strings.TrimPrefix(strings.TrimSpace(signatureHex), "0x")
	sig, err := hex.DecodeString(raw)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return ErrSignatureInvalid
	}
	if !ed25519.Verify(pub, []byte(message), sig) {
		return ErrSignatureInvalid
	}
	return nil
}

// CheckClaimedAt enforces the replay window: claimed_at must not be in
// the future and must be younger than ReplayWindow at server time now.
func CheckClaimedAt(claimedAt int64, now time.Time) error {
	ts := now.Unix()
	if claimedAt > ts {
		return ErrReplayExpired
	}
	if ts-claimedAt >= int64(ReplayWindow/time.Second) {
		return ErrReplayExpired
	}
	return nil
}
