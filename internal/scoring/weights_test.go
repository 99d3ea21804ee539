package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformnet/bounty-ledger/internal/model"
)

func snap(key string, weight float64, penalized bool) model.ScoreSnapshot {
	return model.ScoreSnapshot{IdentityKey: key, RawWeight: weight, IsPenalized: penalized}
}

func TestNormalizeExcludesPenalizedAndZero(t *testing.T) {
	out := Normalize(ModeRaw, []model.ScoreSnapshot{
		snap("a", 0.5, false),
		snap("b", 0.3, true),
		snap("c", 0, false),
	})
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].IdentityKey)
	assert.Equal(t, 0.5, out[0].Weight)
}

func TestNormalizeSumsToOne(t *testing.T) {
	out := Normalize(ModeNormalized, []model.ScoreSnapshot{
		snap("a", 0.9, false),
		snap("b", 0.6, false),
		snap("c", 0.3, false),
	})
	require.Len(t, out, 3)
	var total float64
	for _, a := range out {
		total += a.Weight
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	// Sorted descending by weight.
	assert.Equal(t, "a", out[0].IdentityKey)
	assert.Equal(t, "c", out[2].IdentityKey)
}

func TestNormalizeCollapsesReplayedRows(t *testing.T) {
	// A run replayed into the same epoch appends a second row per
	// identity; only the last write may count toward the vector.
	first := snap("k1", 0.4, false)
	first.ID = 1
	replay := snap("k1", 0.4, false)
	replay.ID = 2
	other := snap("k2", 0.2, false)
	other.ID = 3

	out := Normalize(ModeRaw, []model.ScoreSnapshot{first, replay, other})
	require.Len(t, out, 2)
	assert.Equal(t, "k1", out[0].IdentityKey)
	assert.Equal(t, 0.4, out[0].Weight)
	assert.Equal(t, 0.2, out[1].Weight)
}

func TestNormalizeReplayUsesLastWrite(t *testing.T) {
	stale := snap("k1", 0.8, false)
	stale.ID = 1
	fresh := snap("k1", 0.4, false)
	fresh.ID = 2

	out := Normalize(ModeRaw, []model.ScoreSnapshot{fresh, stale})
	require.Len(t, out, 1)
	assert.Equal(t, 0.4, out[0].Weight)
}

func TestNormalizeEmptyWhenNoPositiveEntries(t *testing.T) {
	out := Normalize(ModeNormalized, []model.ScoreSnapshot{
		snap("a", 0, false),
		snap("b", 0.7, true),
	})
	assert.Empty(t, out)
}

func TestNormalizeCappedMode(t *testing.T) {
	out := Normalize(ModeCapped, []model.ScoreSnapshot{
		snap("a", 2.4, false),
		snap("b", 0.4, false),
	})
	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0].Weight)
	assert.Equal(t, 0.4, out[1].Weight)
}

func TestNormalizeRawModeLeavesRemainderUnassigned(t *testing.T) {
	out := Normalize(ModeRaw, []model.ScoreSnapshot{
		snap("a", 0.2, false),
		snap("b", 0.1, false),
	})
	require.Len(t, out, 2)
	var total float64
	for _, a := range out {
		total += a.Weight
	}
	assert.Less(t, total, 1.0)
}

func TestQuantizeFixedPoint(t *testing.T) {
	q := Quantize([]Assignment{
		{IdentityKey: "a", Weight: 1.0},
		{IdentityKey: "b", Weight: 0.5},
		{IdentityKey: "c", Weight: 0.0},
	})
	require.Len(t, q, 3)
	assert.Equal(t, uint16(65535), q[0].Weight)
	assert.Equal(t, uint16(32767), q[1].Weight) // floor(0.5 * 65535)
	assert.Equal(t, uint16(0), q[2].Weight)
}

func TestQuantizedNormalizedVectorFitsScale(t *testing.T) {
	out := Normalize(ModeNormalized, []model.ScoreSnapshot{
		snap("a", 0.31, false),
		snap("b", 0.27, false),
		snap("c", 0.42, false),
		snap("d", 0.11, false),
	})
	var sum int
	for _, q := range Quantize(out) {
		sum += int(q.Weight)
	}
	assert.LessOrEqual(t, sum, MaxQuantized)
}
