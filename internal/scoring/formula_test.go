package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPenaltyIndependentBuffers(t *testing.T) {
	cases := []struct {
		name                     string
		valid, invalid, duplicate int
		want                     float64
	}{
		{"all zero", 0, 0, 0, 0},
		{"fully forgiven", 5, 5, 5, 0},
		{"invalid overflow only", 3, 7, 0, 4},
		{"duplicate overflow only", 3, 0, 7, 4},
		{"both overflow", 5, 7, 8, 5},
		{"no valid buffer", 0, 2, 3, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Penalty(FormulaV2, tc.valid, tc.invalid, tc.duplicate))
		})
	}
}

func TestPenaltyV1CombinesBadSignals(t *testing.T) {
	// v1 subtracts valid once from the combined total, so a record that
	// v2 fully forgives can still be penalized under v1.
	assert.Equal(t, 5.0, Penalty(FormulaV1, 5, 5, 5))
	assert.Equal(t, 0.0, Penalty(FormulaV2, 5, 5, 5))

	assert.Equal(t, 10.0, Penalty(FormulaV1, 5, 7, 8))
	assert.Equal(t, 5.0, Penalty(FormulaV2, 5, 7, 8))
}

func TestPenaltyMonotonic(t *testing.T) {
	for _, v := range []FormulaVersion{FormulaV1, FormulaV2} {
		prev := 0.0
		for invalid := 0; invalid <= 12; invalid++ {
			p := Penalty(v, 4, invalid, 3)
			assert.GreaterOrEqual(t, p, prev, "formula %s, invalid=%d", v, invalid)
			prev = p
		}
		prev = 0.0
		for duplicate := 0; duplicate <= 12; duplicate++ {
			p := Penalty(v, 4, 3, duplicate)
			assert.GreaterOrEqual(t, p, prev, "formula %s, duplicate=%d", v, duplicate)
			prev = p
		}
	}
}

func TestPenaltyZeroWhenCovered(t *testing.T) {
	for valid := 0; valid <= 8; valid++ {
		for invalid := 0; invalid <= valid; invalid++ {
			for duplicate := 0; duplicate <= valid; duplicate++ {
				assert.Zero(t, Penalty(FormulaV2, valid, invalid, duplicate))
			}
		}
	}
}

func TestScorePenalizedScenario(t *testing.T) {
	// valid=5, invalid=7, duplicate=8 -> penalty 5, net 0, weight 0.
	r := Score(FormulaV2, DefaultWeightPerPoint, Activity{
		ValidCount: 5, InvalidCount: 7, DuplicateCount: 8,
	})
	assert.Equal(t, 5.0, r.Penalty)
	assert.Equal(t, 0.0, r.NetPoints)
	assert.Equal(t, 0.0, r.RawWeight)
	assert.True(t, r.IsPenalized)
}

func TestScoreStarBonusScenario(t *testing.T) {
	// valid=48, stars=5 -> star bonus 1.25, net 49.25, weight 0.985.
	r := Score(FormulaV2, DefaultWeightPerPoint, Activity{
		ValidCount: 48, StarCount: 5,
	})
	assert.InDelta(t, 1.25, r.StarBonus, 1e-9)
	assert.InDelta(t, 49.25, r.NetPoints, 1e-9)
	assert.InDelta(t, 0.985, r.RawWeight, 1e-9)
	assert.False(t, r.IsPenalized)
}

func TestStarBonusGatedOnValidCount(t *testing.T) {
	assert.Zero(t, StarBonus(0, 10))
	assert.Zero(t, StarBonus(1, 10))
	assert.InDelta(t, 2.5, StarBonus(2, 10), 1e-9)
}

func TestAdminBonusAppliesWhilePenalized(t *testing.T) {
	r := Score(FormulaV2, DefaultWeightPerPoint, Activity{
		ValidCount: 0, InvalidCount: 4, AdminBonus: 0.5,
	})
	assert.True(t, r.IsPenalized)
	assert.InDelta(t, 0.5, r.RawWeight, 1e-9)
}
