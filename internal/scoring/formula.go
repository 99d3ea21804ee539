// Package scoring turns ledger state into per-identity weights.  The
// formula is pure and versioned: every snapshot records the version that
// produced it, and historical snapshots are never recomputed under a
// newer version.
package scoring

// FormulaVersion selects the penalty formula.  Two incompatible formulas
// exist in the system's history and must never be silently merged:
//
//	v1 – combined: penalty = max(0, (invalid + duplicate) - valid)
//	v2 – independent: penalty = max(0, invalid - valid) + max(0, duplicate - valid)
//
// Under v2 a participant's valid contributions act as a separate
// forgiveness buffer against each bad-signal type; v1 is strictly more
// punitive on mixed records.  v2 is canonical.
type FormulaVersion string

const (
	FormulaV1 FormulaVersion = "v1"
	FormulaV2 FormulaVersion = "v2"
)

// Canonical scoring constants.  WeightPerPoint is configuration-selected
// at runtime; this is the default the network currently runs.
const (
	DefaultWeightPerPoint = 0.02
	StarBonusPerScope     = 0.25
	StarBonusMinValid     = 2
)

// Activity is one identity's aggregated ledger state for a scoring
// window: classification counts inside the window, lifetime star count,
// and the sum of active unexpired grant amounts.
type Activity struct {
	IdentityKey    string
	Account        string
	ValidCount     int
	InvalidCount   int
	DuplicateCount int
	StarCount      int
	AdminBonus     float64
}

// Result is the computed score for one Activity.
type Result struct {
	StarBonus   float64
	Penalty     float64
	NetPoints   float64
	RawWeight   float64
	IsPenalized bool
}

// Penalty computes penalty points for the given formula version.
func Penalty(v FormulaVersion, valid, invalid, duplicate int) float64 {
	switch v {
	case FormulaV1:
		if bad := invalid + duplicate; bad > valid {
			return float64(bad - valid)
		}
		return 0
	default: // v2
		var p int
		if invalid > valid {
			p += invalid - valid
		}
		if duplicate > valid {
			p += duplicate - valid
		}
		return float64(p)
	}
}

// StarBonus computes star bonus points.  Stars only start paying once an
// identity has at least StarBonusMinValid valid items in the window,
// which keeps star farming from outweighing actual contributions.
func StarBonus(validCount, starCount int) float64 {
	if validCount < StarBonusMinValid {
		return 0
	}
	return float64(starCount) * StarBonusPerScope
}

// Score applies the full formula to one identity's activity.  The admin
// bonus lands on the raw weight even while the identity is penalized;
// the overall result never goes below zero.
func Score(v FormulaVersion, weightPerPoint float64, a Activity) Result {
	r := Result{
		StarBonus: StarBonus(a.ValidCount, a.StarCount),
		Penalty:   Penalty(v, a.ValidCount, a.InvalidCount, a.DuplicateCount),
	}
	r.NetPoints = float64(a.ValidCount) + r.StarBonus - r.Penalty
	if r.NetPoints > 0 {
		r.RawWeight = r.NetPoints * weightPerPoint
	}
	r.RawWeight += a.AdminBonus
	if r.RawWeight < 0 {
		r.RawWeight = 0
	}
	r.IsPenalized = r.NetPoints <= 0
	return r
}
