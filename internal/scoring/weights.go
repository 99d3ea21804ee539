package scoring

import (
	"math"
	"sort"

	"github.com/platformnet/bounty-ledger/internal/model"
)

// Mode selects how raw weights become the published vector.  The three
// policies all exist in the system's history; the mode is configuration,
// not code.
//
//	raw        – publish raw weights as-is; the vector may sum below 1.0
//	             and the remainder is implicitly unassigned.
//	normalized – divide by the total so the vector sums to 1.0 whenever
//	             any positive entry exists.
//	capped     – raw weights with a per-participant cap of 1.0.
type Mode string

const (
	ModeRaw        Mode = "raw"
	ModeNormalized Mode = "normalized"
	ModeCapped     Mode = "capped"
)

// MaxQuantized is the fixed-point scale used at the publish boundary.
const MaxQuantized = 65535

// Assignment is one participant's publishable weight.
type Assignment struct {
	IdentityKey string  `json:"identity_key"`
	Weight      float64 `json:"weight"`
}

// QuantizedAssignment is an Assignment converted to the consensus
// layer's uint16 fixed-point representation.
type QuantizedAssignment struct {
	IdentityKey string `json:"identity_key"`
	Weight      uint16 `json:"weight"`
}

// Normalize maps an epoch's snapshots to the published weight vector.
// Repeated rows for one identity collapse to the most recently written
// one first: a scoring run replayed into the same epoch must never
// double anyone's share. Penalized and zero-weight entries are excluded
// up front; the result is sorted by weight descending with identity key
// as tiebreaker so the output is deterministic for a given input set.
func Normalize(mode Mode, snaps []model.ScoreSnapshot) []Assignment {
	snaps = latestPerIdentity(snaps)
	out := make([]Assignment, 0, len(snaps))
	var total float64
	for _, s := range snaps {
		if s.IsPenalized || s.RawWeight <= 0 {
			continue
		}
		w := s.RawWeight
		if mode == ModeCapped && w > 1.0 {
			w = 1.0
		}
		out = append(out, Assignment{IdentityKey: s.IdentityKey, Weight: w})
		total += w
	}
	if mode == ModeNormalized && total > 0 {
		for i := range out {
			out[i].Weight /= total
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].IdentityKey < out[j].IdentityKey
	})
	return out
}

// latestPerIdentity keeps one snapshot per identity key: the row with
// the highest ID, which is the last write within the epoch. Rows
// straight from the engine all carry ID zero and distinct identities,
// so those pass through untouched.
func latestPerIdentity(snaps []model.ScoreSnapshot) []model.ScoreSnapshot {
	idx := make(map[string]int, len(snaps))
	out := make([]model.ScoreSnapshot, 0, len(snaps))
	for _, s := range snaps {
		if i, ok := idx[s.IdentityKey]; ok {
			if s.ID >= out[i].ID {
				out[i] = s
			}
			continue
		}
		idx[s.IdentityKey] = len(out)
		out = append(out, s)
	}
	return out
}

// Quantize converts weights to uint16 fixed point for submission.  The
// conversion happens only at the publish boundary; nothing inside the
// scoring engine ever sees quantized values.
func Quantize(assignments []Assignment) []QuantizedAssignment {
	out := make([]QuantizedAssignment, 0, len(assignments))
	for _, a := range assignments {
		q := math.Floor(a.Weight * MaxQuantized)
		if q < 0 {
			q = 0
		}
		if q > MaxQuantized {
			q = MaxQuantized
		}
		out = append(out, QuantizedAssignment{IdentityKey: a.IdentityKey, Weight: uint16(q)})
	}
	return out
}
