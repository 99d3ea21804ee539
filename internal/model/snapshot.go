package model

import "time"

// ScoreSnapshot is one immutable record of a scoring run for one
// identity.  Snapshots are append-only and queryable by epoch so past
// runs stay reproducible even after the formula changes; the formula
// version that produced the row is stored alongside it.
//
// Fields:
//  ID             – primary key identifier.
//  Epoch          – scoring period the run belongs to.
//  IdentityKey    – scored identity.
//  Account        – bound account at the time of the run (denormalized for audit).
//  ValidCount     – valid items closed inside the window.
//  InvalidCount   – invalid items observed inside the window.
//  DuplicateCount – duplicate items observed inside the window.
//  StarCount      – lifetime star signals for the account.
//  StarBonus      – star points after the valid-count gate.
//  AdminBonus     – sum of active, unexpired grant amounts.
//  Penalty        – penalty points under the run's formula version.
//  NetPoints      – valid + star bonus - penalty.
//  RawWeight      – weight units before cross-participant normalization.
//  IsPenalized    – net points were <= 0 for this run.
//  FormulaVersion – formula that produced the row (e.g. "v2").
//  ComputedAt     – wall-clock end of the scoring window.
type ScoreSnapshot struct {
	ID             uint64    // score_snapshots.id
	Epoch          uint64    // score_snapshots.epoch
	IdentityKey    string    // score_snapshots.identity_key
	Account        string    // score_snapshots.account
	ValidCount     int       // score_snapshots.valid_count
	InvalidCount   int       // score_snapshots.invalid_count
	DuplicateCount int       // score_snapshots.duplicate_count
	StarCount      int       // score_snapshots.star_count
	StarBonus      float64   // score_snapshots.star_bonus
	AdminBonus     float64   // score_snapshots.admin_bonus
	Penalty        float64   // score_snapshots.penalty
	NetPoints      float64   // score_snapshots.net_points
	RawWeight      float64   // score_snapshots.raw_weight
	IsPenalized    bool      // score_snapshots.is_penalized
	FormulaVersion string    // score_snapshots.formula_version
	ComputedAt     time.Time // score_snapshots.computed_at
}
