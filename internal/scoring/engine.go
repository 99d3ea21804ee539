package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/platformnet/bounty-ledger/internal/model"
)

// DefaultWindow is the canonical rolling scoring window.
const DefaultWindow = 24 * time.Hour

// Params fixes the knobs of one scoring run.  The epoch is deliberately
// an argument to Run, not a field here, so multiple epochs can be
// computed or replayed concurrently for audit.
type Params struct {
	Formula        FormulaVersion
	WeightPerPoint float64
	Window         time.Duration
}

// ActivityView supplies per-identity aggregates for one window as of a
// single consistent point in time.  The production implementation reads
// all ledgers inside one repeatable-read transaction so a sync finishing
// mid-run can never mix pre- and post-sync classifications for the same
// item.
type ActivityView interface {
	WindowActivity(ctx context.Context, windowStart, now time.Time) ([]Activity, error)
}

// SnapshotWriter persists the append-only output of a run.
type SnapshotWriter interface {
	InsertBatch(ctx context.Context, snaps []model.ScoreSnapshot) error
}

// Engine computes score snapshots.  A run is a pure computation over the
// view; its only side effect is snapshot persistence.
type Engine struct {
	view   ActivityView
	snaps  SnapshotWriter
	params Params
}

// NewEngine wires an engine.  Zero-valued params fall back to the
// canonical formula, weight-per-point and window.
func NewEngine(view ActivityView, snaps SnapshotWriter, params Params) *Engine {
	if params.Formula == "" {
		params.Formula = FormulaV2
	}
	if params.WeightPerPoint == 0 {
		params.WeightPerPoint = DefaultWeightPerPoint
	}
	if params.Window == 0 {
		params.Window = DefaultWindow
	}
	return &Engine{view: view, snaps: snaps, params: params}
}

// Run scores every identity with window activity and persists one
// snapshot per identity for the given epoch.  The returned slice is the
// exact set persisted, in view order.
func (e *Engine) Run(ctx context.Context, epoch uint64, now time.Time) ([]model.ScoreSnapshot, error) {
	activities, err := e.view.WindowActivity(ctx, now.Add(-e.params.Window), now)
	if err != nil {
		return nil, fmt.Errorf("scoring: load window activity: %w", err)
	}

	snaps := make([]model.ScoreSnapshot, 0, len(activities))
	for _, a := range activities {
		r := Score(e.params.Formula, e.params.WeightPerPoint, a)
		snaps = append(snaps, model.ScoreSnapshot{
			Epoch:          epoch,
			IdentityKey:    a.IdentityKey,
			Account:        a.Account,
			ValidCount:     a.ValidCount,
			InvalidCount:   a.InvalidCount,
			DuplicateCount: a.DuplicateCount,
			StarCount:      a.StarCount,
			StarBonus:      r.StarBonus,
			AdminBonus:     a.AdminBonus,
			Penalty:        r.Penalty,
			NetPoints:      r.NetPoints,
			RawWeight:      r.RawWeight,
			IsPenalized:    r.IsPenalized,
			FormulaVersion: string(e.params.Formula),
			ComputedAt:     now,
		})
	}
	if len(snaps) == 0 {
		return snaps, nil
	}
	if err := e.snaps.InsertBatch(ctx, snaps); err != nil {
		return nil, fmt.Errorf("scoring: persist snapshots: %w", err)
	}
	return snaps, nil
}
