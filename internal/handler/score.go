package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/platformnet/bounty-ledger/internal/model"
	"github.com/platformnet/bounty-ledger/internal/queue"
	"github.com/platformnet/bounty-ledger/internal/scoring"
	queue_publisher "github.com/platformnet/bounty-ledger/internal/service"
)

// ScoreRunner runs the scoring engine and publishes the resulting
// weight vector.  Both the scheduler tick and the manual admin trigger
// go through this type so a run always behaves the same regardless of
// what started it.
type ScoreRunner struct {
	Engine *scoring.Engine
	Mode   scoring.Mode
	// EpochLength converts wall-clock time into an epoch number.
	EpochLength time.Duration

	now func() time.Time
}

func NewScoreRunner(engine *scoring.Engine, mode scoring.Mode, epochLength time.Duration) *ScoreRunner {
	if epochLength <= 0 {
		epochLength = time.Hour
	}
	return &ScoreRunner{Engine: engine, Mode: mode, EpochLength: epochLength, now: time.Now}
}

// Epoch numbers are derived from wall-clock time so independent
// observers computing the same window agree on the epoch without
// coordination.
func (r *ScoreRunner) Epoch(now time.Time) uint64 {
	return uint64(now.Unix()) / uint64(r.EpochLength.Seconds())
}

// Run executes one scoring run for the current epoch and publishes the
// vector to the weights.published queue.
func (r *ScoreRunner) Run(ctx context.Context) error {
	_, _, err := r.RunAt(ctx, r.now().UTC())
	return err
}

// RunAt scores the epoch containing now and publishes the vector.  A
// publish failure is logged but does not fail the run; the snapshots
// are already persisted and the vector is served from them.
func (r *ScoreRunner) RunAt(ctx context.Context, now time.Time) ([]model.ScoreSnapshot, uint64, error) {
	epoch := r.Epoch(now)

	snaps, err := r.Engine.Run(ctx, epoch, now)
	if err != nil {
		return nil, epoch, fmt.Errorf("scoring run epoch %d: %w", epoch, err)
	}
	log.Printf("score-runner: epoch %d scored %d identities", epoch, len(snaps))
	if len(snaps) == 0 {
		return snaps, epoch, nil
	}

	weights := scoring.Normalize(r.Mode, snaps)
	quantized := scoring.Quantize(weights)

	accounts := make(map[string]string, len(snaps))
	for _, s := range snaps {
		accounts[s.IdentityKey] = s.Account
	}
	event := queue.WeightsPublishedEvent{
		Epoch:          epoch,
		Mode:           string(r.Mode),
		FormulaVersion: snaps[0].FormulaVersion,
		PublishedAt:    now.Format(time.RFC3339),
	}
	for i, w := range weights {
		event.Entries = append(event.Entries, queue.WeightEntry{
			IdentityKey: w.IdentityKey,
			Account:     accounts[w.IdentityKey],
			Weight:      w.Weight,
			Quantized:   quantized[i].Weight,
		})
	}
	if err := queue_publisher.PublishWeightsPublished(ctx, event); err != nil {
		log.Printf("score-runner: publish weights event failed: %v", err)
	}
	return snaps, epoch, nil
}

// AdminScoreHandler triggers scoring runs on demand.
type AdminScoreHandler struct {
	Runner *ScoreRunner
}

func NewAdminScoreHandler(r *ScoreRunner) *AdminScoreHandler {
	return &AdminScoreHandler{Runner: r}
}

type scoreResp struct {
	Epoch     uint64                `json:"epoch"`
	Snapshots []model.ScoreSnapshot `json:"snapshots"`
}

// Trigger runs the engine immediately and returns the snapshots it
// produced.  Unlike the scheduler path this surfaces the run's output
// to the operator for inspection.
func (h *AdminScoreHandler) Trigger(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	snaps, epoch, err := h.Runner.RunAt(ctx, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "scoring run failed"})
	}
	if snaps == nil {
		snaps = []model.ScoreSnapshot{}
	}
	return c.JSON(http.StatusOK, scoreResp{Epoch: epoch, Snapshots: snaps})
}
