package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/platformnet/bounty-ledger/internal/repository"
	"github.com/platformnet/bounty-ledger/internal/scoring"
)

// WeightsHandler serves the current publishable weight vector.
type WeightsHandler struct {
	Snapshots *repository.SnapshotRepo
	Mode      scoring.Mode
}

func NewWeightsHandler(s *repository.SnapshotRepo, mode scoring.Mode) *WeightsHandler {
	return &WeightsHandler{Snapshots: s, Mode: mode}
}

type weightsResp struct {
	Epoch     uint64                        `json:"epoch"`
	Mode      string                        `json:"mode"`
	Weights   []scoring.Assignment          `json:"weights"`
	Quantized []scoring.QuantizedAssignment `json:"quantized"`
}

// Weights returns the latest epoch's vector under the configured mode,
// both as floats and in the consensus layer's uint16 fixed point.  An
// empty ledger yields an empty vector, not an error.
func (h *WeightsHandler) Weights(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	epoch, err := h.Snapshots.LatestEpoch(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusOK, weightsResp{
			Mode: string(h.Mode), Weights: []scoring.Assignment{}, Quantized: []scoring.QuantizedAssignment{},
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	snaps, err := h.Snapshots.ListByEpoch(ctx, epoch)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	weights := scoring.Normalize(h.Mode, snaps)
	return c.JSON(http.StatusOK, weightsResp{
		Epoch:     epoch,
		Mode:      string(h.Mode),
		Weights:   weights,
		Quantized: scoring.Quantize(weights),
	})
}
