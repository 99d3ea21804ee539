package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/platformnet/bounty-ledger/internal/model"
	"github.com/platformnet/bounty-ledger/internal/repository"
)

// LeaderboardHandler serves ranked snapshots for an epoch.
type LeaderboardHandler struct {
	Snapshots *repository.SnapshotRepo
}

func NewLeaderboardHandler(s *repository.SnapshotRepo) *LeaderboardHandler {
	return &LeaderboardHandler{Snapshots: s}
}

type leaderboardRow struct {
	Rank        int     `json:"rank"`
	IdentityKey string  `json:"identity_key"`
	Account     string  `json:"account"`
	ValidCount  int     `json:"valid_count"`
	NetPoints   float64 `json:"net_points"`
	RawWeight   float64 `json:"raw_weight"`
	IsPenalized bool    `json:"is_penalized"`
}

type leaderboardResp struct {
	Epoch          uint64           `json:"epoch"`
	FormulaVersion string           `json:"formula_version,omitempty"`
	Rows           []leaderboardRow `json:"rows"`
}

// Leaderboard returns the ranked board for the latest epoch, or a
// specific one via ?epoch=N.  Penalized participants appear at the
// bottom with their penalty visible rather than being hidden; the board
// is an audit surface, not just a scoreboard.
func (h *LeaderboardHandler) Leaderboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var (
		epoch uint64
		err   error
	)
	if raw := c.QueryParam("epoch"); raw != "" {
		epoch, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid epoch"})
		}
	} else {
		epoch, err = h.Snapshots.LatestEpoch(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, leaderboardResp{Rows: []leaderboardRow{}})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
	}

	snaps, err := h.Snapshots.ListByEpoch(ctx, epoch)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	resp := leaderboardResp{Epoch: epoch, Rows: make([]leaderboardRow, 0, len(snaps))}
	for i, s := range snaps {
		if i == 0 {
			resp.FormulaVersion = s.FormulaVersion
		}
		resp.Rows = append(resp.Rows, rankRow(i+1, s))
	}
	return c.JSON(http.StatusOK, resp)
}

func rankRow(rank int, s model.ScoreSnapshot) leaderboardRow {
	return leaderboardRow{
		Rank:        rank,
		IdentityKey: s.IdentityKey,
		Account:     s.Account,
		ValidCount:  s.ValidCount,
		NetPoints:   s.NetPoints,
		RawWeight:   s.RawWeight,
		IsPenalized: s.IsPenalized,
	}
}
