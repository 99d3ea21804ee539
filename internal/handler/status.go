package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/platformnet/bounty-ledger/internal/model"
	"github.com/platformnet/bounty-ledger/internal/repository"
)

// StatusHandler serves the per-identity status view: the binding, the
// latest score snapshot, stars, and grant history.
type StatusHandler struct {
	Identities *repository.IdentityRepo
	Snapshots  *repository.SnapshotRepo
	Stars      *repository.StarRepo
	Bonuses    *repository.BonusRepo
}

func NewStatusHandler(i *repository.IdentityRepo, sn *repository.SnapshotRepo, st *repository.StarRepo, b *repository.BonusRepo) *StatusHandler {
	return &StatusHandler{Identities: i, Snapshots: sn, Stars: st, Bonuses: b}
}

type statusResp struct {
	IdentityKey string               `json:"identity_key"`
	Account     string               `json:"account"`
	BoundAt     time.Time            `json:"bound_at"`
	Latest      *model.ScoreSnapshot `json:"latest_snapshot,omitempty"`
	Stars       []model.StarRecord   `json:"stars,omitempty"`
	Grants      []model.BonusGrant   `json:"grants,omitempty"`
}

// Status returns everything known about one identity.  An identity
// without a snapshot yet is still shown; only an unknown key is a 404.
func (h *StatusHandler) Status(c echo.Context) error {
	key := c.Param("identity_key")
	if key == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identity_key required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Identities.GetByKey(ctx, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "identity not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	resp := statusResp{IdentityKey: id.IdentityKey, Account: id.Account, BoundAt: id.BoundAt}

	if snap, err := h.Snapshots.LatestForIdentity(ctx, id.IdentityKey); err == nil {
		resp.Latest = &snap
	} else if !errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if stars, err := h.Stars.ListByAccount(ctx, id.Account); err == nil {
		resp.Stars = stars
	}
	if grants, err := h.Bonuses.ListByIdentity(ctx, id.IdentityKey); err == nil {
		resp.Grants = grants
	}

	return c.JSON(http.StatusOK, resp)
}
