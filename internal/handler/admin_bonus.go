package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/platformnet/bounty-ledger/internal/repository"
)

// AdminBonusHandler manages administrator bonus grants.
type AdminBonusHandler struct {
	Bonuses    *repository.BonusRepo
	Identities *repository.IdentityRepo
}

func NewAdminBonusHandler(b *repository.BonusRepo, i *repository.IdentityRepo) *AdminBonusHandler {
	return &AdminBonusHandler{Bonuses: b, Identities: i}
}

type grantReq struct {
	IdentityKey string  `json:"identity_key"`
	Amount      float64 `json:"amount"`
	Reason      string  `json:"reason"`
	TTLHours    int     `json:"ttl_hours"`
}

// Grant issues a bonus.  The target identity must be registered; the
// amount must be in (0, 1.0].  The operator name from the token is
// recorded as the issuer.
func (h *AdminBonusHandler) Grant(c echo.Context) error {
	var req grantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.IdentityKey == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identity_key required"})
	}
	operator, _ := c.Get("user_id").(string)
	if operator == "" {
		operator = "admin"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Identities.GetByKey(ctx, req.IdentityKey); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "identity not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	ttl := time.Duration(req.TTLHours) * time.Hour
	grant, err := h.Bonuses.Grant(ctx, req.IdentityKey, req.Amount, req.Reason, operator, ttl)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidBonusAmount) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_bonus_amount"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant failed"})
	}
	return c.JSON(http.StatusCreated, grant)
}

// Revoke soft-revokes a grant by id.  The row is kept for audit.
func (h *AdminBonusHandler) Revoke(c echo.Context) error {
	grantID := c.Param("id")
	if grantID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "grant id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Bonuses.Revoke(ctx, grantID); err != nil {
		if errors.Is(err, repository.ErrGrantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "grant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
