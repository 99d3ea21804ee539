package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/platformnet/bounty-ledger/internal/model"
	"github.com/platformnet/bounty-ledger/internal/syncer"
)

// AdminOverrideHandler lets an operator force-classify closed items the
// feed's labels never settled.
type AdminOverrideHandler struct {
	Syncer *syncer.Service
}

func NewAdminOverrideHandler(s *syncer.Service) *AdminOverrideHandler {
	return &AdminOverrideHandler{Syncer: s}
}

type overrideReq struct {
	ScopeOwner     string `json:"scope_owner"`
	ScopeName      string `json:"scope_name"`
	ItemID         int64  `json:"item_id"`
	Classification string `json:"classification"`
	ExpectedAuthor string `json:"expected_author"`
}

// Override marks a closed, unclassified item Invalid or Duplicate.
// Every rejection carries its specific reason; an operator retrying a
// failed override needs to know whether the item was already settled or
// simply not closed yet.
func (h *AdminOverrideHandler) Override(c echo.Context) error {
	var req overrideReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ScopeOwner == "" || req.ScopeName == "" || req.ItemID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "scope_owner/scope_name/item_id required"})
	}
	class := model.Classification(strings.ToUpper(strings.TrimSpace(req.Classification)))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	scope := model.Scope{Owner: req.ScopeOwner, Name: req.ScopeName}
	item, err := h.Syncer.Override(ctx, scope, req.ItemID, class, req.ExpectedAuthor)
	if err != nil {
		switch {
		case errors.Is(err, syncer.ErrInvalidClassification):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_classification"})
		case errors.Is(err, syncer.ErrNotClosed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "not_closed"})
		case errors.Is(err, syncer.ErrAlreadyClassified):
			return c.JSON(http.StatusConflict, echo.Map{"error": "already_classified"})
		case errors.Is(err, syncer.ErrAuthorMismatch):
			return c.JSON(http.StatusConflict, echo.Map{"error": "author_mismatch"})
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "override failed"})
	}
	return c.JSON(http.StatusOK, item)
}
