package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/platformnet/bounty-ledger/internal/model"
	"github.com/platformnet/bounty-ledger/internal/repository"
)

// AdminStarHandler records star signals observed by the operator or an
// out-of-band collector.
type AdminStarHandler struct {
	Stars *repository.StarRepo
}

func NewAdminStarHandler(s *repository.StarRepo) *AdminStarHandler {
	return &AdminStarHandler{Stars: s}
}

type starReq struct {
	Account    string `json:"account"`
	ScopeOwner string `json:"scope_owner"`
	ScopeName  string `json:"scope_name"`
}

// Record inserts a star if absent.  Recording the same star twice is
// success with created=false, not an error.
func (h *AdminStarHandler) Record(c echo.Context) error {
	var req starReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Account = strings.ToLower(strings.TrimSpace(req.Account))
	if req.Account == "" || req.ScopeOwner == "" || req.ScopeName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "account/scope_owner/scope_name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	scope := model.Scope{Owner: req.ScopeOwner, Name: req.ScopeName}
	created, err := h.Stars.Record(ctx, req.Account, scope, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record failed"})
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, echo.Map{"created": created})
}
