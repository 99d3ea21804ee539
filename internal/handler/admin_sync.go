package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/platformnet/bounty-ledger/internal/model"
	"github.com/platformnet/bounty-ledger/internal/repository"
	"github.com/platformnet/bounty-ledger/internal/syncer"
)

// AdminSyncHandler exposes manual sync triggers, scope management, and
// sync bookkeeping.
type AdminSyncHandler struct {
	Syncer *syncer.Service
	Scopes *repository.ScopeRepo
}

func NewAdminSyncHandler(s *syncer.Service, scopes *repository.ScopeRepo) *AdminSyncHandler {
	return &AdminSyncHandler{Syncer: s, Scopes: scopes}
}

func scopeFromParams(c echo.Context) (model.Scope, bool) {
	owner := strings.TrimSpace(c.Param("owner"))
	name := strings.TrimSpace(c.Param("name"))
	if owner == "" || name == "" {
		return model.Scope{}, false
	}
	return model.Scope{Owner: owner, Name: name}, true
}

// TriggerSync runs a sync for one scope right now.  A sync already in
// flight for the scope is a 409: the manual trigger loses the lease, it
// does not queue behind the scheduled one.  Sync runs carry their own
// ledger timeout, so no per-request timeout is set here.
func (h *AdminSyncHandler) TriggerSync(c echo.Context) error {
	scope, ok := scopeFromParams(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "owner/name required"})
	}

	report, err := h.Syncer.SyncScope(c.Request().Context(), scope)
	if err != nil {
		switch {
		case errors.Is(err, syncer.ErrSyncInFlight):
			return c.JSON(http.StatusConflict, echo.Map{"error": "sync_in_flight"})
		case errors.Is(err, syncer.ErrSourceUnavailable):
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "source_unavailable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sync failed"})
	}
	return c.JSON(http.StatusOK, report)
}

// Ingest pushes an externally assembled batch through the same sync
// path as the poller.  Deployments without a feed collector use this to
// feed the ledger directly; the batch is diffed and tombstoned exactly
// like a pulled one.
func (h *AdminSyncHandler) Ingest(c echo.Context) error {
	scope, ok := scopeFromParams(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "owner/name required"})
	}
	var items []model.RawItem
	if err := c.Bind(&items); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	report, err := h.Syncer.Sync(c.Request().Context(), scope, items)
	if err != nil {
		if errors.Is(err, syncer.ErrSyncInFlight) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "sync_in_flight"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sync failed"})
	}
	return c.JSON(http.StatusOK, report)
}

// SyncStatus lists per-scope bookkeeping for every tracked scope.
func (h *AdminSyncHandler) SyncStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	states, err := h.Scopes.ListSyncStates(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if states == nil {
		states = []model.SyncState{}
	}
	return c.JSON(http.StatusOK, states)
}

type scopeReq struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// AddScope registers a scope for scheduled polling.  Idempotent.
func (h *AdminSyncHandler) AddScope(c echo.Context) error {
	var req scopeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Owner == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "owner/name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Scopes.Register(ctx, model.Scope{Owner: req.Owner, Name: req.Name}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "register scope failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"scope": req.Owner + "/" + req.Name})
}

// RemoveScope deactivates a scope.  Its items stay in the ledger.
func (h *AdminSyncHandler) RemoveScope(c echo.Context) error {
	scope, ok := scopeFromParams(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "owner/name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Scopes.Deactivate(ctx, scope); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "scope not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
