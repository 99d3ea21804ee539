package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/platformnet/bounty-ledger/internal/auth"
	"github.com/platformnet/bounty-ledger/internal/registry"
)

// RegisterHandler exposes the identity registry over HTTP.
type RegisterHandler struct {
	Registry *registry.Service
}

func NewRegisterHandler(r *registry.Service) *RegisterHandler {
	return &RegisterHandler{Registry: r}
}

type registerReq struct {
	IdentityKey string `json:"identity_key"`
	Account     string `json:"account"`
	Signature   string `json:"signature"`
	ClaimedAt   int64  `json:"claimed_at"`
}

type registerResp struct {
	IdentityKey string    `json:"identity_key"`
	Account     string    `json:"account"`
	BoundAt     time.Time `json:"bound_at"`
}

// Register binds an external account to a network identity key.  The
// failure reason is always specific and stable: clients distinguish an
// expired claim from a bad signature from a conflicting binding.
func (h *RegisterHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.IdentityKey == "" || req.Account == "" || req.Signature == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identity_key/account/signature required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Registry.Register(ctx, req.IdentityKey, req.Account, req.Signature, req.ClaimedAt)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrReplayExpired):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "replay_expired"})
		case errors.Is(err, auth.ErrSignatureInvalid):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "signature_invalid"})
		case errors.Is(err, registry.ErrMappingConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "mapping_conflict"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	return c.JSON(http.StatusCreated, registerResp{
		IdentityKey: id.IdentityKey,
		Account:     id.Account,
		BoundAt:     id.BoundAt,
	})
}
