package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/platformnet/bounty-ledger/internal/auth"
	"github.com/platformnet/bounty-ledger/internal/config"
)

// AdminAuthHandler issues operator tokens.  There is a single operator
// account configured from the environment; the stored value is a bcrypt
// hash, never the password itself.
type AdminAuthHandler struct {
	Cfg config.Config
}

func NewAdminAuthHandler(cfg config.Config) *AdminAuthHandler {
	return &AdminAuthHandler{Cfg: cfg}
}

type adminLoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type adminLoginResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Login verifies operator credentials and returns a short-lived token.
func (h *AdminAuthHandler) Login(c echo.Context) error {
	var req adminLoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	if req.Username != h.Cfg.AdminUser || !auth.VerifyPassword(h.Cfg.AdminPassHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	tok, err := auth.NewOperatorToken(h.Cfg.JWTSecret, req.Username, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, adminLoginResp{Token: tok.Token, Expires: tok.Exp})
}
