package middleware

// identity.go holds the request-identity helper shared across middleware
// files. The only authenticated principal in this service is the operator:
// JWTAuth stores the token subject under "user_id", and everything on the
// public surface buckets as "anon".

import (
    "github.com/labstack/echo/v4"
)

// currentUserID reads the operator login set by JWTAuth, or "anon" when the
// request carries no token.
func currentUserID(c echo.Context) string {
    if v := c.Get("user_id"); v != nil {
        if s, ok := v.(string); ok && s != "" { return s }
    }
    return "anon"
}
