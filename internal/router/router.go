package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/platformnet/bounty-ledger/internal/handler"    // import the handlers that implement business logic
	"github.com/platformnet/bounty-ledger/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// PublicHandlers bundles the unauthenticated read/write surface.
type PublicHandlers struct {
	Register    *handler.RegisterHandler
	Status      *handler.StatusHandler
	Leaderboard *handler.LeaderboardHandler
	Weights     *handler.WeightsHandler
}

// RegisterPublic registers the open endpoints under /v1.  Registration
// is a write but carries its own signature-based authentication; the
// read endpoints are intended to sit behind the cache and rate-limit
// middleware applied on the Echo instance.
func RegisterPublic(e *echo.Echo, p PublicHandlers) {
	// Bind an external account to a network identity key.  Auth is the
	// signed claim in the body, not a session.
	e.POST("/v1/register", p.Register.Register)
	// Everything known about one identity: binding, latest snapshot,
	// stars and grant history.
	e.GET("/v1/status/:identity_key", p.Status.Status)
	// Ranked board for the latest (or ?epoch=N) scoring run.
	e.GET("/v1/leaderboard", p.Leaderboard.Leaderboard)
	// The publishable weight vector under the configured mode, float and
	// uint16 fixed point.
	e.GET("/v1/weights", p.Weights.Weights)
}

// AdminHandlers bundles the operator surface.
type AdminHandlers struct {
	Auth     *handler.AdminAuthHandler
	Bonus    *handler.AdminBonusHandler
	Star     *handler.AdminStarHandler
	Override *handler.AdminOverrideHandler
	Sync     *handler.AdminSyncHandler
	Score    *handler.AdminScoreHandler
}

// RegisterAdmin registers the operator endpoints.  Login lives outside
// the protected group; everything else requires a valid token carrying
// the ADMIN role.
func RegisterAdmin(e *echo.Echo, a AdminHandlers, jwtSecret string) {
	e.POST("/v1/admin/login", a.Auth.Login)

	// Attach middlewares at group construction time for clarity.
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	// ---- Signal ledgers ----
	g.POST("/bonus", a.Bonus.Grant)
	g.DELETE("/bonus/:id", a.Bonus.Revoke)
	g.POST("/stars", a.Star.Record)

	// ---- Event ledger ----
	g.POST("/override", a.Override.Override)
	g.POST("/scopes", a.Sync.AddScope)
	g.DELETE("/scopes/:owner/:name", a.Sync.RemoveScope)
	g.POST("/sync/:owner/:name", a.Sync.TriggerSync)
	g.POST("/ingest/:owner/:name", a.Sync.Ingest)
	g.GET("/sync", a.Sync.SyncStatus)

	// ---- Scoring ----
	g.POST("/score", a.Score.Trigger)
}
