package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/tablerhq/tabler/internal/handler"
	"github.com/tablerhq/tabler/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring systems to verify that the
	// service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterSeating registers every front-of-house endpoint and applies the
// necessary middleware.  All seating routes live under /v1 and require a
// valid access token with the OWNER role; the token is issued by the account
// service and validated here with the shared secret.  The response cache runs
// after authentication so a hit never bypasses token validation and keys can
// include the operator id; pass nil to run without caching.
func RegisterSeating(e *echo.Echo, jwtSecret string, cache echo.MiddlewareFunc, browse *handler.BrowseHandler, assign *handler.AssignmentHandler, svc *handler.ServiceHandler, hist *handler.HistoryHandler) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("OWNER"))
	if cache != nil {
		g.Use(cache)
	}

	// Floor views.
	g.GET("/layouts/:id/tables", browse.ListTables)
	g.GET("/layouts/:id/sections", browse.ListSections)
	g.GET("/sections/:id/table-groups", browse.TableGroups)

	// Rotation and assignment.
	g.GET("/assignments/next", assign.Next)
	g.POST("/assignments/propose", assign.Propose)
	g.POST("/assignments/confirm", assign.Confirm)

	// Table lifecycle.
	g.POST("/tables/:id/complete", svc.Complete)
	g.POST("/tables/:id/move", svc.Move)

	// Service history ledger.
	g.GET("/history", hist.List)
	g.PATCH("/history/:id", hist.Edit)
	g.DELETE("/history/:id", hist.Delete)

	// Counter reconciliation.
	g.PUT("/sections/:id/count", browse.SetSectionCount)
}
