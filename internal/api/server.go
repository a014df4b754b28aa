// Package api assembles the HTTP server: operational endpoints, middleware
// and the huma operations under /api/v1.
package api

import (
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donaldgifford/wb-seller-tracker/api/openapi"
	"github.com/donaldgifford/wb-seller-tracker/internal/api/handlers"
	"github.com/donaldgifford/wb-seller-tracker/internal/api/middleware"
	"github.com/donaldgifford/wb-seller-tracker/internal/store"
)

// Title is the API title in the OpenAPI document.
const Title = "WB Seller Tracker API"

// Deps are the collaborators the handlers read from.
type Deps struct {
	Store    store.Store
	Tracker  handlers.TaskTracker
	Limiters handlers.LimiterSource
	Jobs     handlers.JobRunner

	// Checks are readiness checks run after the database ping.
	Checks  map[string]handlers.CheckFunc
	Logger  *slog.Logger
	Version string
}

// NewServer builds the Echo instance with every route registered.
func NewServer(d Deps) (*echo.Echo, huma.API) {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(
		middleware.Recovery(d.Logger),
		middleware.RequestLog(d.Logger),
		middleware.Metrics(),
	)

	health := handlers.NewHealthHandler(d.Store, d.Checks)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	openapi.RegisterRoutes(e)

	api := humaecho.New(e, huma.DefaultConfig(Title, d.Version))
	RegisterRoutes(api, d)

	return e, api
}

// RegisterRoutes registers the /api/v1 operations.
func RegisterRoutes(api huma.API, d Deps) {
	handlers.RegisterTaskRoutes(api, handlers.NewTasksHandler(d.Store, d.Tracker))
	handlers.RegisterBalanceRoutes(api, handlers.NewBalanceHandler(d.Store))
	handlers.RegisterRateLimitRoutes(api, handlers.NewRateLimitsHandler(d.Limiters, d.Store))
	handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(d.Store, d.Jobs))
	handlers.RegisterTriggerRoutes(api, handlers.NewTriggerHandler(d.Jobs))
	handlers.RegisterSystemStateRoutes(api, handlers.NewSystemStateHandler(d.Store, d.Limiters))
}
