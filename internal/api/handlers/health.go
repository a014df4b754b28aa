// Package handlers implements HTTP handlers for the wb-seller-tracker API.
package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckFunc is an extra readiness check. A non-nil error marks the
// service unready.
type CheckFunc func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes. Readiness requires
// the database and every registered check to pass.
type HealthHandler struct {
	db     Pinger
	checks map[string]CheckFunc
}

// NewHealthHandler creates a HealthHandler. checks are keyed by the name
// reported in the readiness body; nil entries are skipped.
func NewHealthHandler(db Pinger, checks map[string]CheckFunc) *HealthHandler {
	return &HealthHandler{db: db, checks: checks}
}

// StatusResponse is the liveness body.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse is the readiness body.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Healthz returns 200 while the process is running.
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Readyz pings the database and runs the registered checks. It returns
// 503 with the failing check's error when any of them fails.
func (h *HealthHandler) Readyz(c echo.Context) error {
	ctx := c.Request().Context()

	resp := ReadyResponse{Status: "ready", Checks: map[string]string{}}
	record := func(name string, err error) {
		if err != nil {
			resp.Status = "unavailable"
			resp.Checks[name] = err.Error()
			return
		}
		resp.Checks[name] = "ok"
	}

	record("database", h.db.Ping(ctx))
	for name, check := range h.checks {
		if check == nil {
			continue
		}
		record(name, check(ctx))
	}

	code := http.StatusOK
	if resp.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}
