package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"
)

const requestIDHeader = "X-Request-ID"

// probeState tracks whether a probe path has logged a success since its
// last failure.
type probeState struct {
	healthz atomic.Bool
	readyz  atomic.Bool
}

func (p *probeState) flag(path string) *atomic.Bool {
	switch path {
	case "/healthz":
		return &p.healthz
	case "/readyz":
		return &p.readyz
	default:
		return nil
	}
}

// RequestLog returns Echo middleware that logs requests with structured fields.
// It generates a request ID if none is provided and propagates it through
// the response header and echo context. Server errors log at error level,
// client errors at warn. The trace id is added when the request carries a
// sampled span.
//
// Probe paths log their first success and every failure (at warn); repeated
// successes are dropped until the next failure.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	probes := &probeState{}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			c.Set("request_id", reqID)
			c.Response().Header().Set(requestIDHeader, reqID)

			err := next(c)

			status := c.Response().Status
			path := c.Request().URL.Path
			level := levelForStatus(status)

			if seen := probes.flag(path); seen != nil {
				if status < http.StatusBadRequest {
					if seen.Swap(true) {
						return err
					}
				} else {
					seen.Store(false)
					level = slog.LevelWarn
				}
			}

			attrs := []any{
				"method", c.Request().Method,
				"path", path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			}
			if sc := trace.SpanContextFromContext(c.Request().Context()); sc.IsValid() {
				attrs = append(attrs, "trace_id", sc.TraceID().String())
			}

			log.Log(context.WithoutCancel(c.Request().Context()), level, "request", attrs...)

			return err
		}
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
