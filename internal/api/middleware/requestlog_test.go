package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestRequestLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		status        int
		providedReqID string
		wantLogFields []string
	}{
		{
			name:   "logs GET request with generated ID",
			method: http.MethodGet,
			path:   "/api/v1/tasks",
			status: http.StatusOK,
			wantLogFields: []string{
				"method=GET",
				"path=/api/v1/tasks",
				"status=200",
				"duration_ms=",
				"request_id=",
			},
		},
		{
			name:   "logs POST request",
			method: http.MethodPost,
			path:   "/api/v1/tasks",
			status: http.StatusCreated,
			wantLogFields: []string{
				"method=POST",
				"status=201",
			},
		},
		{
			name:          "uses provided request ID",
			method:        http.MethodGet,
			path:          "/test",
			status:        http.StatusOK,
			providedReqID: "custom-req-id-123",
			wantLogFields: []string{
				"request_id=custom-req-id-123",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			e := echo.New()
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			if tt.providedReqID != "" {
				req.Header.Set(requestIDHeader, tt.providedReqID)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := RequestLog(logger)(func(c echo.Context) error {
				return c.NoContent(tt.status)
			})

			err := handler(c)
			require.NoError(t, err)

			logOutput := buf.String()
			for _, field := range tt.wantLogFields {
				assert.Contains(t, logOutput, field)
			}

			// Response should have the request ID header.
			respID := rec.Header().Get(requestIDHeader)
			assert.NotEmpty(t, respID)

			if tt.providedReqID != "" {
				assert.Equal(t, tt.providedReqID, respID)
			}

			// Context should have request_id.
			assert.NotEmpty(t, c.Get("request_id"))
		})
	}
}

func TestRequestLog_ProbeSuppression(t *testing.T) {
	t.Parallel()

	// Each step serves one probe request; logged says whether it must add
	// output.
	type step struct {
		status int
		logged bool
	}

	tests := []struct {
		name  string
		path  string
		steps []step
	}{
		{
			name:  "healthz logs only its first success",
			path:  "/healthz",
			steps: []step{{200, true}, {200, false}, {200, false}},
		},
		{
			name:  "readyz failures are always logged",
			path:  "/readyz",
			steps: []step{{503, true}, {503, true}},
		},
		{
			name:  "success after a failure is logged again",
			path:  "/readyz",
			steps: []step{{200, true}, {200, false}, {503, true}, {200, true}, {200, false}},
		},
		{
			name:  "other paths are never suppressed",
			path:  "/api/v1/state",
			steps: []step{{200, true}, {200, true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			e := echo.New()
			i := 0
			handler := RequestLog(logger)(func(c echo.Context) error {
				return c.NoContent(tt.steps[i].status)
			})

			for ; i < len(tt.steps); i++ {
				before := buf.Len()
				req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
				require.NoError(t, handler(e.NewContext(req, httptest.NewRecorder())))

				if tt.steps[i].logged {
					assert.Greater(t, buf.Len(), before, "step %d should log", i)
				} else {
					assert.Equal(t, before, buf.Len(), "step %d should be suppressed", i)
				}
			}
		})
	}
}

func TestRequestLog_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/api/v1/tasks", http.StatusOK, "level=INFO"},
		{"/api/v1/tasks/x", http.StatusNotFound, "level=WARN"},
		{"/api/v1/jobs/poll_tasks/run", http.StatusInternalServerError, "level=ERROR"},
		{"/healthz", http.StatusServiceUnavailable, "level=WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			handler := RequestLog(logger)(func(c echo.Context) error {
				return c.NoContent(tt.status)
			})
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			require.NoError(t, handler(echo.New().NewContext(req, httptest.NewRecorder())))

			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestRequestLog_TraceID(t *testing.T) {
	t.Parallel()

	traceID := trace.TraceID{0x0a, 0x0b, 0x0c, 0x01}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     trace.SpanID{0x01},
		TraceFlags: trace.FlagsSampled,
	})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := RequestLog(logger)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", http.NoBody)
	req = req.WithContext(trace.ContextWithSpanContext(req.Context(), sc))
	require.NoError(t, handler(echo.New().NewContext(req, httptest.NewRecorder())))

	assert.Contains(t, buf.String(), "trace_id="+traceID.String())
}
