package wb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Request describes one call to the API.
type Request struct {
	Method   string
	Path     string
	Category Category
	Query    url.Values
	// Body is encoded as JSON when non-nil.
	Body any
}

// Result is the decoded body of a successful response. Exactly one of
// Empty, JSON and Text describes the payload.
type Result struct {
	StatusCode int
	Header     http.Header
	// Empty is true for 204 No Content.
	Empty bool
	JSON  json.RawMessage
	// Text holds the raw body when it was not valid JSON.
	Text string
}

// Decode unmarshals the JSON payload into v. An empty result leaves v
// untouched; a text result is an error.
func (r *Result) Decode(v any) error {
	switch {
	case r.Empty:
		return nil
	case r.JSON == nil:
		return fmt.Errorf("decoding response: body is not JSON: %.64q", r.Text)
	}
	if err := json.Unmarshal(r.JSON, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Decode unmarshals a result into a new T.
func Decode[T any](r *Result) (T, error) {
	var v T
	err := r.Decode(&v)
	return v, err
}

// Observer receives request and limiter events. Implementations must be
// safe for concurrent use.
type Observer interface {
	ObserveRequest(cat Category, method string, status int, kind string, d time.Duration)
	ObserveLimiter(cat Category, waited time.Duration, state LimiterState)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(Category, string, int, string, time.Duration) {}
func (nopObserver) ObserveLimiter(Category, time.Duration, LimiterState)        {}

// Executor sends requests through the per-category limiters and maps
// every outcome to a Result or an *APIError. It never retries.
type Executor struct {
	httpClient *http.Client
	token      string
	baseURL    func(Category) string
	limiters   map[Category]*TokenBucket
	logger     *slog.Logger
	observer   Observer
	tracer     trace.Tracer
	userAgent  string
}

// Execute performs req and classifies the response.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	limiter, ok := e.limiters[req.Category]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", req.Category)
	}

	ctx, span := e.tracer.Start(ctx, "wb "+req.Method+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("wb.category", string(req.Category)),
			attribute.String("http.request.method", req.Method),
		))
	defer span.End()

	waitStart := time.Now()
	if err := limiter.Acquire(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limiter")
		return nil, err
	}
	waited := time.Since(waitStart)

	httpReq, err := e.newHTTPRequest(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		apiErr := transportError(err)
		e.observer.ObserveRequest(req.Category, req.Method, 0, apiErr.Kind.String(), time.Since(start))
		e.observer.ObserveLimiter(req.Category, waited, limiter.State())
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Kind.String())
		e.logger.Warn("wb request failed",
			"category", req.Category, "method", req.Method, "path", req.Path, "error", err)
		return nil, apiErr
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	limiter.UpdateFromHeaders(resp.Header)
	e.observer.ObserveLimiter(req.Category, waited, limiter.State())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr := &APIError{Kind: KindConnection, Message: "reading response body", Err: err}
		span.RecordError(apiErr)
		return nil, apiErr
	}

	res, classified := classify(resp.StatusCode, resp.Header, body)
	kind := "ok"
	if classified != nil {
		kind = classified.Kind.String()
		span.RecordError(classified)
		span.SetStatus(codes.Error, kind)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	e.observer.ObserveRequest(req.Category, req.Method, resp.StatusCode, kind, time.Since(start))

	e.logger.Debug("wb request",
		"category", req.Category,
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"waited", waited,
		"duration", time.Since(start),
	)

	if classified != nil {
		return nil, classified
	}
	return res, nil
}

func (e *Executor) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	u := strings.TrimRight(e.baseURL(req.Category), "/") + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", e.token)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if e.userAgent != "" {
		httpReq.Header.Set("User-Agent", e.userAgent)
	}
	return httpReq, nil
}

func transportError(err error) *APIError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &APIError{Kind: KindTimeout, Message: "request timed out", Err: err}
	}
	return &APIError{Kind: KindConnection, Message: "request failed", Err: err}
}

// classify maps a received response to a Result or an *APIError.
func classify(status int, header http.Header, body []byte) (*Result, *APIError) {
	if status >= 200 && status < 300 {
		res := &Result{StatusCode: status, Header: header}
		switch {
		case status == http.StatusNoContent:
			res.Empty = true
		case json.Valid(body):
			res.JSON = json.RawMessage(body)
		default:
			res.Text = string(body)
		}
		return res, nil
	}

	errBody := decodeErrorBody(body)
	apiErr := &APIError{
		Kind:       KindForStatus(status),
		StatusCode: status,
		Message:    errorMessage(status, errBody),
		Body:       errBody,
	}
	if apiErr.Kind == KindRateLimited {
		apiErr.RetryAfter = retryAfter(header)
	}
	return nil, apiErr
}

func decodeErrorBody(body []byte) map[string]any {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return map[string]any{"detail": string(body)}
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{"detail": v}
}

func errorMessage(status int, body map[string]any) string {
	// Some endpoints send {"error": true, "errorText": "..."}.
	for _, key := range []string{"detail", "message", "error", "errorText"} {
		switch v := body[key].(type) {
		case nil, bool:
			continue
		case string:
			if v != "" {
				return v
			}
		default:
			return fmt.Sprint(v)
		}
	}
	if detail, ok := body["detail"].(string); ok && detail == "" && len(body) == 1 {
		return http.StatusText(status)
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Sprint(body)
	}
	return string(data)
}

func retryAfter(h http.Header) time.Duration {
	for _, key := range []string{HeaderRateLimitRetry, "Retry-After"} {
		raw := strings.TrimSpace(h.Get(key))
		if raw == "" {
			continue
		}
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil || secs < 0 {
			continue
		}
		return time.Duration(secs * float64(time.Second))
	}
	return DefaultRetryAfter
}
