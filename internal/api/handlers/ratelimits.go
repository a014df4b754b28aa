package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

const defaultLimiterHistoryLimit = 100

// LimiterSource reports the live state of the marketplace rate limiters.
type LimiterSource interface {
	LimiterSnapshots() []domain.LimiterSnapshot
}

// LimiterHistoryProvider defines the store methods required for limiter history.
type LimiterHistoryProvider interface {
	ListLimiterSnapshots(ctx context.Context, category string, limit int) ([]domain.LimiterSnapshot, error)
}

// RateLimitsHandler provides the rate limiter status endpoints.
type RateLimitsHandler struct {
	source  LimiterSource
	history LimiterHistoryProvider
}

// NewRateLimitsHandler creates a new RateLimitsHandler.
func NewRateLimitsHandler(src LimiterSource, history LimiterHistoryProvider) *RateLimitsHandler {
	return &RateLimitsHandler{source: src, history: history}
}

// RateLimitsOutput is the response body for the live limiter state.
type RateLimitsOutput struct {
	Body []domain.LimiterSnapshot
}

// LimiterHistoryInput selects one category's stored snapshots.
type LimiterHistoryInput struct {
	Category string `path:"category" doc:"API category, e.g. prices"`
	Limit    int    `query:"limit"   doc:"Number of results (default 100)" minimum:"1" maximum:"1000"`
}

// GetRateLimits returns the current token count and capacity per category.
func (h *RateLimitsHandler) GetRateLimits(_ context.Context, _ *struct{}) (*RateLimitsOutput, error) {
	resp := &RateLimitsOutput{Body: []domain.LimiterSnapshot{}}
	if h.source == nil {
		return resp, nil
	}
	resp.Body = h.source.LimiterSnapshots()
	return resp, nil
}

// GetLimiterHistory returns stored snapshots of one category, newest first.
func (h *RateLimitsHandler) GetLimiterHistory(
	ctx context.Context,
	input *LimiterHistoryInput,
) (*RateLimitsOutput, error) {
	if _, err := wb.ParseCategory(input.Category); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	limit := input.Limit
	if limit == 0 {
		limit = defaultLimiterHistoryLimit
	}

	snaps, err := h.history.ListLimiterSnapshots(ctx, input.Category, limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("fetching limiter history failed: " + err.Error())
	}
	if snaps == nil {
		snaps = []domain.LimiterSnapshot{}
	}
	return &RateLimitsOutput{Body: snaps}, nil
}

// RegisterRateLimitRoutes registers the rate limiter endpoints with the Huma API.
func RegisterRateLimitRoutes(api huma.API, h *RateLimitsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-ratelimits",
		Method:      http.MethodGet,
		Path:        "/api/v1/ratelimits",
		Summary:     "Get marketplace rate limiter state",
		Description: "Returns the remaining tokens, capacity, and next refill time of every API category.",
		Tags:        []string{"wb"},
	}, h.GetRateLimits)

	huma.Register(api, huma.Operation{
		OperationID: "get-ratelimit-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/ratelimits/{category}/history",
		Summary:     "Get rate limiter history",
		Description: "Returns stored limiter snapshots of one API category, newest first.",
		Tags:        []string{"wb"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.GetLimiterHistory)
}
