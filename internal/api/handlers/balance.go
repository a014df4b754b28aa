package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/wb-seller-tracker/internal/store"
	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

const (
	defaultBalanceHistoryWindow = 7 * 24 * time.Hour
	defaultBalanceHistoryLimit  = 100
)

// BalanceProvider defines the store methods required by the balance handler.
type BalanceProvider interface {
	LatestBalance(ctx context.Context) (*domain.BalanceSnapshot, error)
	ListBalanceSnapshots(ctx context.Context, since time.Time, limit int) ([]domain.BalanceSnapshot, error)
}

// BalanceHandler serves stored balance snapshots.
type BalanceHandler struct {
	store   BalanceProvider
	nowFunc func() time.Time
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(s BalanceProvider) *BalanceHandler {
	return &BalanceHandler{store: s, nowFunc: time.Now}
}

// BalanceOutput is the response for the latest balance.
type BalanceOutput struct {
	Body struct {
		domain.BalanceSnapshot
		Blocked float64 `json:"blocked" doc:"Part of the balance not yet withdrawable"`
	}
}

// BalanceHistoryInput selects a window of balance snapshots.
type BalanceHistoryInput struct {
	Since string `query:"since" doc:"Oldest snapshot to return, RFC 3339 (default 7 days ago)" format:"date-time"`
	Limit int    `query:"limit" doc:"Number of results (default 100)"                          minimum:"1" maximum:"1000"`
}

// BalanceHistoryOutput is the response for balance history.
type BalanceHistoryOutput struct {
	Body []domain.BalanceSnapshot
}

// GetBalance returns the most recent balance snapshot.
func (h *BalanceHandler) GetBalance(ctx context.Context, _ *struct{}) (*BalanceOutput, error) {
	b, err := h.store.LatestBalance(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, huma.Error404NotFound("no balance snapshot yet")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("fetching balance failed: " + err.Error())
	}

	resp := &BalanceOutput{}
	resp.Body.BalanceSnapshot = *b
	resp.Body.Blocked = b.Blocked()
	return resp, nil
}

// GetBalanceHistory returns snapshots captured since the given time,
// newest first.
func (h *BalanceHandler) GetBalanceHistory(
	ctx context.Context,
	input *BalanceHistoryInput,
) (*BalanceHistoryOutput, error) {
	since := h.nowFunc().Add(-defaultBalanceHistoryWindow)
	if input.Since != "" {
		t, err := time.Parse(time.RFC3339, input.Since)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("since must be an RFC 3339 time")
		}
		since = t
	}
	limit := input.Limit
	if limit == 0 {
		limit = defaultBalanceHistoryLimit
	}

	snaps, err := h.store.ListBalanceSnapshots(ctx, since, limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("fetching balance history failed: " + err.Error())
	}
	if snaps == nil {
		snaps = []domain.BalanceSnapshot{}
	}
	return &BalanceHistoryOutput{Body: snaps}, nil
}

// RegisterBalanceRoutes registers balance endpoints with the Huma API.
func RegisterBalanceRoutes(api huma.API, h *BalanceHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-balance",
		Method:      http.MethodGet,
		Path:        "/api/v1/balance",
		Summary:     "Get the latest balance",
		Description: "Returns the most recent seller balance snapshot.",
		Tags:        []string{"balance"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.GetBalance)

	huma.Register(api, huma.Operation{
		OperationID: "get-balance-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/balance/history",
		Summary:     "Get balance history",
		Description: "Returns balance snapshots captured since a point in time, newest first.",
		Tags:        []string{"balance"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.GetBalanceHistory)
}
