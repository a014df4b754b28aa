package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

// Balance is the latest balance with its blocked part.
type Balance struct {
	domain.BalanceSnapshot
	Blocked float64 `json:"blocked"`
}

// GetBalance returns the most recent stored balance.
func (c *Client) GetBalance(ctx context.Context) (*Balance, error) {
	var b Balance
	if err := c.get(ctx, "/api/v1/balance", &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// BalanceHistory returns snapshots captured since the given time. A zero
// since or limit uses the server defaults.
func (c *Client) BalanceHistory(ctx context.Context, since time.Time, limit int) ([]domain.BalanceSnapshot, error) {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/balance/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var snaps []domain.BalanceSnapshot
	if err := c.get(ctx, path, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}
