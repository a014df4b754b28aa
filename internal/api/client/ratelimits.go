package client

import (
	"context"
	"net/url"
	"strconv"

	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

// RateLimits returns the live limiter state of every API category.
func (c *Client) RateLimits(ctx context.Context) ([]domain.LimiterSnapshot, error) {
	var snaps []domain.LimiterSnapshot
	if err := c.get(ctx, "/api/v1/ratelimits", &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

// RateLimitHistory returns stored snapshots of one category.
func (c *Client) RateLimitHistory(ctx context.Context, category string, limit int) ([]domain.LimiterSnapshot, error) {
	path := "/api/v1/ratelimits/" + url.PathEscape(category) + "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var snaps []domain.LimiterSnapshot
	if err := c.get(ctx, path, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}
