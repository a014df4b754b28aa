package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

// ListJobs returns the most recent run for each distinct scheduled job.
func (c *Client) ListJobs(ctx context.Context) ([]domain.JobRun, error) {
	var runs []domain.JobRun
	if err := c.get(ctx, "/api/v1/jobs", &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetJobHistory returns a job's runs, newest first. An empty status or a
// zero limit uses the server defaults.
func (c *Client) GetJobHistory(ctx context.Context, jobName, status string, limit int) ([]domain.JobRun, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/jobs/" + url.PathEscape(jobName)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var runs []domain.JobRun
	if err := c.get(ctx, path, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// TriggerResult is the response of a manual job run.
type TriggerResult struct {
	Job    string `json:"job"`
	Status string `json:"status"`
}

// TriggerJob runs a scheduled job on the server and waits for it.
func (c *Client) TriggerJob(ctx context.Context, jobName string) (*TriggerResult, error) {
	var res TriggerResult
	path := fmt.Sprintf("/api/v1/jobs/%s/trigger", url.PathEscape(jobName))
	if err := c.post(ctx, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SystemState returns the aggregate tracker state.
func (c *Client) SystemState(ctx context.Context) (*domain.SystemState, error) {
	var st domain.SystemState
	if err := c.get(ctx, "/api/v1/system/state", &st); err != nil {
		return nil, err
	}
	return &st, nil
}
