package main

import "errors"

// KnownMetrics is the set of metric names exported by wb-seller-tracker
// plus recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"wbst_http_request_duration_seconds": true,
	"wbst_http_requests_total":           true,
	"wbst_http_panics_total":             true,

	// Health metrics.
	"wbst_healthz_up": true,
	"wbst_readyz_up":  true,

	// Marketplace API metrics.
	"wbst_wb_requests_total":           true,
	"wbst_wb_request_duration_seconds": true,
	"wbst_wb_rate_limited_total":       true,
	"wbst_wb_limiter_wait_seconds":     true,
	"wbst_wb_limiter_remaining":        true,
	"wbst_wb_limiter_capacity":         true,
	"wbst_wb_token_expiry_timestamp":   true,

	// Task metrics.
	"wbst_tasks_pending":          true,
	"wbst_tasks_finished_total":   true,
	"wbst_task_poll_errors_total": true,

	// Balance metrics.
	"wbst_balance_current":      true,
	"wbst_balance_for_withdraw": true,

	// Scheduler metrics.
	"wbst_job_runs_total":               true,
	"wbst_scheduler_next_run_timestamp": true,
	"wbst_job_duration_seconds":         true,

	// Alert metrics.
	"wbst_alerts_fired_total":                  true,
	"wbst_notification_failures_total":         true,
	"wbst_notification_duration_seconds":       true,
	"wbst_notification_last_success_timestamp": true,

	// Recording rules.
	"wbst:http_requests:rate5m":         true,
	"wbst:http_errors:rate5m":           true,
	"wbst:wb_requests:rate5m":           true,
	"wbst:wb_errors:rate5m":             true,
	"wbst:wb_rate_limited:rate5m":       true,
	"wbst:task_poll_errors:rate5m":      true,
	"wbst:notification_duration:p95_5m": true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
