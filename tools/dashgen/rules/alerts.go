package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// wb-seller-tracker operational monitoring.
func AlertRules() PrometheusRule {
	return newRule("wbst-alerts",
		RuleGroup{
			Name: "wbst-alerts",
			Rules: []Rule{
				{
					Alert: "WbstDown",
					Expr:  `absent(up{job="wb-seller-tracker"})`,
					For:   "2m",
					Labels: map[string]string{
						"severity": "critical",
					},
					Annotations: map[string]string{
						"summary":     "WB Seller Tracker is down",
						"description": "The wb-seller-tracker job has been absent for more than 2 minutes.",
					},
				},
				{
					Alert: "WbstReadinessDown",
					Expr:  `wbst_readyz_up == 0`,
					For:   "2m",
					Labels: map[string]string{
						"severity": "critical",
					},
					Annotations: map[string]string{
						"summary":     "WB Seller Tracker readiness check is failing",
						"description": "The readiness probe has been reporting not-ready for more than 2 minutes.",
					},
				},
				{
					Alert: "WbstHighErrorRate",
					Expr:  `wbst:http_errors:rate5m / wbst:http_requests:rate5m > 0.05`,
					For:   "5m",
					Labels: map[string]string{
						"severity": "warning",
					},
					Annotations: map[string]string{
						"summary":     "High HTTP error rate on WB Seller Tracker",
						"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
					},
				},
				{
					Alert: "WbstAuthFailures",
					Expr:  `sum(wbst:wb_errors:rate5m{kind=~"auth|forbidden"}) > 0`,
					For:   "5m",
					Labels: map[string]string{
						"severity": "critical",
					},
					Annotations: map[string]string{
						"summary":     "Marketplace API rejects the token",
						"description": "Requests fail with 401 or 403. The token is revoked, expired or lacks a category.",
					},
				},
				{
					Alert: "WbstRateLimited",
					Expr:  `sum(wbst:wb_rate_limited:rate5m) > 0.05`,
					For:   "10m",
					Labels: map[string]string{
						"severity": "warning",
					},
					Annotations: map[string]string{
						"summary":     "Marketplace API is rate limiting the tracker",
						"description": "429 responses have been returned for more than 10 minutes. Lower the category rates.",
					},
				},
				{
					Alert: "WbstTaskPollErrors",
					Expr:  `wbst:task_poll_errors:rate5m > 0`,
					For:   "15m",
					Labels: map[string]string{
						"severity": "warning",
					},
					Annotations: map[string]string{
						"summary":     "Tracked task polling is failing",
						"description": "Status reads of tracked tasks have been failing for more than 15 minutes.",
					},
				},
				{
					Alert: "WbstTasksFailing",
					Expr:  `sum(increase(wbst_tasks_finished_total{outcome=~"failed|timed_out"}[1h])) > 0`,
					For:   "0m",
					Labels: map[string]string{
						"severity": "warning",
					},
					Annotations: map[string]string{
						"summary":     "Uploads or reports failed",
						"description": "At least one tracked task failed or timed out in the last hour.",
					},
				},
				{
					Alert: "WbstTokenExpiringSoon",
					Expr:  `wbst_wb_token_expiry_timestamp - time() < 7 * 86400`,
					For:   "1h",
					Labels: map[string]string{
						"severity": "warning",
					},
					Annotations: map[string]string{
						"summary":     "Seller API token expires within a week",
						"description": "Issue a new token in the seller portal and update the configuration.",
					},
				},
				{
					Alert: "WbstJobFailing",
					Expr:  `sum(increase(wbst_job_runs_total{status="failed"}[30m])) by (job) > 2`,
					For:   "0m",
					Labels: map[string]string{
						"severity": "warning",
					},
					Annotations: map[string]string{
						"summary":     "Scheduled job keeps failing",
						"description": "A scheduled job failed more than twice in the last 30 minutes.",
					},
				},
				{
					Alert: "WbstNotificationFailures",
					Expr:  `increase(wbst_notification_failures_total[5m]) > 0`,
					For:   "1m",
					Labels: map[string]string{
						"severity": "warning",
					},
					Annotations: map[string]string{
						"summary":     "Notification delivery failures detected",
						"description": "One or more alert notifications (Discord webhooks) have failed to send.",
					},
				},
			},
		},
	)
}
