package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return newRule("wbst-recording-rules",
		RuleGroup{
			Name: "wbst-recording",
			Rules: []Rule{
				{
					Record: "wbst:http_requests:rate5m",
					Expr:   `sum(rate(wbst_http_requests_total[5m]))`,
				},
				{
					Record: "wbst:http_errors:rate5m",
					Expr:   `sum(rate(wbst_http_requests_total{status=~"5.."}[5m]))`,
				},
				{
					Record: "wbst:wb_requests:rate5m",
					Expr:   `sum(rate(wbst_wb_requests_total[5m])) by (category)`,
				},
				{
					Record: "wbst:wb_errors:rate5m",
					Expr:   `sum(rate(wbst_wb_requests_total{kind!="ok"}[5m])) by (kind)`,
				},
				{
					Record: "wbst:wb_rate_limited:rate5m",
					Expr:   `sum(rate(wbst_wb_rate_limited_total[5m])) by (category)`,
				},
				{
					Record: "wbst:task_poll_errors:rate5m",
					Expr:   `rate(wbst_task_poll_errors_total[5m])`,
				},
				{
					Record: "wbst:notification_duration:p95_5m",
					Expr:   `histogram_quantile(0.95, sum(rate(wbst_notification_duration_seconds_bucket[5m])) by (le))`,
				},
			},
		},
	)
}
