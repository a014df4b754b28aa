package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// AlertsRate shows Discord alerts sent per second by alert type
// (task_failed, balance_low, token_expiring, job_failed).
func AlertsRate() *timeseries.PanelBuilder {
	return lineSeries("Alerts Fired Rate", "Alerts sent per second by type", StatWidth).
		WithTarget(PromQuery(`sum(rate(`+Sel("wbst_alerts_fired_total")+`[5m])) by (type)`, "{{type}}", "A"))
}

// LastNotification shows the time since a webhook last succeeded.
func LastNotification() *stat.PanelBuilder {
	return singleStat("Last Notification", "Time since the last delivered Discord webhook", TSHeight,
		`time() - `+Sel("wbst_notification_last_success_timestamp")).
		Unit("s").
		Thresholds(ThresholdsGreenYellowRed(3600, 86400))
}

// NotificationLatency plots the recorded p95 webhook latency.
func NotificationLatency() *timeseries.PanelBuilder {
	return lineSeries("Notification Latency (p95)", "95th percentile Discord webhook latency", StatWidth).
		WithTarget(PromQuery(`wbst:notification_duration:p95_5m`, "p95", "A")).
		Unit("s").
		Thresholds(ThresholdsGreenYellowRed(1, 5))
}

// NotificationFailures counts failed deliveries over the last day.
func NotificationFailures() *stat.PanelBuilder {
	return singleStat("Notification Failures (24h)", "Webhook deliveries that failed in the last 24 hours", TSHeight,
		`increase(`+Sel("wbst_notification_failures_total")+`[24h])`).
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		GraphMode(common.BigValueGraphModeArea)
}
