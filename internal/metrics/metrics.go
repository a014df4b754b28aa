// Package metrics defines Prometheus metrics for wb-seller-tracker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
)

const namespace = "wbst"

// HTTP metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HTTPPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_panics_total",
		Help:      "Total number of recovered handler panics.",
	})

	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "1 if the last /healthz probe succeeded.",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "1 if the last /readyz probe succeeded.",
	})
)

// Marketplace API metrics.
var (
	WBRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wb_requests_total",
		Help:      "Total marketplace API requests by category and outcome.",
	}, []string{"category", "method", "kind"})

	WBRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "wb_request_duration_seconds",
		Help:      "Duration of marketplace API requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"category"})

	WBRateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wb_rate_limited_total",
		Help:      "Total number of 429 responses by category.",
	}, []string{"category"})

	WBLimiterWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "wb_limiter_wait_seconds",
		Help:      "Time spent waiting for a rate limiter token.",
		Buckets:   []float64{0, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"category"})

	WBLimiterRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "wb_limiter_remaining",
		Help:      "Whole tokens left in the category limiter.",
	}, []string{"category"})

	WBLimiterCapacity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "wb_limiter_capacity",
		Help:      "Current capacity of the category limiter.",
	}, []string{"category"})

	TokenExpiryTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "wb_token_expiry_timestamp",
		Help:      "Unix time the configured API token expires.",
	})
)

// Task metrics.
var (
	TasksTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tasks_pending",
		Help:      "Tracked tasks not yet in a terminal state.",
	})

	TasksFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_finished_total",
		Help:      "Tracked tasks that reached a terminal state.",
	}, []string{"kind", "outcome"})

	TaskPollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_poll_errors_total",
		Help:      "Total errors while polling tracked tasks.",
	})
)

// Balance metrics.
var (
	BalanceCurrent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "balance_current",
		Help:      "Seller account balance at the last sync.",
	})

	BalanceForWithdraw = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "balance_for_withdraw",
		Help:      "Withdrawable balance at the last sync.",
	})
)

// Scheduler metrics.
var (
	JobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Scheduled job runs by job and status.",
	}, []string{"job", "status"})

	SchedulerNextRunTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_next_run_timestamp",
		Help:      "Unix timestamp of the next scheduled run per job.",
	}, []string{"job"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of scheduled job runs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
)

// Alert metrics.
var (
	AlertsFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_fired_total",
		Help:      "Total number of alerts fired.",
	}, []string{"type"})

	NotificationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of notification send failures.",
	})

	NotificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_duration_seconds",
		Help:      "Duration of notification webhook calls in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	NotificationLastSuccessTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_last_success_timestamp",
		Help:      "Unix timestamp of the last delivered notification.",
	})
)

// WBObserver records client events into the marketplace API metrics.
type WBObserver struct{}

var _ wb.Observer = WBObserver{}

// ObserveRequest implements wb.Observer.
func (WBObserver) ObserveRequest(cat wb.Category, method string, status int, kind string, d time.Duration) {
	c := string(cat)
	WBRequestsTotal.WithLabelValues(c, method, kind).Inc()
	WBRequestDuration.WithLabelValues(c).Observe(d.Seconds())
	if status == http.StatusTooManyRequests {
		WBRateLimitedTotal.WithLabelValues(c).Inc()
	}
}

// ObserveLimiter implements wb.Observer.
func (WBObserver) ObserveLimiter(cat wb.Category, waited time.Duration, state wb.LimiterState) {
	c := string(cat)
	WBLimiterWait.WithLabelValues(c).Observe(waited.Seconds())
	WBLimiterRemaining.WithLabelValues(c).Set(float64(state.Remaining))
	WBLimiterCapacity.WithLabelValues(c).Set(float64(state.Limit))
}
