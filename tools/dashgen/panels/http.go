package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// httpPanelWidth fits three HTTP panels on one row.
const httpPanelWidth = FullWidth / 3

func httpQuantile(q float64) string {
	return fmt.Sprintf(`histogram_quantile(%.2f, sum(rate(%s[5m])) by (le))`,
		q, Sel("wbst_http_request_duration_seconds_bucket"))
}

// RequestRate plots requests per second served by the tracker's own API.
// Probe and docs routes are not counted.
func RequestRate() *timeseries.PanelBuilder {
	return lineSeries("Request Rate", "Tracker API requests per second", httpPanelWidth).
		WithTarget(PromQuery(`wbst:http_requests:rate5m`, "req/s", "A")).
		Unit("reqps").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip())
}

// LatencyPercentiles plots p50, p95 and p99 of tracker API latency.
func LatencyPercentiles() *timeseries.PanelBuilder {
	p := lineSeries("Latency Percentiles", "Tracker API request duration percentiles", httpPanelWidth).
		Unit("s").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip())
	for i, q := range []float64{0.50, 0.95, 0.99} {
		p = p.WithTarget(PromQuery(httpQuantile(q), fmt.Sprintf("p%.0f", q*100), string(rune('A'+i))))
	}
	return p
}

// ErrorRate plots 5xx responses as a percentage of all requests.
func ErrorRate() *timeseries.PanelBuilder {
	return lineSeries("Error Rate %", "Tracker API 5xx responses as percentage of requests", httpPanelWidth).
		WithTarget(PromQuery(`wbst:http_errors:rate5m / wbst:http_requests:rate5m * 100`, "error %", "A")).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds())
}
