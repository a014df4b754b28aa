package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/bargauge"
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// WBRequestRate returns a timeseries panel showing marketplace API calls
// per second by category.
func WBRequestRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("API Calls by Category").
		Description("Marketplace API requests per second by category").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`wbst:wb_requests:rate5m`, "{{category}}", "A")).
		Unit("reqps").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// WBErrors returns a timeseries panel showing failed marketplace API calls
// by error kind.
func WBErrors() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("API Errors by Kind").
		Description("Failed marketplace API requests per second by error kind").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`wbst:wb_errors:rate5m`, "{{kind}}", "A")).
		Unit("reqps").
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenYellowRed(0.01, 0.1)).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// WBLatency returns a timeseries panel showing p95 marketplace API latency
// by category.
func WBLatency() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("API Latency (p95)").
		Description("95th percentile marketplace API request duration").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(`+Sel("wbst_wb_request_duration_seconds_bucket")+`[5m])) by (le, category))`,
			"{{category}}", "A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// LimiterRemaining returns a bar gauge panel showing tokens left in each
// category limiter as a share of its capacity.
func LimiterRemaining() *bargauge.PanelBuilder {
	return bargauge.NewPanelBuilder().
		Title("Limiter Tokens Left").
		Description("Remaining tokens per category as percentage of capacity").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			Sel("wbst_wb_limiter_remaining")+` / `+Sel("wbst_wb_limiter_capacity")+` * 100`,
			"{{category}}", "A",
		)).
		Unit("percent").
		Orientation(common.VizOrientationHorizontal).
		Min(0).
		Max(100).
		Thresholds(ThresholdsRedGreen(20)).
		ColorScheme(ColorSchemeThresholds())
}

// LimiterWait returns a timeseries panel showing the p95 time spent waiting
// for a limiter token.
func LimiterWait() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Limiter Wait (p95)").
		Description("95th percentile wait for a rate limiter token").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(`+Sel("wbst_wb_limiter_wait_seconds_bucket")+`[5m])) by (le, category))`,
			"{{category}}", "A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// RateLimited returns a timeseries panel showing 429 responses per minute.
func RateLimited() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("429s / min").
		Description("Rate-limited responses per minute by category").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`wbst:wb_rate_limited:rate5m * 60`, "{{category}}", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(0.1, 1)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleBars)
}
