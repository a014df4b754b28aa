package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// JobRuns returns a timeseries panel showing job runs per hour by status.
func JobRuns() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Job Runs / h").
		Description("Scheduled job runs per hour by job and status").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`sum(increase(`+Sel("wbst_job_runs_total")+`[1h])) by (job, status)`,
			"{{job}} {{status}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// JobDuration returns a timeseries panel showing the p95 job duration.
func JobDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Job Duration (p95)").
		Description("95th percentile scheduled job duration").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(`+Sel("wbst_job_duration_seconds_bucket")+`[15m])) by (le, job))`,
			"{{job}}", "A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// NextRun returns a stat panel showing time until each job runs next.
func NextRun() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Next Run").
		Description("Time until the next scheduled run per job").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(Sel("wbst_scheduler_next_run_timestamp")+` - time()`, "{{job}}", "A")).
		Unit("s").
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeNone)
}
