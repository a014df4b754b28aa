package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
)

// HealthzStat shows the liveness probe gauge (1 = ok, 0 = failing).
func HealthzStat() *stat.PanelBuilder {
	return singleStat("Healthz", "Liveness probe status (1 = ok, 0 = failing)", StatHeight, `wbst_healthz_up`).
		Thresholds(ThresholdsRedGreen(1)).
		TextMode(common.BigValueTextModeValue)
}

// ReadyzStat shows the readiness probe gauge. Readiness fails when the
// database is unreachable or the seller token has expired.
func ReadyzStat() *stat.PanelBuilder {
	return singleStat("Readyz", "Readiness probe status (1 = ready, 0 = not ready)", StatHeight, `wbst_readyz_up`).
		Thresholds(ThresholdsRedGreen(1)).
		TextMode(common.BigValueTextModeValue)
}

// TokenExpiry returns a stat panel showing the time left until the API
// token expires. Red below a week.
func TokenExpiry() *stat.PanelBuilder {
	return singleStat("Token Expires In", "Time until the configured seller API token expires", StatHeight,
		Sel("wbst_wb_token_expiry_timestamp")+` - time()`).
		Unit("s").
		Thresholds(ThresholdsRedGreen(7 * 86400))
}

// UptimeStat returns a stat panel showing process uptime.
func UptimeStat() *stat.PanelBuilder {
	return singleStat("Uptime", "Time since process start", StatHeight, `time() - `+Sel("process_start_time_seconds")).
		Unit("s").
		Thresholds(ThresholdsGreenOnly()).
		ColorMode(common.BigValueColorModeValue)
}
