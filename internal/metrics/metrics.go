package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_analysis_provider_requests_total",
			Help: "Historical price requests to the market data provider by outcome",
		},
		[]string{"outcome"},
	)

	stockCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_analysis_stock_cache_total",
			Help: "Merged stock series cache lookups by result",
		},
		[]string{"result"},
	)

	sweepResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_analysis_sweep_results_total",
			Help: "Notification sweep results by status",
		},
		[]string{"status"},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stock_analysis_sweep_duration_seconds",
			Help:    "Duration of notification sweeps",
			Buckets: prometheus.DefBuckets,
		},
	)

	backtestRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_analysis_backtest_runs_total",
			Help: "Backtest simulations by outcome",
		},
		[]string{"outcome"},
	)

	mcpCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_analysis_mcp_calls_total",
			Help: "MCP requests by method and outcome",
		},
		[]string{"method", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(providerRequests)
	prometheus.MustRegister(stockCache)
	prometheus.MustRegister(sweepResults)
	prometheus.MustRegister(sweepDuration)
	prometheus.MustRegister(backtestRuns)
	prometheus.MustRegister(mcpCalls)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordProviderRequest(outcome string) {
	providerRequests.WithLabelValues(outcome).Inc()
}

func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	stockCache.WithLabelValues(result).Inc()
}

func RecordSweepResult(status string) {
	sweepResults.WithLabelValues(status).Inc()
}

func ObserveSweepDuration(seconds float64) {
	sweepDuration.Observe(seconds)
}

func RecordBacktest(outcome string) {
	backtestRuns.WithLabelValues(outcome).Inc()
}

func RecordMCPCall(method string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	mcpCalls.WithLabelValues(method, outcome).Inc()
}
