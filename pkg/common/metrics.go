package common

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tx_debugger_analyses_total",
		Help: "Total number of transaction analyses by outcome",
	}, []string{"network", "outcome"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tx_debugger_analysis_duration_seconds",
		Help:    "Time taken to analyze a transaction end to end",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"network"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tx_debugger_cache_lookups_total",
		Help: "Result cache lookups by backend and result",
	}, []string{"backend", "result"})

	CacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tx_debugger_cache_entries",
		Help: "Number of cached analysis results",
	}, []string{"backend"})

	AgentTurns = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tx_debugger_agent_turns",
		Help:    "Number of reasoning turns taken per analysis",
		Buckets: prometheus.LinearBuckets(1, 1, 12),
	}, []string{"outcome"})

	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tx_debugger_tool_calls_total",
		Help: "Total tool invocations requested by the reasoning engine",
	}, []string{"tool", "status"})

	ToolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tx_debugger_tool_call_duration_seconds",
		Help:    "Duration of tool invocations",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
	}, []string{"tool"})

	UpstreamCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tx_debugger_upstream_call_duration_seconds",
		Help:    "Duration of calls to external collaborators",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"service", "method", "status"})

	UpstreamCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tx_debugger_upstream_calls_total",
		Help: "Total calls made to external collaborators",
	}, []string{"service", "method", "status"})

	RunLogWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tx_debugger_run_log_write_errors_total",
		Help: "Total failures writing per-run transcript logs",
	})

	StreamFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tx_debugger_stream_frames_dropped_total",
		Help: "Progress frames dropped because a stream peer fell behind",
	})

	MemoryUsage = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tx_debugger_memory_usage_bytes",
		Help: "Process memory usage by type",
	}, []string{"type"})

	GoroutineCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tx_debugger_goroutines",
		Help: "Number of running goroutines",
	})
)

// ObserveUpstream records the duration and outcome of one collaborator call.
func ObserveUpstream(service, method string, seconds float64, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}

	UpstreamCallDuration.WithLabelValues(service, method, status).Observe(seconds)
	UpstreamCallsTotal.WithLabelValues(service, method, status).Inc()
}
