// Package metrics provides Prometheus metrics for monitoring lock statistics reporting.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Render modes.
const (
	ModeDisplay  = "display"
	ModeDownload = "download"
)

var (
	ReportRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockstats_report_renders_total",
			Help: "Total number of report outputs by report, mode and outcome",
		},
		[]string{"report", "mode", "status"},
	)
	ReportRenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lockstats_report_render_duration_seconds",
			Help:    "Report output duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"report", "mode"},
	)
	HistoryRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lockstats_history_rows",
			Help: "Current number of raw rows in the lock history table",
		},
	)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockstats_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lockstats_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func RecordReportRender(report, mode string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	ReportRenders.WithLabelValues(report, mode, status).Inc()
	ReportRenderDuration.WithLabelValues(report, mode).Observe(duration.Seconds())
}

func UpdateHistoryRows(count int) {
	HistoryRows.Set(float64(count))
}

func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
