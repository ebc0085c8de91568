// Package telemetry provides logging setup and Prometheus metrics for the
// registration service.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served on the side-channel HTTP server started by cmd/server:
//
//	GET http(s)://<host>:<REG_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. It is NOT served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Platform (INCEpTION remote API) calls by operation and outcome
//   - Provisioning runs by outcome
//   - Registration record sink writes and failures
//   - Quiz attempts, content reloads, admin notifications
//   - Database connection pool gauge (polled every 30 s, postgres sink only)
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Platform client metrics.
//
// PlatformRequestsTotal carries {operation, outcome}. Operations are ping,
// list_projects, create_user and add_member. Outcomes are ok, not_found,
// http_error, transport_error and decode_error. The client itself only reports
// success or failure to callers, so these labels are where the failure class
// becomes visible.
//
// Example PromQL queries:
//   - Account creation failures:  increase(platform_requests_total{operation="create_user",outcome!="ok"}[1h])
//   - Platform outage:            rate(platform_requests_total{operation="ping",outcome="transport_error"}[5m]) > 0
var (
	PlatformRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_requests_total",
			Help: "Total number of annotation platform API calls, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	PlatformRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platform_request_duration_seconds",
			Help:    "Latency of annotation platform API calls, by operation.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)
)

// ProvisioningRunsTotal counts completed workflow runs by outcome:
// complete (all projects assigned), partial (account created, some projects
// pending), account_pending (platform reachable, account not created),
// unreachable.
var ProvisioningRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "provisioning_runs_total",
		Help: "Total number of provisioning workflow runs, by outcome.",
	},
	[]string{"outcome"},
)

// Recorder metrics.
//
// RegistrationSinkFailuresTotal is incremented once per failed sink attempt,
// so a healthy fallback still shows up here. RegistrationRecordsLostTotal counts
// records that no sink accepted; alert on any increase.
var (
	RegistrationSinkWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_sink_writes_total",
			Help: "Total number of registration records accepted, by sink.",
		},
		[]string{"sink"},
	)

	RegistrationSinkFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_sink_failures_total",
			Help: "Total number of failed registration record writes, by sink.",
		},
		[]string{"sink"},
	)

	RegistrationRecordsLostTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registration_records_lost_total",
			Help: "Total number of registration records rejected by every configured sink.",
		},
	)
)

// QuizAttemptsTotal carries {language, result} where result is pass or fail.
var QuizAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quiz_attempts_total",
		Help: "Total number of comprehension check submissions, by language code and result.",
	},
	[]string{"language", "result"},
)

// ContentReloadsTotal counts cache invalidations triggered by content file changes.
var ContentReloadsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "content_reloads_total",
		Help: "Total number of content cache invalidations caused by file changes.",
	},
)

// AdminNotificationsTotal carries {result}: sent or failed.
var AdminNotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_notifications_total",
		Help: "Total number of manual-setup notification emails, by result.",
	},
	[]string{"result"},
)

// BackgroundPanicsTotal carries {task}: the name given to safego.Go.
var BackgroundPanicsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "background_task_panics_total",
		Help: "Total number of panics recovered in background goroutines, by task.",
	},
	[]string{"task"},
)

// DBOpenConnections tracks the number of open connections held by the
// sql.DB pool. It is sampled every 30 seconds by StartDBStatsCollector.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits when the database becomes unreachable, which happens at
// shutdown once the pool is closed.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
