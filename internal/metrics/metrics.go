package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	// DBQueriesTotal tracks the total number of store queries
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherdash_db_queries_total",
			Help: "Total number of store queries executed",
		},
		[]string{"query_type", "table", "status"},
	)

	// DBQueryDuration tracks the duration of store queries
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherdash_db_query_duration_seconds",
			Help:    "Duration of store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type", "table"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatherdash_db_connections_open",
			Help: "Number of established connections both in use and idle",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatherdash_db_connections_in_use",
			Help: "Number of connections currently in use",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatherdash_db_connections_idle",
			Help: "Number of idle connections",
		},
	)
)

// Pipeline metrics
var (
	// FetchesTotal counts provider requests by endpoint and outcome
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherdash_provider_fetches_total",
			Help: "Total number of weather provider requests",
		},
		[]string{"endpoint", "status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherdash_provider_fetch_duration_seconds",
			Help:    "Duration of weather provider requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// AlertsTriggered counts alert events by type and severity
	AlertsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherdash_alerts_triggered_total",
			Help: "Total number of alert events produced by rule evaluation",
		},
		[]string{"alert_type", "severity"},
	)

	HookFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherdash_hook_failures_total",
			Help: "Post-write hooks that returned an error",
		},
		[]string{"hook"},
	)

	AlertsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherdash_alerts_purged_total",
			Help: "Alert history rows removed by retention sweeps",
		},
	)

	// AppInfo provides static information about the application
	AppInfo = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatherdash_app_info",
			Help: "Application information (always 1)",
		},
	)

	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatherdash_app_start_time_seconds",
			Help: "Unix timestamp of when the application started",
		},
	)
)

func init() {
	AppInfo.Set(1)
	AppStartTime.SetToCurrentTime()
}

// RecordDBQuery records a store query execution
func RecordDBQuery(queryType, table string, duration time.Duration, err error) {
	DBQueriesTotal.WithLabelValues(queryType, table, status(err)).Inc()
	DBQueryDuration.WithLabelValues(queryType, table).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(open, inUse, idle int) {
	DBConnectionsOpen.Set(float64(open))
	DBConnectionsInUse.Set(float64(inUse))
	DBConnectionsIdle.Set(float64(idle))
}

// RecordFetch records one provider request
func RecordFetch(endpoint string, duration time.Duration, err error) {
	FetchesTotal.WithLabelValues(endpoint, status(err)).Inc()
	FetchDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordAlert counts a triggered alert
func RecordAlert(alertType, severity string) {
	AlertsTriggered.WithLabelValues(alertType, severity).Inc()
}

func RecordHookFailure(hook string) {
	HookFailures.WithLabelValues(hook).Inc()
}

func RecordPurge(count int64) {
	AlertsPurged.Add(float64(count))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
