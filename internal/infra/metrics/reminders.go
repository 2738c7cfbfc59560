package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		scanRunsTotal,
		scanDuration,
		scanUsers,
		remindersTotal,
	)
}

var (
	scanRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_scan_runs_total",
			Help: "Daily scan executions by outcome (ok/failed/locked).",
		},
		[]string{"outcome"},
	)

	scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_scan_duration_seconds",
			Help:    "Wall time of a scan including reminder dispatch.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// Users seen by the last scan, grouped by classification.
	// kind: scanned|muted|due|failed
	scanUsers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billing_scan_users",
			Help: "Users seen by the most recent scan by classification.",
		},
		[]string{"kind"},
	)

	remindersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_total",
			Help: "Reminder deliveries by status (sent/failed).",
		},
		[]string{"status"},
	)
)

func IncScanRun(outcome string) {
	scanRunsTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveScanDuration(seconds float64) {
	scanDuration.Observe(seconds)
}

func SetScanUsers(scanned, muted, due, failed int) {
	scanUsers.WithLabelValues("scanned").Set(float64(scanned))
	scanUsers.WithLabelValues("muted").Set(float64(muted))
	scanUsers.WithLabelValues("due").Set(float64(due))
	scanUsers.WithLabelValues("failed").Set(float64(failed))
}

func IncReminder(status string) {
	remindersTotal.WithLabelValues(norm(status)).Inc()
}
