package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(storageConns) }

// storageConns is only populated for the Postgres backend.
var storageConns = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "billing_storage_connections",
		Help: "Connections held by the billing reminder Postgres pool, by state.",
	},
	[]string{"state"},
)

func SetDBPoolStats(total, idle, inUse int32) {
	for state, n := range map[string]int32{"total": total, "idle": idle, "in_use": inUse} {
		storageConns.WithLabelValues(state).Set(float64(n))
	}
}
