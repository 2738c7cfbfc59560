package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(reminderBotInfo) }

var reminderBotInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "billing_reminder_bot_info",
		Help: "Always 1; labels carry the running billing reminder bot release.",
	},
	[]string{"version", "commit", "storage"},
)

// SetBuildInfo publishes the release labels once at startup.
func SetBuildInfo(version, commit, storage string) {
	reminderBotInfo.WithLabelValues(version, commit, norm(storage)).Set(1)
}
