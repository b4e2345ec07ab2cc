package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Self-instrumentation, exposed on /metrics.
var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_checks_total",
		Help: "Total number of per-metric anomaly evaluations",
	}, []string{"metric"})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_fetch_errors_total",
		Help: "Total number of failed metric fetches",
	}, []string{"metric"})

	anomaliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_anomalies_detected_total",
		Help: "Total number of anomalous verdicts",
	}, []string{"metric", "rule"})

	alertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_alerts_sent_total",
		Help: "Total number of alerts dispatched",
	}, []string{"metric", "severity"})

	alertsSuppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_alerts_suppressed_total",
		Help: "Total number of anomalies suppressed by the cooldown gate",
	}, []string{"metric"})

	dispatchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_dispatch_errors_total",
		Help: "Total number of failed alert deliveries",
	}, []string{"metric"})

	baselineMean = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sentinel_baseline_mean",
		Help: "Current baseline mean per monitored metric",
	}, []string{"metric"})

	baselineStdDev = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sentinel_baseline_stddev",
		Help: "Current baseline standard deviation per monitored metric",
	}, []string{"metric"})
)
