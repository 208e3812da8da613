package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tenantd",
			Subsystem: "orchestrator",
			Name:      "transitions_total",
			Help:      "Total tenant status transitions by source and target status",
		},
		[]string{"from", "to"},
	)

	provisionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tenantd",
			Subsystem: "orchestrator",
			Name:      "provision_duration_seconds",
			Help:      "Duration of successful provisioning workflows",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17m
		},
	)

	provisionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tenantd",
			Subsystem: "orchestrator",
			Name:      "provision_failures_total",
			Help:      "Provisioning step failures by step",
		},
		[]string{"step"},
	)

	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tenantd",
			Subsystem: "orchestrator",
			Name:      "reconcile_total",
			Help:      "Reconcile passes by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		transitionsTotal,
		provisionDuration,
		provisionFailures,
		reconcileTotal,
	)
}
