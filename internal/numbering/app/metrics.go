package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lifecycleOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voxcalls",
			Subsystem: "numbering",
			Name:      "lifecycle_operations_total",
			Help:      "Total number of phone number lifecycle operations.",
		},
		[]string{"operation", "result"}, // e.g. operation="claim", result="success"
	)

	providerCallFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voxcalls",
			Subsystem: "numbering",
			Name:      "provider_call_failures_total",
			Help:      "Total number of failed provider calls, by enforcement policy.",
		},
		[]string{"operation", "call", "policy"}, // policy="fatal" or "best_effort"
	)
)
