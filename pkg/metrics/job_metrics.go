package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// JobExecutionTotal tracks the total number of scheduled job executions.
	JobExecutionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_execution_total",
			Help: "Total number of scheduled job executions",
		},
		[]string{"job_name", "status"}, // status: success, failed
	)

	// JobExecutionDuration tracks the duration of scheduled job executions.
	JobExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_execution_duration_seconds",
			Help:    "Duration of scheduled job executions in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		},
		[]string{"job_name"},
	)

	// JobLastSuccessTimestamp tracks the timestamp of the last successful job execution.
	JobLastSuccessTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "job_last_success_timestamp_seconds",
			Help: "Timestamp of the last successful job execution in Unix seconds",
		},
		[]string{"job_name"},
	)
)

func init() {
	prometheus.MustRegister(JobExecutionTotal)
	prometheus.MustRegister(JobExecutionDuration)
	prometheus.MustRegister(JobLastSuccessTimestamp)
}
