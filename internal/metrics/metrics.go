package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationDuration tracks the latency of ledger operations
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ledger_operation_duration_seconds",
			Help: "Duration of ledger operations in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
				5.0,   // 5s
				10.0,  // 10s
			},
		},
		[]string{"operation", "status"},
	)

	// CouponsGranted counts coupons added to customer balances
	CouponsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_coupons_granted_total",
		Help: "Total number of coupons granted",
	})

	// CouponsConsumed counts coupons taken by deliveries
	CouponsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_coupons_consumed_total",
		Help: "Total number of coupons consumed",
	})

	// DeliveriesRecorded counts delivery records appended to the log
	DeliveriesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_deliveries_recorded_total",
		Help: "Total number of deliveries recorded",
	})
)

// RecordOperationDuration records the duration of a ledger operation
func RecordOperationDuration(operation, status string, duration float64) {
	OperationDuration.WithLabelValues(operation, status).Observe(duration)
}
