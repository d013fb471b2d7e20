package services

import "github.com/prometheus/client_golang/prometheus"

var (
	OrderStatusWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_writes_total",
			Help: "Order status writes by resulting status",
		},
		[]string{"status"},
	)

	OrderNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_notifications_total",
			Help: "Status-edge notifications fired",
		},
		[]string{"status"},
	)

	NotifierFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_notifier_failures_total",
			Help: "Notifier deliveries that failed",
		},
		[]string{"notifier"},
	)

	PrintAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printer_jobs_total",
			Help: "Printer jobs by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(OrderStatusWrites, OrderNotifications, NotifierFailures, PrintAttempts)
}
