package rest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// requestsTotal — счетчик HTTP-запросов по методу/маршруту/статусу.
var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "accounts",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of handled HTTP requests.",
	},
	[]string{"method", "path", "status"},
)
