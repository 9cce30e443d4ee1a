package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(backendLatency, receipts, events) }

var (
	backendLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "request_duration_seconds",
		Help:      "Latency of platform backend calls by operation.",
		Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"op", "success"})

	// stage: render|store|mail
	receipts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "receipt",
		Name:      "operations_total",
		Help:      "Receipt generation and delivery by stage and status.",
	}, []string{"stage", "status"})

	events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "domain_events_total",
		Help:      "Domain events published on the in-process bus.",
	}, []string{"event"})
)

func ObserveBackend(op string, seconds float64, success bool) {
	backendLatency.WithLabelValues(norm(op), strconv.FormatBool(success)).Observe(seconds)
}

func IncReceipt(stage, status string) { receipts.WithLabelValues(norm(stage), norm(status)).Inc() }

func IncEvent(name string) { events.WithLabelValues(norm(name)).Inc() }
