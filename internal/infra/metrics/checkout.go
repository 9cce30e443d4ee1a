package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(transitions, outcomes, pollAttempts, completeDuration, rateLimited, payments, revenue)
}

const checkoutSubsystem = "checkout"

var (
	transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: checkoutSubsystem,
		Name:      "transitions_total",
		Help:      "State machine transitions by source and target state.",
	}, []string{"from", "to"})

	// outcome: success|partial|failed|cancelled
	outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: checkoutSubsystem,
		Name:      "outcomes_total",
		Help:      "Settled checkout sessions by outcome.",
	}, []string{"outcome"})

	pollAttempts = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: checkoutSubsystem,
		Name:      "access_poll_attempts",
		Help:      "Access checks made before the poller finished.",
		Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
	}, []string{"result"}) // confirmed|exhausted|errored

	completeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: checkoutSubsystem,
		Name:      "complete_duration_seconds",
		Help:      "Time from gateway result to settlement.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"outcome"})

	rateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: checkoutSubsystem,
		Name:      "rate_limited_total",
		Help:      "Checkout attempts rejected by the per-user rate limit.",
	})

	// status: initiated|verified|failed
	payments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: checkoutSubsystem,
		Name:      "payments_total",
		Help:      "Gateway payments by status.",
	}, []string{"status"})

	revenue = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: checkoutSubsystem,
		Name:      "verified_amount_minor_total",
		Help:      "Sum of verified payments in minor currency units.",
	}, []string{"currency"})
)

func IncCheckoutTransition(from, to string) { transitions.WithLabelValues(norm(from), norm(to)).Inc() }

func IncCheckoutOutcome(outcome string) { outcomes.WithLabelValues(norm(outcome)).Inc() }

func ObservePollAttempts(result string, attempts int) {
	pollAttempts.WithLabelValues(norm(result)).Observe(float64(attempts))
}

func ObserveCheckoutDuration(outcome string, seconds float64) {
	completeDuration.WithLabelValues(norm(outcome)).Observe(seconds)
}

func IncRateLimitTriggered() { rateLimited.Inc() }

func IncPayment(status string) { payments.WithLabelValues(norm(status)).Inc() }

// AddPaymentRevenue ignores non-positive amounts; counters cannot go down.
func AddPaymentRevenue(currency string, amount int64) {
	if amount <= 0 {
		return
	}
	revenue.WithLabelValues(norm(currency)).Add(float64(amount))
}
