package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace prefixes every series this service exports.
const namespace = "learnhub"

var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

// register queues collectors from a file's init for MustRegister.
func register(cs ...prometheus.Collector) { pending = append(pending, cs...) }

// MustRegister adds every queued collector to the default registry. Later
// calls are no-ops.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(pending...)
	})
}

// norm keeps label values low-cardinality and case-stable.
func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
