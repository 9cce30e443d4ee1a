package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(buildInfo, pgPoolConns, planCacheLookups) }

var (
	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Always 1; labels carry the running version and commit.",
	}, []string{"version", "commit"})

	pgPoolConns = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "postgres",
		Name:      "pool_connections",
		Help:      "Connections held by the pgx pool by state.",
	}, []string{"state"})

	planCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Redis cache lookups by cache and result (hit, miss, error).",
	}, []string{"cache", "result"})
)

func SetBuildInfo(version, commit string) {
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit).Set(1)
}

// SetDBPoolStats publishes a pool snapshot; idle plus inUse may lag total
// while connections are being established.
func SetDBPoolStats(total, idle, inUse int32) {
	for state, n := range map[string]int32{"total": total, "idle": idle, "in_use": inUse} {
		pgPoolConns.WithLabelValues(state).Set(float64(n))
	}
}

func IncCacheRequest(cacheName, result string) {
	planCacheLookups.WithLabelValues(norm(cacheName), norm(result)).Inc()
}
