package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ctyresolve_lookups_total",
		Help: "Callsign lookups by where the answer came from (local, redis, resolved)",
	}, []string{"source"})
	UnknownResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctyresolve_unknown_results_total",
		Help: "Lookups that resolved to no entity",
	})
	ResolveDurationUs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ctyresolve_resolve_duration_us",
		Help:    "Resolver time per callsign in microseconds",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 250, 1000},
	})
	BatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ctyresolve_batch_size",
		Help:    "Callsigns per batch request",
		Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000},
	})
	RedisErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctyresolve_redis_errors_total",
		Help: "Redis cache errors (lookups fall back to resolving)",
	})
	DatasetUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ctyresolve_dataset_updates_total",
		Help: "Country file refresh attempts by result",
	}, []string{"result"})
	DatasetEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ctyresolve_dataset_entries",
		Help: "Keys in the published index by kind (exact, prefix)",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(LookupsTotal)
	prometheus.MustRegister(UnknownResultsTotal)
	prometheus.MustRegister(ResolveDurationUs)
	prometheus.MustRegister(BatchSize)
	prometheus.MustRegister(RedisErrorsTotal)
	prometheus.MustRegister(DatasetUpdatesTotal)
	prometheus.MustRegister(DatasetEntries)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }
