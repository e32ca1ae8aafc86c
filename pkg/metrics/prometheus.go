package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the fulfillment engine.
type Metrics struct {
	Fulfillments     *prometheus.CounterVec
	TransientRetries prometheus.Counter
	LoginFailures    prometheus.Counter
	TickDuration     prometheus.Histogram
}

// NewMetrics registers the instruments on the given registerer. Tests pass
// a private registry to avoid global duplicate registration.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Fulfillments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fulfillments_total",
			Help:      "Finished fulfillment attempts by outcome",
		}, []string{"outcome"}),
		TransientRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transient_retries_total",
			Help:      "Fulfillment attempts postponed by a transient remote error",
		}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_failures_total",
			Help:      "Ticks aborted because the remote login failed",
		}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of scheduler ticks that processed at least one booking",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
