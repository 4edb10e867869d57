package federation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks identity operations.
type Metrics struct {
	ActorsCreated        *prometheus.CounterVec
	BackfilledFields     *prometheus.CounterVec
	BackfillFailures     prometheus.Counter
	WebfingerDocuments   prometheus.Counter
	RemoteActorsImported prometheus.Counter
}

// NewMetrics creates and registers the metrics. A nil registry uses the
// default registerer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	return &Metrics{
		ActorsCreated: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "fedactor_actors_created_total",
			Help: "Local actors created, by actor type",
		}, []string{"type"}),
		BackfilledFields: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "fedactor_backfilled_fields_total",
			Help: "Derived URL fields written by backfill",
		}, []string{"field"}),
		BackfillFailures: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "fedactor_backfill_failures_total",
			Help: "Backfill runs that failed to persist a field",
		}),
		WebfingerDocuments: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "fedactor_webfinger_documents_total",
			Help: "WebFinger documents built",
		}),
		RemoteActorsImported: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "fedactor_remote_actors_imported_total",
			Help: "Remote actors imported from discovery",
		}),
	}
}
