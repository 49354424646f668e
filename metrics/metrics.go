package metrics

import (
	"net/http"

	"github.com/Vinubaba/TOUCH-API/registry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "touch"

var (
	StoreMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_mutations_total",
		Help:      "Committed store mutations by entity kind, operation and origin.",
	}, []string{"kind", "op", "origin"})

	SyncPushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_pushes_total",
		Help:      "Outbox changes processed by the reconciler, by result.",
	}, []string{"kind", "result"})

	SyncPulls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_pulled_documents_total",
		Help:      "Remote documents applied to local stores.",
	}, []string{"kind"})

	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Consultation notifications prepared, by delivery method.",
	}, []string{"method"})

	OpenWorkspaces = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_workspaces",
		Help:      "Workspaces currently cached in memory.",
	})
)

const (
	ResultPushed   = "pushed"
	ResultConflict = "conflict"
	ResultFailed   = "failed"
)

func Register(registerer prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{StoreMutations, SyncPushes, SyncPulls, Notifications, OpenWorkspaces} {
		if err := registerer.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveStoreEvent is meant to be registered as a broadcaster listener.
func ObserveStoreEvent(event registry.Event) {
	StoreMutations.WithLabelValues(string(event.Kind), string(event.Op), event.Origin).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
