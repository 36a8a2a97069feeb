package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments shared by the wirehub servers.
type Metrics struct {
	// Stream server
	ConnectionsOpened prometheus.Counter
	ConnectionsActive prometheus.Gauge

	// Datagram server
	DatagramsReceived prometheus.Counter
	DatagramsReplied  prometheus.Counter
	DatagramsDropped  prometheus.Counter

	// Shared per-request outcomes
	RequestsHandled *prometheus.CounterVec
	DecodeErrors    *prometheus.CounterVec
	HandlerErrors   *prometheus.CounterVec
	WriteErrors     *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers all wirehub metrics with the default registry, for serving
// through promhttp.Handler.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewNop returns metrics backed by a private registry, for callers that
// do not export them (tests, the client CLI).
func NewNop() *Metrics {
	return NewWith(prometheus.NewRegistry())
}

// NewWith registers the metrics with the given registerer. Tests pass a
// fresh registry to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ConnectionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "wirehub_connections_opened_total",
			Help: "Total number of stream connections accepted",
		}),
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wirehub_connections_active",
			Help: "Current number of open stream connections",
		}),
		DatagramsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "wirehub_datagrams_received_total",
			Help: "Total number of datagrams received",
		}),
		DatagramsReplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "wirehub_datagrams_replied_total",
			Help: "Total number of datagram replies sent",
		}),
		DatagramsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "wirehub_datagrams_dropped_total",
			Help: "Total number of datagrams dropped due to decode or handler failure",
		}),
		RequestsHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wirehub_requests_handled_total",
			Help: "Total number of requests handled",
		}, []string{"transport"}),
		DecodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wirehub_decode_errors_total",
			Help: "Total number of frames that failed to decode",
		}, []string{"transport"}),
		HandlerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wirehub_handler_errors_total",
			Help: "Total number of handler failures",
		}, []string{"transport"}),
		WriteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wirehub_write_errors_total",
			Help: "Total number of response write failures",
		}, []string{"transport"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wirehub_request_duration_seconds",
			Help:    "Time from frame decode to response written",
			Buckets: prometheus.DefBuckets,
		}, []string{"transport"}),
	}
}
