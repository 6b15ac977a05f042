// Package metrics wraps the Prometheus collectors the client package
// updates as calls and invocations move through the multiplexer, grounded
// on go-server-3/internal/metrics/metrics.go's Registry shape.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps the Prometheus collectors for a single Client.
type Registry struct {
	Calls       gaugeVec
	Invocations gaugeVec
	Messages    counterVec
}

type gaugeVec struct {
	Active prometheus.Gauge
}

type counterVec struct {
	Sent            prometheus.Counter
	Received        prometheus.Counter
	Errors          prometheus.Counter
	ProgressDropped prometheus.Counter
}

// NewRegistry creates a fresh set of collectors and registers them on reg
// under fixed metric names, so a second NewRegistry call on the same
// Registerer panics with a duplicate-registration error.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		Calls: gaugeVec{
			Active: factory.NewGauge(prometheus.GaugeOpts{
				Name: "wamp_client_calls_active",
				Help: "Number of CALLs awaiting a terminal RESULT or ERROR",
			}),
		},
		Invocations: gaugeVec{
			Active: factory.NewGauge(prometheus.GaugeOpts{
				Name: "wamp_client_invocations_active",
				Help: "Number of INVOCATIONs currently running in a registered handler",
			}),
		},
		Messages: counterVec{
			Sent: factory.NewCounter(prometheus.CounterOpts{
				Name: "wamp_client_messages_sent_total",
				Help: "Total number of WAMP messages written to the transport",
			}),
			Received: factory.NewCounter(prometheus.CounterOpts{
				Name: "wamp_client_messages_received_total",
				Help: "Total number of WAMP messages read from the transport",
			}),
			Errors: factory.NewCounter(prometheus.CounterOpts{
				Name: "wamp_client_errors_total",
				Help: "Total number of ERROR messages received in reply to a request",
			}),
			ProgressDropped: factory.NewCounter(prometheus.CounterOpts{
				Name: "wamp_client_progress_dropped_total",
				Help: "Total number of progressive call results dropped by the bounded progress queue",
			}),
		},
	}
}

// Handler exposes the default Prometheus registry's collectors over HTTP.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
