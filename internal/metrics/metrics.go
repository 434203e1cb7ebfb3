package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	SessionsCreated     prometheus.Counter
	SessionTransitions  *prometheus.CounterVec
	AssignConflicts     prometheus.Counter
	AuditEntriesTotal   prometheus.Counter
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter
	RealtimeDelivered   prometheus.Counter
	RealtimeDropped     prometheus.Counter
}

// NewCollector registers every metric on a private registry so that tests can
// build as many collectors as they need.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"method", "route"}),

		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Total number of sessions created.",
		}),

		SessionTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "transitions_total",
			Help:      "Session status transitions by target status.",
		}, []string{"to"}),

		AssignConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "assign_conflicts_total",
			Help:      "Assignment attempts that lost the compare-and-set race.",
		}),

		AuditEntriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notifications persisted.",
		}),

		NotificationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "failed_total",
			Help:      "Notifications that could not be persisted. The triggering request still succeeds.",
		}),

		RealtimeDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "delivered_total",
			Help:      "Real-time frames queued to connected clients.",
		}),

		RealtimeDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "dropped_total",
			Help:      "Real-time frames dropped because a client buffer was full.",
		}),
	}
}

func (collector *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(collector.registry, promhttp.HandlerOpts{})
}

func (collector *Collector) Registry() *prometheus.Registry {
	return collector.registry
}
