// Package metrics exposes the event pipeline through Prometheus. Metrics implements
// the observer interfaces of the dispatcher, the unit of work and the outbox worker.
package metrics

import (
	"errors"
	"time"

	"tasktrack/domain/shared"
	"tasktrack/infrastructure/eventing"
	"tasktrack/infrastructure/outbox"
	"tasktrack/infrastructure/persistence"

	"github.com/prometheus/client_golang/prometheus"
)

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

type Metrics struct {
	// Dispatcher metrics
	handlerDuration *prometheus.HistogramVec
	handlerErrors   *prometheus.CounterVec
	eventsUnhandled *prometheus.CounterVec

	// Unit of work metrics
	uowDuration  *prometheus.HistogramVec
	uowEvents    prometheus.Counter
	uowConflicts prometheus.Counter

	// Outbox metrics
	outboxPublished *prometheus.CounterVec
	outboxFailed    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tasktrack_event_handler_duration_seconds",
			Help:    "Event handler latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"event", "handler"}),

		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktrack_event_handler_errors_total",
			Help: "Total number of failed event handler invocations",
		}, []string{"event", "handler"}),

		eventsUnhandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktrack_events_unhandled_total",
			Help: "Total number of dispatched events without a handler",
		}, []string{"event"}),

		uowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tasktrack_unit_of_work_duration_seconds",
			Help:    "Unit of work latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"outcome"}),

		uowEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasktrack_unit_of_work_events_total",
			Help: "Total number of domain events in committed units of work",
		}),

		uowConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasktrack_unit_of_work_conflicts_total",
			Help: "Total number of units of work rolled back on a conflict",
		}),

		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktrack_outbox_published_total",
			Help: "Total number of outbox messages published",
		}, []string{"event"}),

		outboxFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktrack_outbox_failed_total",
			Help: "Total number of failed outbox publish attempts",
		}, []string{"event"}),
	}

	reg.MustRegister(
		m.handlerDuration,
		m.handlerErrors,
		m.eventsUnhandled,
		m.uowDuration,
		m.uowEvents,
		m.uowConflicts,
		m.outboxPublished,
		m.outboxFailed,
	)
	return m
}

func (m *Metrics) EventUnhandled(eventName string) {
	m.eventsUnhandled.WithLabelValues(eventName).Inc()
}

func (m *Metrics) HandlerFinished(eventName, handler string, elapsed time.Duration, err error) {
	m.handlerDuration.WithLabelValues(eventName, handler).Observe(elapsed.Seconds())
	if err != nil {
		m.handlerErrors.WithLabelValues(eventName, handler).Inc()
	}
}

func (m *Metrics) UnitOfWorkCommitted(elapsed time.Duration, events int) {
	m.uowDuration.WithLabelValues("committed").Observe(elapsed.Seconds())
	m.uowEvents.Add(float64(events))
}

func (m *Metrics) UnitOfWorkRolledBack(elapsed time.Duration, err error) {
	m.uowDuration.WithLabelValues("rolled_back").Observe(elapsed.Seconds())
	if errors.Is(err, shared.ErrConflict) {
		m.uowConflicts.Inc()
	}
}

func (m *Metrics) OutboxPublished(eventType string) {
	m.outboxPublished.WithLabelValues(eventType).Inc()
}

func (m *Metrics) OutboxFailed(eventType string) {
	m.outboxFailed.WithLabelValues(eventType).Inc()
}

var (
	_ eventing.Observer    = (*Metrics)(nil)
	_ persistence.Observer = (*Metrics)(nil)
	_ outbox.Observer      = (*Metrics)(nil)
)
