package metrics

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Registry holds the prometheus collectors exported by inkwell.
type Registry struct {
	registry *prometheus.Registry

	sessionsStarted prometheus.Counter
	sessionsStopped prometheus.Counter
	activeSessions  prometheus.Gauge
	notifications   prometheus.Counter
	rawEvents       prometheus.Counter
	watchErrors     prometheus.Counter

	eventsPublished *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	subscribers     *prometheus.GaugeVec

	apiRequests *prometheus.CounterVec
}

// Default is used by components constructed without an explicit registry.
var Default = NewRegistry()

func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()
	r := &Registry{
		registry: registry,
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inkwell_watch_sessions_started_total",
			Help: "Total watch sessions started",
		}),
		sessionsStopped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inkwell_watch_sessions_stopped_total",
			Help: "Total watch sessions torn down",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inkwell_watch_active_sessions",
			Help: "Watch sessions currently active",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inkwell_watch_notifications_total",
			Help: "Change notifications forwarded to the sink",
		}),
		rawEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inkwell_watch_raw_events_total",
			Help: "Raw filesystem events received before debouncing",
		}),
		watchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inkwell_watch_errors_total",
			Help: "Watcher-level errors reported by the OS primitive",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_event_bus_published_total",
			Help: "Events published on an event bus",
		}, []string{"bus", "type"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_event_bus_dropped_total",
			Help: "Events dropped because a subscriber was full",
		}, []string{"bus", "type"}),
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inkwell_event_bus_subscribers",
			Help: "Event bus subscribers by kind",
		}, []string{"bus", "kind"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_api_requests_total",
			Help: "API requests by route, method and status",
		}, []string{"route", "method", "status"}),
	}
	registry.MustRegister(
		r.sessionsStarted,
		r.sessionsStopped,
		r.activeSessions,
		r.notifications,
		r.rawEvents,
		r.watchErrors,
		r.eventsPublished,
		r.eventsDropped,
		r.subscribers,
		r.apiRequests,
	)
	return r
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}

func (r *Registry) IncSessionStarted() {
	if r == nil {
		return
	}
	r.sessionsStarted.Inc()
	r.activeSessions.Inc()
}

func (r *Registry) IncSessionStopped() {
	if r == nil {
		return
	}
	r.sessionsStopped.Inc()
	r.activeSessions.Dec()
}

// ActiveSessions reads the current value of the active session gauge.
func (r *Registry) ActiveSessions() float64 {
	if r == nil {
		return 0
	}
	var metric dto.Metric
	if err := r.activeSessions.Write(&metric); err != nil {
		return 0
	}
	return metric.GetGauge().GetValue()
}

// WatchErrors reads the watcher error counter.
func (r *Registry) WatchErrors() float64 {
	if r == nil {
		return 0
	}
	var metric dto.Metric
	if err := r.watchErrors.Write(&metric); err != nil {
		return 0
	}
	return metric.GetCounter().GetValue()
}

func (r *Registry) IncNotification() {
	if r == nil {
		return
	}
	r.notifications.Inc()
}

func (r *Registry) IncRawEvent() {
	if r == nil {
		return
	}
	r.rawEvents.Inc()
}

func (r *Registry) IncWatchError() {
	if r == nil {
		return
	}
	r.watchErrors.Inc()
}

func (r *Registry) IncEventPublished(bus, eventType string) {
	if r == nil {
		return
	}
	r.eventsPublished.WithLabelValues(labelValue(bus), labelValue(eventType)).Inc()
}

func (r *Registry) IncEventDropped(bus, eventType string) {
	if r == nil {
		return
	}
	r.eventsDropped.WithLabelValues(labelValue(bus), labelValue(eventType)).Inc()
}

func (r *Registry) SetEventSubscriberCounts(bus string, filtered, unfiltered int) {
	if r == nil {
		return
	}
	r.subscribers.WithLabelValues(labelValue(bus), "filtered").Set(float64(filtered))
	r.subscribers.WithLabelValues(labelValue(bus), "unfiltered").Set(float64(unfiltered))
}

func (r *Registry) IncAPIRequest(route, method string, status int) {
	if r == nil {
		return
	}
	r.apiRequests.WithLabelValues(labelValue(route), method, strconv.Itoa(status)).Inc()
}

func labelValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}
