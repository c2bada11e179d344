// Package observability groups the Prometheus instruments used by the bot.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	EventsProcessed *prometheus.CounterVec
	RepliesSent     prometheus.Counter
	RemindersSent   prometheus.Counter
	HandlerErrors   *prometheus.CounterVec
	ActiveSessions  prometheus.GaugeFunc
}

// NewMetrics registers the bot's instruments under the given namespace.
// sessionCount feeds the active-sessions gauge.
func NewMetrics(namespace string, sessionCount func() int) *Metrics {
	return &Metrics{
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Gateway events processed by type.",
		}, []string{"type"}),
		RepliesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_sent_total",
			Help:      "Replies sent to chats.",
		}),
		RemindersSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Reminder prompts re-sent by the sweep.",
		}),
		HandlerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Errors swallowed at the dispatch and sweep top level.",
		}, []string{"component"}),
		ActiveSessions: promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live conversation sessions.",
		}, func() float64 { return float64(sessionCount()) }),
	}
}

// MetricsHandler exposes the default registry for scraping.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
