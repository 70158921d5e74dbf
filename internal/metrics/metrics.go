// Package metrics exposes the Prometheus collectors shared by the worker and the API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "claims"

var (
	CompletionRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completion_requests_total",
		Help:      "Structured completion calls by schema and outcome.",
	}, []string{"schema", "outcome"})

	CompletionTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completion_tokens_total",
		Help:      "Tokens consumed by structured completion calls.",
	}, []string{"schema", "kind"})

	CompletionLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "completion_duration_seconds",
		Help:      "Latency of structured completion calls.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
	}, []string{"schema"})

	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notification deliveries by sink and outcome.",
	}, []string{"sink", "outcome"})

	CallbackResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "callback_resolutions_total",
		Help:      "Client-side callback resolutions by outcome.",
	}, []string{"outcome"})

	ClaimsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submitted_total",
		Help:      "Claim workflows started.",
	})

	UserMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "interview_messages_total",
		Help:      "User messages posted to interview sessions by outcome.",
	}, []string{"outcome"})
)

// Registry holds every collector of this package plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		CompletionRequests,
		CompletionTokens,
		CompletionLatency,
		Notifications,
		CallbackResolutions,
		ClaimsSubmitted,
		UserMessages,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Outcome maps an error to the outcome label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
