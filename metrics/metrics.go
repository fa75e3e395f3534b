package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	IngestRequests  *prometheus.CounterVec
	StoreAppend     *prometheus.HistogramVec
	Provisioned     *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	PaymentRequests *prometheus.CounterVec
	PaymentLatency  *prometheus.HistogramVec
	EventsPublished *prometheus.CounterVec
	Errors          *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			IngestRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_requests_total",
				Help:      "Inbound router requests by kind and outcome.",
			}, []string{"kind", "outcome"}),
			StoreAppend: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_append_duration_seconds",
				Help:      "Latency of appending a record to a table.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"table", "status"}),
			Provisioned: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provision_total",
				Help:      "Template workbooks provisioned by outcome.",
			}, []string{"outcome"}),
			Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notifications dispatched by kind and outcome.",
			}, []string{"kind", "outcome"}),
			PaymentRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_requests_total",
				Help:      "Payment gateway requests by endpoint and status.",
			}, []string{"endpoint", "status"}),
			PaymentLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "payment_request_duration_seconds",
				Help:      "Latency distribution for payment gateway requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"endpoint", "status"}),
			EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Lead events published to the broker by outcome.",
			}, []string{"routing_key", "outcome"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.IngestRequests,
			metricsInstance.StoreAppend,
			metricsInstance.Provisioned,
			metricsInstance.Notifications,
			metricsInstance.PaymentRequests,
			metricsInstance.PaymentLatency,
			metricsInstance.EventsPublished,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}

// Outcome maps an error to the "ok"/"error" label used on counters.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
