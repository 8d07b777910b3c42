package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the portal.
type Metrics struct {
	RequestsCreated     prometheus.Counter
	IdentitiesValidated prometheus.Counter
	ValidationFailures  prometheus.Counter
	TokensExpired       prometheus.Counter
	RequestsExpired     prometheus.Counter
	DeliveryFailures    prometheus.Counter
	HandlerLatency      *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "arcop_requests_created_total",
			Help: "Total number of access requests created",
		}),
		IdentitiesValidated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "arcop_identities_validated_total",
			Help: "Total number of successful identity validations",
		}),
		ValidationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "arcop_validation_failures_total",
			Help: "Total number of intake submissions rejected by field validation",
		}),
		TokensExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "arcop_tokens_expired_total",
			Help: "Total number of identity validations attempted with an expired token",
		}),
		RequestsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "arcop_requests_expired_total",
			Help: "Total number of requests expired past their response deadline",
		}),
		DeliveryFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "arcop_notification_delivery_failures_total",
			Help: "Total number of notification emails that failed to send",
		}),
		HandlerLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arcop_handler_duration_seconds",
			Help:    "Latency of HTTP handlers",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}
