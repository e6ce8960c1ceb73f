package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Asaas webhook ingress
	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asaas_webhook_events_total",
		Help: "Total Asaas webhook deliveries by event and processing outcome",
	}, []string{
		"event",   // PAYMENT_RECEIVED, PAYMENT_OVERDUE, other
		"outcome", // applied, ignored, rejected_signature, unknown_charge, duplicate, failed
	})

	webhookProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "asaas_webhook_processing_duration_seconds",
		Help:    "Time spent processing one Asaas webhook delivery",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{
		"event",
	})

	// Subscription lifecycle
	subscriptionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_window_updates_total",
		Help: "Total subscription window writes",
	}, []string{
		"kind",    // payment, overdue, created
		"cadence", // monthly, annual
	})

	subscriptionCadenceFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subscription_cadence_fallbacks_total",
		Help: "Times a subscription cadence could not be resolved and defaulted to monthly",
	})

	webhookSecretsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asaas_webhook_secrets_created_total",
		Help: "Webhook secrets generated on first use",
	})
)

// webhookEventLabel keeps label cardinality bounded for unknown provider events
func webhookEventLabel(event string) string {
	switch event {
	case "PAYMENT_RECEIVED", "PAYMENT_CONFIRMED", "PAYMENT_OVERDUE":
		return event
	default:
		return "other"
	}
}

// RecordWebhookEvent records one processed webhook delivery
func RecordWebhookEvent(event, outcome string, duration float64) {
	label := webhookEventLabel(event)
	webhookEventsTotal.WithLabelValues(label, outcome).Inc()
	webhookProcessingDuration.WithLabelValues(label).Observe(duration)
}

// RecordSubscriptionTransition records a persisted subscription window
func RecordSubscriptionTransition(kind, cadence string) {
	subscriptionTransitionsTotal.WithLabelValues(kind, cadence).Inc()
}

// RecordCadenceFallback records a monthly default applied for lack of data
func RecordCadenceFallback() {
	subscriptionCadenceFallbacks.Inc()
}

// RecordWebhookSecretCreated records a lazily generated credential secret
func RecordWebhookSecretCreated() {
	webhookSecretsCreated.Inc()
}
