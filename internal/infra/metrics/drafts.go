package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		draftEventsTotal,
		paymentsTotal,
		ratingsSubmittedTotal,
		gatewayFailuresTotal,
	)
}

var (
	draftEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draft_events_total",
			Help: "Draft lifecycle transitions.",
		},
		[]string{"event"}, // published | updated | unchanged | recalled | deleted
	)

	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment checkouts created and statuses observed.",
		},
		[]string{"status"}, // created | succeeded | pending | failed
	)

	ratingsSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_submitted_total",
			Help: "Accepted peer ratings by score.",
		},
		[]string{"score"},
	)

	gatewayFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_failures_total",
			Help: "Failed calls to external gateways.",
		},
		[]string{"gateway", "op"},
	)
)

func IncDraftEvent(event string) {
	draftEventsTotal.WithLabelValues(norm(event)).Inc()
}

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func IncRatingSubmitted(score int) {
	ratingsSubmittedTotal.WithLabelValues(strconv.Itoa(score)).Inc()
}

func IncGatewayFailure(gateway, op string) {
	gatewayFailuresTotal.WithLabelValues(norm(gateway), norm(op)).Inc()
}
